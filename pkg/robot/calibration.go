package robot

// ServoCalibration holds the raw travel range of a gripper servo, recorded
// by moving the gripper from fully closed to fully open.
type ServoCalibration struct {
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
	// Inverted swaps the open and closed ends.
	Inverted bool `json:"inverted,omitempty"`
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c ServoCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c ServoCalibration) Denormalize(norm float64) int {
	norm = max(-100, min(100, norm))
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// OpenPosition returns the raw position of the fully open gripper.
func (c ServoCalibration) OpenPosition() int {
	if c.Inverted {
		return c.Denormalize(-100)
	}
	return c.Denormalize(100)
}

// ClosedPosition returns the raw position of the fully closed gripper.
func (c ServoCalibration) ClosedPosition() int {
	if c.Inverted {
		return c.Denormalize(100)
	}
	return c.Denormalize(-100)
}
