package ev3

import (
	"context"
	"fmt"
	"time"
)

// Tone is a single note of a song. A zero frequency is a rest.
type Tone struct {
	Frequency int
	Duration  time.Duration
}

// Triad is a short rising C major triad.
var Triad = []Tone{
	{Frequency: 262, Duration: 250 * time.Millisecond},
	{Frequency: 330, Duration: 250 * time.Millisecond},
	{Frequency: 392, Duration: 250 * time.Millisecond},
	{Frequency: 523, Duration: 500 * time.Millisecond},
}

// Jukebox plays sounds and sets the brick's status LED.
type Jukebox struct {
	brick  *Brick
	Volume int // 0..100
}

// NewJukebox returns a jukebox on the brick.
func NewJukebox(b *Brick) *Jukebox {
	return &Jukebox{brick: b, Volume: 1}
}

// PlayTone starts a tone and returns immediately.
func (j *Jukebox) PlayTone(ctx context.Context, volume, frequency int, d time.Duration) error {
	body := ops(
		op(opSound), []byte{soundTone},
		lc(volume), lc(frequency), lc(int(d/time.Millisecond)),
	)
	if err := j.brick.Send(ctx, body); err != nil {
		return fmt.Errorf("play tone: %w", err)
	}
	return nil
}

// StopSound interrupts the current tone.
func (j *Jukebox) StopSound(ctx context.Context) error {
	if err := j.brick.Send(ctx, ops(op(opSound), []byte{soundBreak})); err != nil {
		return fmt.Errorf("stop sound: %w", err)
	}
	return nil
}

// SetLED sets the LED pattern.
func (j *Jukebox) SetLED(ctx context.Context, led LED) error {
	body := ops(op(opUIWrite), []byte{uiWriteLED}, lc(int(led)))
	if err := j.brick.Send(ctx, body); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// PlaySong plays the tones one after another and blocks until the song
// ends or ctx is done.
func (j *Jukebox) PlaySong(ctx context.Context, song []Tone) error {
	for _, t := range song {
		if t.Frequency > 0 {
			if err := j.PlayTone(ctx, j.Volume, t.Frequency, t.Duration); err != nil {
				return err
			}
		}
		timer := time.NewTimer(t.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
