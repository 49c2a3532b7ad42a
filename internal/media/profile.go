package media

import (
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Profile describes the frame and sample rates of a project.
type Profile struct {
	Name         string `toml:"name"`
	FrameRateNum int    `toml:"frame_rate_num"`
	FrameRateDen int    `toml:"frame_rate_den"`
	SampleRate   int    `toml:"sample_rate"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
}

// DefaultProfile returns a 25 fps HD profile.
func DefaultProfile() Profile {
	return Profile{
		Name:         "atsc_1080p_25",
		FrameRateNum: 25,
		FrameRateDen: 1,
		SampleRate:   48000,
		Width:        1920,
		Height:       1080,
	}
}

// Validate checks that the rates are usable.
func (p Profile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FrameRateNum, validation.Required, validation.Min(1)),
		validation.Field(&p.FrameRateDen, validation.Required, validation.Min(1)),
		validation.Field(&p.SampleRate, validation.Required, validation.Min(8000)),
		validation.Field(&p.Width, validation.Min(0)),
		validation.Field(&p.Height, validation.Min(0)),
	)
}

// FPS returns the frame rate.
func (p Profile) FPS() float64 {
	return float64(p.FrameRateNum) / float64(p.FrameRateDen)
}

// Frames converts a duration to a frame count, rounding to the nearest frame.
func (p Profile) Frames(d time.Duration) int {
	return int(math.Round(d.Seconds() * p.FPS()))
}

// Duration converts a frame count to wall time.
func (p Profile) Duration(frames int) time.Duration {
	return time.Duration(float64(frames) / p.FPS() * float64(time.Second))
}
