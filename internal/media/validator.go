package media

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidFileType = errors.New("only image and video files are allowed")
	ErrTooManyFiles    = errors.New("maximum 3 media files allowed")
	ErrTooManyVideos   = errors.New("only one video is allowed")
	ErrVideoTooLong    = errors.New("video must not exceed 30 seconds")
	ErrDurationProbe   = errors.New("video duration could not be determined")
)

const (
	DefaultMaxFiles         = 3
	DefaultMaxVideos        = 1
	DefaultMaxVideoDuration = 30 * time.Second
)

type Limits struct {
	MaxFiles         int           `mapstructure:"maxFiles"`
	MaxVideos        int           `mapstructure:"maxVideos"`
	MaxVideoDuration time.Duration `mapstructure:"maxVideoDuration"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxFiles:         DefaultMaxFiles,
		MaxVideos:        DefaultMaxVideos,
		MaxVideoDuration: DefaultMaxVideoDuration,
	}
}

// Counts is the attachment distribution a batch is validated against.
type Counts struct {
	Total  int
	Videos int
}

type Validator struct {
	limits Limits
	prober DurationProber
}

func NewValidator(limits Limits, prober DurationProber) *Validator {
	defaults := DefaultLimits()
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = defaults.MaxFiles
	}
	if limits.MaxVideos <= 0 {
		limits.MaxVideos = defaults.MaxVideos
	}
	if limits.MaxVideoDuration <= 0 {
		limits.MaxVideoDuration = defaults.MaxVideoDuration
	}
	return &Validator{
		limits: limits,
		prober: prober,
	}
}

func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate checks a batch of newly selected files against the current attachment
// counts. Rules run in order and the first violation is returned. Video durations
// are probed last, so the call may block on the prober.
func (v *Validator) Validate(ctx context.Context, current Counts, files []*File) error {
	if err := v.CheckCounts(current, files); err != nil {
		return err
	}

	for _, f := range files {
		if !f.IsVideo() {
			continue
		}
		if v.prober == nil {
			return fmt.Errorf("%w: %s: no duration prober configured", ErrDurationProbe, f.Name)
		}
		duration, err := v.prober.Probe(ctx, f)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %s: %v", ErrDurationProbe, f.Name, err)
		}
		if duration > v.limits.MaxVideoDuration {
			return fmt.Errorf("%w: %s is %s", ErrVideoTooLong, f.Name, duration.Round(time.Millisecond))
		}
	}

	return nil
}

// CheckCounts applies the synchronous rules: file type, total count and video count.
func (v *Validator) CheckCounts(current Counts, files []*File) error {
	batchVideos := 0
	for _, f := range files {
		kind, ok := f.Kind()
		if !ok {
			return fmt.Errorf("%w: %s (%s)", ErrInvalidFileType, f.Name, f.ContentType)
		}
		if kind == KindVideo {
			batchVideos++
		}
	}

	if current.Total+len(files) > v.limits.MaxFiles {
		return fmt.Errorf("%w: %d selected, %d already attached", ErrTooManyFiles, len(files), current.Total)
	}

	if current.Videos+batchVideos > v.limits.MaxVideos {
		return fmt.Errorf("%w: %d selected, %d already attached", ErrTooManyVideos, batchVideos, current.Videos)
	}

	return nil
}
