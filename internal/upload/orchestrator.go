package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prappser/prappser_composer/internal/draft"
	"github.com/rs/zerolog/log"
)

var ErrNoLocalFile = errors.New("candidate has no local file")

type Stage string

const (
	StageUpload   Stage = "upload"
	StageRegister Stage = "register"
)

// RegisterFunc records a successfully uploaded candidate with the media service.
type RegisterFunc func(ctx context.Context, c draft.Candidate, url string) error

// Outcome is the result for one upload slot. Stage is set only when Err is.
type Outcome struct {
	Slot      int
	Candidate draft.Candidate
	URL       string
	Stage     Stage
	Err       error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

type Orchestrator struct {
	uploader Uploader
	observer Observer
}

func NewOrchestrator(uploader Uploader, observer Observer) *Orchestrator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{uploader: uploader, observer: observer}
}

// Run uploads candidates one at a time. A failed item is logged and skipped;
// every successful upload is registered before the next one starts. Once ctx is
// done the remaining items fail without being attempted.
func (o *Orchestrator) Run(ctx context.Context, uploads []draft.Candidate, progress *Progress, register RegisterFunc) []Outcome {
	outcomes := make([]Outcome, 0, len(uploads))

	for slot, c := range uploads {
		outcome := Outcome{Slot: slot, Candidate: c}

		if err := ctx.Err(); err != nil {
			outcome.Stage = StageUpload
			outcome.Err = fmt.Errorf("upload cancelled: %w", err)
			outcomes = append(outcomes, outcome)
			continue
		}

		url, err := o.upload(ctx, slot, c, progress)
		if err != nil {
			log.Error().
				Err(err).
				Int("slot", slot).
				Str("file", c.Label()).
				Msg("[UPLOAD] Failed to upload media")
			outcome.Stage = StageUpload
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.URL = url

		if register != nil {
			started := time.Now()
			err := register(ctx, c, url)
			o.observer.RecordRegister(time.Since(started), err)
			if err != nil {
				log.Error().
					Err(err).
					Int("slot", slot).
					Str("url", url).
					Msg("[UPLOAD] Failed to register media")
				outcome.Stage = StageRegister
				outcome.Err = err
			}
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (o *Orchestrator) upload(ctx context.Context, slot int, c draft.Candidate, progress *Progress) (string, error) {
	if c.File == nil {
		return "", fmt.Errorf("%w: %s", ErrNoLocalFile, c.Label())
	}

	onProgress := func(percent int) {
		if progress != nil {
			progress.Update(slot, percent)
		}
	}
	onProgress(0)

	return o.uploader.Upload(ctx, c.File, onProgress)
}
