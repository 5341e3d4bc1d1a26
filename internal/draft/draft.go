package draft

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
)

var ErrValidation = errors.New("validation error")

// Draft is a post being composed. PostID is empty until the post exists remotely.
// Original is the media snapshot taken when editing began and stays nil for new posts.
type Draft struct {
	ID          string
	PostID      string
	LikeCount   int
	Original    []remote.Media
	Attachments *PreviewSet

	mu          sync.RWMutex
	title       string
	description string

	submitting atomic.Bool
}

func New(validator *media.Validator, previews PreviewRegistry) *Draft {
	return &Draft{
		ID:          uuid.NewString(),
		Attachments: NewPreviewSet(validator, previews),
	}
}

// ForPost opens a draft that edits an existing post.
func ForPost(post *remote.Post, validator *media.Validator, previews PreviewRegistry) *Draft {
	original := make([]remote.Media, len(post.Media))
	copy(original, post.Media)

	return &Draft{
		ID:          uuid.NewString(),
		PostID:      post.ID,
		LikeCount:   post.LikeCount,
		Original:    original,
		Attachments: NewPreviewSet(validator, previews, original...),
		title:       post.Title,
		description: post.Description,
	}
}

func (d *Draft) SetText(title, description string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
	d.description = description
}

func (d *Draft) Text() (title, description string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title, d.description
}

// Editing reports whether submission has to reconcile against a remote snapshot.
func (d *Draft) Editing() bool {
	return d.PostID != "" && d.Original != nil
}

// Validate checks the submit-time invariants. Video durations were checked when
// the files were added and are not probed again.
func (d *Draft) Validate() error {
	title, description := d.Text()
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}

	counts := d.Attachments.Counts()
	limits := d.Attachments.validator.Limits()
	if counts.Total == 0 {
		return fmt.Errorf("%w: at least one photo or video is required", ErrValidation)
	}
	if counts.Total > limits.MaxFiles {
		return fmt.Errorf("%w: %v", ErrValidation, media.ErrTooManyFiles)
	}
	if counts.Videos > limits.MaxVideos {
		return fmt.Errorf("%w: %v", ErrValidation, media.ErrTooManyVideos)
	}
	return nil
}

// BeginSubmission marks the draft as submitting and freezes its attachments.
// It returns false when a submission is already in flight.
func (d *Draft) BeginSubmission() bool {
	if !d.submitting.CompareAndSwap(false, true) {
		return false
	}
	d.Attachments.setFrozen(true)
	return true
}

func (d *Draft) EndSubmission() {
	d.Attachments.setFrozen(false)
	d.submitting.Store(false)
}

func (d *Draft) Submitting() bool {
	return d.submitting.Load()
}
