package submission

import (
	"errors"
	"fmt"

	"github.com/prappser/prappser_composer/internal/draft"
)

var (
	ErrValidation         = draft.ErrValidation
	ErrSubmissionInFlight = draft.ErrSubmissionInFlight
	ErrMissingPostID      = errors.New("post service returned no id")
)

// MetadataPersistError means the post itself could not be created or updated.
// Nothing else was attempted and the draft is unchanged.
type MetadataPersistError struct {
	PostID string
	Err    error
}

func (e *MetadataPersistError) Error() string {
	if e.PostID == "" {
		return fmt.Sprintf("failed to save post: %v", e.Err)
	}
	return fmt.Sprintf("failed to save post %s: %v", e.PostID, e.Err)
}

func (e *MetadataPersistError) Unwrap() error {
	return e.Err
}

type WarningKind string

const (
	WarningMediaDelete   WarningKind = "media_delete"
	WarningUpload        WarningKind = "upload"
	WarningMediaRegister WarningKind = "media_register"
)

// Warning is a non-fatal per-item failure. Completed steps are never rolled back.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Item    string      `json:"item"`
	Message string      `json:"message"`
	Cause   string      `json:"cause,omitempty"`
	Err     error       `json:"-"`
}

func newWarning(kind WarningKind, item, message string, err error) Warning {
	w := Warning{Kind: kind, Item: item, Message: message, Err: err}
	if err != nil {
		w.Cause = err.Error()
	}
	return w
}
