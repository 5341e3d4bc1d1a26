package draft

import (
	"strings"

	"github.com/google/uuid"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
)

type Origin string

const (
	OriginExisting Origin = "existing"
	OriginNew      Origin = "new"
)

// Candidate is one attachment in the draft. ID is assigned once at creation and
// never reused, so removal never depends on list positions.
type Candidate struct {
	ID       string      `json:"id"`
	RemoteID string      `json:"remoteId,omitempty"`
	URL      string      `json:"url"`
	Kind     media.Kind  `json:"kind"`
	Origin   Origin      `json:"origin"`
	File     *media.File `json:"file,omitempty"`
}

func (c *Candidate) IsNew() bool {
	return c.Origin == OriginNew
}

// Label names the candidate in warnings.
func (c *Candidate) Label() string {
	if c.File != nil && c.File.Name != "" {
		return c.File.Name
	}
	if c.RemoteID != "" {
		return c.RemoteID
	}
	return c.ID
}

func existingCandidate(m remote.Media) *Candidate {
	return &Candidate{
		ID:       uuid.NewString(),
		RemoteID: m.ID,
		URL:      m.URL,
		Kind:     remoteKind(m.Type),
		Origin:   OriginExisting,
	}
}

func newCandidate(f *media.File, previewURL string) *Candidate {
	kind, _ := f.Kind()
	return &Candidate{
		ID:     uuid.NewString(),
		URL:    previewURL,
		Kind:   kind,
		Origin: OriginNew,
		File:   f,
	}
}

// remoteKind maps the media service's type string onto a Kind, ignoring case.
func remoteKind(t remote.MediaType) media.Kind {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case string(media.KindVideo):
		return media.KindVideo
	default:
		return media.KindImage
	}
}
