package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/rs/zerolog/log"
)

var (
	ErrItemNotFound       = errors.New("attachment not found")
	ErrSubmissionInFlight = errors.New("submission already in progress")
)

// PreviewRegistry hands out local preview URLs. Every URL it creates must be
// revoked exactly once.
type PreviewRegistry interface {
	Create(f *media.File) (string, error)
	Revoke(url string) bool
}

// PreviewSet is the ordered list of attachments currently shown in the draft.
// Existing items mirror remote media and New items are local files with a preview URL.
// The set only grows through Add, which validates the whole batch first.
type PreviewSet struct {
	validator *media.Validator
	previews  PreviewRegistry

	mu    sync.Mutex
	items []*Candidate
	// frozen while a submission works from a snapshot of items
	frozen bool
}

// NewPreviewSet builds a set seeded with the post's existing remote media.
func NewPreviewSet(validator *media.Validator, previews PreviewRegistry, existing ...remote.Media) *PreviewSet {
	s := &PreviewSet{
		validator: validator,
		previews:  previews,
		items:     make([]*Candidate, 0, len(existing)),
	}
	for _, m := range existing {
		s.items = append(s.items, existingCandidate(m))
	}
	return s
}

// Add validates files against the current set, including video duration probes,
// and appends one New candidate per file. On any error the set is left unchanged.
func (s *PreviewSet) Add(ctx context.Context, files []*media.File) ([]Candidate, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.Frozen() {
		return nil, ErrSubmissionInFlight
	}

	if err := s.validator.Validate(ctx, s.Counts(), files); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return nil, ErrSubmissionInFlight
	}
	// the set may have changed while durations were probed
	if err := s.validator.CheckCounts(s.countsLocked(), files); err != nil {
		return nil, err
	}

	added := make([]*Candidate, 0, len(files))
	for _, f := range files {
		url, err := s.previews.Create(f)
		if err != nil {
			for _, c := range added {
				s.previews.Revoke(c.URL)
			}
			return nil, fmt.Errorf("failed to create preview for %s: %w", f.Name, err)
		}
		added = append(added, newCandidate(f, url))
	}
	s.items = append(s.items, added...)

	log.Debug().
		Int("added", len(added)).
		Int("total", len(s.items)).
		Msg("[DRAFT] Attachments added")

	return cloneAll(added), nil
}

// RemoveAt removes the candidate at index.
func (s *PreviewSet) RemoveAt(index int) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return Candidate{}, ErrSubmissionInFlight
	}
	if index < 0 || index >= len(s.items) {
		return Candidate{}, fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}
	return s.removeLocked(index), nil
}

// Remove removes the candidate with the given identity.
func (s *PreviewSet) Remove(id string) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return Candidate{}, ErrSubmissionInFlight
	}
	for i, c := range s.items {
		if c.ID == id {
			return s.removeLocked(i), nil
		}
	}
	return Candidate{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

func (s *PreviewSet) removeLocked(index int) Candidate {
	c := s.items[index]
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	if c.IsNew() {
		s.previews.Revoke(c.URL)
	}
	return *c
}

// Frozen reports whether Add and Remove are currently refused.
func (s *PreviewSet) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

func (s *PreviewSet) setFrozen(frozen bool) {
	s.mu.Lock()
	s.frozen = frozen
	s.mu.Unlock()
}

// Reset revokes every local preview URL and empties the set.
func (s *PreviewSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.items {
		if c.IsNew() {
			s.previews.Revoke(c.URL)
		}
	}
	s.items = nil
}

func (s *PreviewSet) Items() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Candidate, len(s.items))
	for i, c := range s.items {
		out[i] = *c
	}
	return out
}

func (s *PreviewSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *PreviewSet) Counts() media.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

func (s *PreviewSet) countsLocked() media.Counts {
	counts := media.Counts{Total: len(s.items)}
	for _, c := range s.items {
		if c.Kind == media.KindVideo {
			counts.Videos++
		}
	}
	return counts
}

func cloneAll(items []*Candidate) []Candidate {
	out := make([]Candidate, len(items))
	for i, c := range items {
		out[i] = *c
	}
	return out
}
