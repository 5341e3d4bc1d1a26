package composer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prappser/prappser_composer/internal/draft"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/prappser/prappser_composer/internal/upload"
	"github.com/rs/zerolog/log"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrNotPostOwner  = errors.New("post belongs to another user")
)

// ProgressNotifier forwards upload progress to connected UI clients.
type ProgressNotifier interface {
	PublishProgress(draftID string, slot, percent int)
}

// Session is one open draft together with its spool directory and progress map.
type Session struct {
	Draft    *draft.Draft
	OwnerID  string
	Progress *upload.Progress

	spoolDir    string
	unsubscribe func()

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Sessions keeps open drafts in memory, keyed by draft id.
type Sessions struct {
	posts     remote.PostService
	validator *media.Validator
	previews  draft.PreviewRegistry
	notifier  ProgressNotifier
	spoolRoot string
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessions(posts remote.PostService, validator *media.Validator, previews draft.PreviewRegistry, notifier ProgressNotifier, spoolRoot string) (*Sessions, error) {
	if spoolRoot == "" {
		spoolRoot = filepath.Join(os.TempDir(), "prappser-composer")
	}
	if err := os.MkdirAll(spoolRoot, 0700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	return &Sessions{
		posts:     posts,
		validator: validator,
		previews:  previews,
		notifier:  notifier,
		spoolRoot: spoolRoot,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}, nil
}

// Open starts a draft for ownerID. A non-empty postID loads the existing post
// and snapshots its media.
func (s *Sessions) Open(ctx context.Context, ownerID, postID string) (*Session, error) {
	var d *draft.Draft
	if postID == "" {
		d = draft.New(s.validator, s.previews)
	} else {
		post, err := s.posts.GetPost(ctx, postID)
		if err != nil {
			return nil, fmt.Errorf("failed to load post %s: %w", postID, err)
		}
		if post.CreatedBy != "" && post.CreatedBy != ownerID {
			return nil, fmt.Errorf("%w: %s", ErrNotPostOwner, postID)
		}
		d = draft.ForPost(post, s.validator, s.previews)
	}

	spoolDir := filepath.Join(s.spoolRoot, d.ID)
	if err := os.MkdirAll(spoolDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create draft spool: %w", err)
	}

	sess := &Session{
		Draft:    d,
		OwnerID:  ownerID,
		Progress: upload.NewProgress(),
		spoolDir: spoolDir,
		lastSeen: s.now(),
	}
	if s.notifier != nil {
		draftID := d.ID
		sess.unsubscribe = sess.Progress.Subscribe(func(slot, percent int) {
			s.notifier.PublishProgress(draftID, slot, percent)
		})
	}

	s.mu.Lock()
	s.sessions[d.ID] = sess
	s.mu.Unlock()

	log.Info().
		Str("draftId", d.ID).
		Str("postId", postID).
		Str("ownerId", ownerID).
		Msg("[DRAFT] Draft opened")

	return sess, nil
}

// Get returns the caller's session. Drafts owned by someone else are reported
// as missing.
func (s *Sessions) Get(id, ownerID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	sess.touch(s.now())
	return sess, nil
}

// CanWatch reports whether userID owns the open draft. Watching does not keep
// a draft alive.
func (s *Sessions) CanWatch(draftID, userID string) bool {
	s.mu.RLock()
	sess, ok := s.sessions[draftID]
	s.mu.RUnlock()
	return ok && sess.OwnerID == userID
}

// Discard drops the draft, revoking its previews and removing spooled files.
func (s *Sessions) Discard(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return false
	}

	sess.Draft.Attachments.Reset()
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	if err := os.RemoveAll(sess.spoolDir); err != nil {
		log.Warn().Err(err).Str("draftId", id).Msg("[DRAFT] Failed to remove spool directory")
	}

	log.Debug().Str("draftId", id).Msg("[DRAFT] Draft discarded")
	return true
}

// Spool copies an incoming file into the session's spool directory.
func (s *Sessions) Spool(sess *Session, name, contentType string, r io.Reader) (*media.File, error) {
	path := filepath.Join(sess.spoolDir, uuid.NewString()+filepath.Ext(name))

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to spool %s: %w", name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to spool %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to spool %s: %w", name, err)
	}

	f, err := media.NewFile(path, name, contentType)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return f, nil
}

// AddFiles adds spooled files to the draft. Rejected files are removed from the spool.
func (s *Sessions) AddFiles(ctx context.Context, sess *Session, files []*media.File) ([]draft.Candidate, error) {
	added, err := sess.Draft.Attachments.Add(ctx, files)
	if err != nil {
		removeSpooled(files)
		return nil, err
	}
	return added, nil
}

// RemoveItem removes an attachment and its spooled file, if any.
func (s *Sessions) RemoveItem(sess *Session, itemID string) (draft.Candidate, error) {
	removed, err := sess.Draft.Attachments.Remove(itemID)
	if err != nil {
		return draft.Candidate{}, err
	}
	if removed.File != nil {
		removeSpooled([]*media.File{removed.File})
	}
	return removed, nil
}

// SweepIdle discards drafts not touched within ttl. Drafts with a submission in
// flight are kept.
func (s *Sessions) SweepIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.RLock()
	var stale []string
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) && !sess.Draft.Submitting() {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	discarded := 0
	for _, id := range stale {
		if s.Discard(id) {
			discarded++
		}
	}
	return discarded
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// DiscardAll is used on shutdown.
func (s *Sessions) DiscardAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Discard(id)
	}
}

func removeSpooled(files []*media.File) {
	for _, f := range files {
		if f == nil || f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", f.Name).Msg("[DRAFT] Failed to remove spooled file")
		}
	}
}
