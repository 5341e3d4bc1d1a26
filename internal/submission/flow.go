package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/prappser/prappser_composer/internal/draft"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/prappser/prappser_composer/internal/upload"
	"github.com/rs/zerolog/log"
)

type StateFunc func(draftID string, state State)

type Options struct {
	Clock   func() time.Time
	OnState StateFunc
}

// Flow persists a draft: post metadata first, then removed media deletes, then
// new media uploads with immediate registration.
type Flow struct {
	posts        remote.PostService
	media        remote.MediaService
	orchestrator *upload.Orchestrator
	now          func() time.Time
	onState      StateFunc
}

func NewFlow(posts remote.PostService, mediaService remote.MediaService, orchestrator *upload.Orchestrator, opts Options) *Flow {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Flow{
		posts:        posts,
		media:        mediaService,
		orchestrator: orchestrator,
		now:          opts.Clock,
		onState:      opts.OnState,
	}
}

type Request struct {
	Draft     *draft.Draft
	CreatorID string
	// Progress receives per-slot upload percentages. It is cleared when the
	// submission starts and again when it ends.
	Progress *upload.Progress
	OnState  StateFunc
}

type Result struct {
	PostID     string         `json:"postId"`
	Created    bool           `json:"created"`
	State      State          `json:"state"`
	Warnings   []Warning      `json:"warnings"`
	Registered []remote.Media `json:"registered"`
	Deleted    []string       `json:"deleted"`
}

func (f *Flow) Submit(ctx context.Context, req Request) (*Result, error) {
	d := req.Draft
	if !d.BeginSubmission() {
		return nil, ErrSubmissionInFlight
	}
	defer d.EndSubmission()

	progress := req.Progress
	if progress == nil {
		progress = upload.NewProgress()
	}
	progress.Reset()
	defer progress.Reset()

	transition := func(state State) {
		log.Debug().Str("draftId", d.ID).Str("state", state.String()).Msg("[SUBMIT] State changed")
		if f.onState != nil {
			f.onState(d.ID, state)
		}
		if req.OnState != nil {
			req.OnState(d.ID, state)
		}
	}

	transition(StateValidating)
	if err := d.Validate(); err != nil {
		transition(StateIdle)
		return nil, err
	}

	transition(StatePersistingMetadata)
	postID, err := f.persistMetadata(ctx, d, req.CreatorID)
	if err != nil {
		transition(StateFailed)
		log.Error().Err(err).Str("draftId", d.ID).Msg("[SUBMIT] Failed to save post")
		return nil, err
	}

	result := &Result{PostID: postID, Created: d.PostID == ""}
	items := d.Attachments.Items()

	var plan draft.Plan
	if d.Editing() {
		transition(StateReconcilingMedia)
		plan = draft.Reconcile(d.Original, items)
	} else {
		plan = draft.Reconcile(nil, items)
	}

	if len(plan.DeleteIDs) > 0 {
		transition(StateDeletingRemoved)
		for _, id := range plan.DeleteIDs {
			if err := f.media.DeleteMedia(ctx, id); err != nil {
				log.Warn().Err(err).Str("mediaId", id).Msg("[SUBMIT] Failed to delete media")
				result.Warnings = append(result.Warnings, newWarning(WarningMediaDelete, id, fmt.Sprintf("Failed to delete media %s", id), err))
				continue
			}
			result.Deleted = append(result.Deleted, id)
		}
	}

	if len(plan.Uploads) > 0 {
		transition(StateUploadingNew)
		last := plan.Uploads[len(plan.Uploads)-1].ID

		register := func(ctx context.Context, c draft.Candidate, url string) error {
			transition(StateRegisteringMedia)
			if c.ID != last {
				defer transition(StateUploadingNew)
			}

			created, err := f.media.CreateMedia(ctx, remote.NewMedia{
				Type:         remote.MediaType(c.Kind),
				URL:          url,
				DeleteStatus: false,
				RelatedPost:  postID,
			})
			if err != nil {
				return err
			}
			result.Registered = append(result.Registered, *created)
			return nil
		}

		outcomes := f.orchestrator.Run(ctx, plan.Uploads, progress, register)
		for _, o := range outcomes {
			switch {
			case !o.Failed():
			case o.Stage == upload.StageRegister:
				result.Warnings = append(result.Warnings, newWarning(WarningMediaRegister, o.Candidate.Label(),
					fmt.Sprintf("Failed to register media %d (%s)", o.Slot+1, o.Candidate.Label()), o.Err))
			default:
				result.Warnings = append(result.Warnings, newWarning(WarningUpload, o.Candidate.Label(),
					fmt.Sprintf("Failed to upload media %d (%s)", o.Slot+1, o.Candidate.Label()), o.Err))
			}
		}
	}

	d.Attachments.Reset()
	transition(StateDone)
	result.State = StateDone

	log.Info().
		Str("draftId", d.ID).
		Str("postId", postID).
		Bool("created", result.Created).
		Int("registered", len(result.Registered)).
		Int("deleted", len(result.Deleted)).
		Int("warnings", len(result.Warnings)).
		Msg("[SUBMIT] Post saved")

	return result, nil
}

func (f *Flow) persistMetadata(ctx context.Context, d *draft.Draft, creatorID string) (string, error) {
	title, description := d.Text()
	fields := remote.PostFields{
		Title:        title,
		Description:  description,
		CreatedAt:    f.now(),
		LikeCount:    d.LikeCount,
		DeleteStatus: false,
		CreatedBy:    creatorID,
	}

	var (
		post *remote.Post
		err  error
	)
	if d.PostID == "" {
		post, err = f.posts.CreatePost(ctx, fields)
	} else {
		post, err = f.posts.UpdatePost(ctx, d.PostID, fields)
	}
	if err != nil {
		return "", &MetadataPersistError{PostID: d.PostID, Err: err}
	}

	postID := d.PostID
	if post != nil && post.ID != "" {
		postID = post.ID
	}
	if postID == "" {
		return "", &MetadataPersistError{Err: ErrMissingPostID}
	}
	return postID, nil
}
