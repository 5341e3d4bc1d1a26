package composer

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prappser/prappser_composer/internal/draft"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/prappser/prappser_composer/internal/submission"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const fallbackSaveMessage = "Failed to save post"

type Endpoints struct {
	sessions *Sessions
	flow     *submission.Flow
}

func NewEndpoints(sessions *Sessions, flow *submission.Flow) *Endpoints {
	return &Endpoints{
		sessions: sessions,
		flow:     flow,
	}
}

type OpenDraftRequest struct {
	PostID string `json:"postId"`
}

type UpdateDraftRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type DraftView struct {
	ID          string            `json:"id"`
	PostID      string            `json:"postId,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	LikeCount   int               `json:"likeCount"`
	Items       []draft.Candidate `json:"items"`
	Counts      media.Counts      `json:"counts"`
	Submitting  bool              `json:"submitting"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newDraftView(d *draft.Draft) DraftView {
	title, description := d.Text()
	return DraftView{
		ID:          d.ID,
		PostID:      d.PostID,
		Title:       title,
		Description: description,
		LikeCount:   d.LikeCount,
		Items:       d.Attachments.Items(),
		Counts:      d.Attachments.Counts(),
		Submitting:  d.Submitting(),
	}
}

func (e *Endpoints) OpenDraft(ctx *fasthttp.RequestCtx) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return
	}

	var req OpenDraftRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(ctx, "Invalid request body", fasthttp.StatusBadRequest)
			return
		}
	}

	sess, err := e.sessions.Open(ctx, userID, req.PostID)
	if err != nil {
		log.Error().Err(err).Str("postId", req.PostID).Msg("[DRAFT] Failed to open draft")
		switch {
		case errors.Is(err, ErrNotPostOwner):
			writeError(ctx, "Forbidden", fasthttp.StatusForbidden)
		default:
			var statusErr *remote.StatusError
			if errors.As(err, &statusErr) && statusErr.Code == fasthttp.StatusNotFound {
				writeError(ctx, "Post not found", fasthttp.StatusNotFound)
				return
			}
			writeError(ctx, "Failed to load post", fasthttp.StatusBadGateway)
		}
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, newDraftView(sess.Draft))
}

func (e *Endpoints) GetDraft(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, newDraftView(sess.Draft))
}

func (e *Endpoints) UpdateDraft(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}

	var req UpdateDraftRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, "Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	sess.Draft.SetText(req.Title, req.Description)
	writeJSON(ctx, fasthttp.StatusOK, newDraftView(sess.Draft))
}

func (e *Endpoints) DiscardDraft(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}
	if sess.Draft.Submitting() {
		writeError(ctx, submission.ErrSubmissionInFlight.Error(), fasthttp.StatusConflict)
		return
	}

	e.sessions.Discard(sess.Draft.ID)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (e *Endpoints) AddMedia(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}
	if sess.Draft.Submitting() {
		writeError(ctx, submission.ErrSubmissionInFlight.Error(), fasthttp.StatusConflict)
		return
	}

	contentType := string(ctx.Request.Header.ContentType())
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		writeError(ctx, "Content-Type must be multipart/form-data", fasthttp.StatusBadRequest)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		writeError(ctx, "Failed to parse multipart form", fasthttp.StatusBadRequest)
		return
	}

	headers := form.File["file"]
	if len(headers) == 0 {
		writeError(ctx, "No file uploaded", fasthttp.StatusBadRequest)
		return
	}

	files := make([]*media.File, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			removeSpooled(files)
			writeError(ctx, "Failed to open uploaded file", fasthttp.StatusInternalServerError)
			return
		}
		f, err := e.sessions.Spool(sess, header.Filename, header.Header.Get("Content-Type"), src)
		src.Close()
		if err != nil {
			removeSpooled(files)
			log.Error().Err(err).Msg("[DRAFT] Failed to spool upload")
			writeError(ctx, "Failed to store uploaded file", fasthttp.StatusInternalServerError)
			return
		}
		files = append(files, f)
	}

	added, err := e.sessions.AddFiles(ctx, sess, files)
	if err != nil {
		if errors.Is(err, submission.ErrSubmissionInFlight) {
			writeError(ctx, err.Error(), fasthttp.StatusConflict)
			return
		}
		if isConstraintError(err) {
			writeError(ctx, err.Error(), fasthttp.StatusUnprocessableEntity)
			return
		}
		log.Error().Err(err).Str("draftId", sess.Draft.ID).Msg("[DRAFT] Failed to add media")
		writeError(ctx, "Failed to add media", fasthttp.StatusInternalServerError)
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, added)
}

func (e *Endpoints) RemoveMedia(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}

	itemID, _ := ctx.UserValue("itemID").(string)
	if _, err := e.sessions.RemoveItem(sess, itemID); err != nil {
		if errors.Is(err, submission.ErrSubmissionInFlight) {
			writeError(ctx, err.Error(), fasthttp.StatusConflict)
			return
		}
		writeError(ctx, "Attachment not found", fasthttp.StatusNotFound)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, newDraftView(sess.Draft))
}

func (e *Endpoints) Submit(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}

	result, err := e.flow.Submit(ctx, submission.Request{
		Draft:     sess.Draft,
		CreatorID: sess.OwnerID,
		Progress:  sess.Progress,
	})
	if err != nil {
		var persistErr *submission.MetadataPersistError
		switch {
		case errors.Is(err, submission.ErrSubmissionInFlight):
			writeError(ctx, err.Error(), fasthttp.StatusConflict)
		case errors.Is(err, submission.ErrValidation):
			writeError(ctx, strings.TrimPrefix(err.Error(), submission.ErrValidation.Error()+": "), fasthttp.StatusUnprocessableEntity)
		case errors.As(err, &persistErr):
			writeError(ctx, saveFailureMessage(persistErr), fasthttp.StatusBadGateway)
		default:
			log.Error().Err(err).Str("draftId", sess.Draft.ID).Msg("[SUBMIT] Unexpected submission error")
			writeError(ctx, fallbackSaveMessage, fasthttp.StatusInternalServerError)
		}
		return
	}

	e.sessions.Discard(sess.Draft.ID)
	writeJSON(ctx, fasthttp.StatusOK, result)
}

func (e *Endpoints) Progress(ctx *fasthttp.RequestCtx) {
	sess, ok := e.session(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, sess.Progress.Snapshot())
}

func (e *Endpoints) session(ctx *fasthttp.RequestCtx) (*Session, bool) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return nil, false
	}

	draftID, _ := ctx.UserValue("draftID").(string)
	if draftID == "" {
		writeError(ctx, "Draft ID is required", fasthttp.StatusBadRequest)
		return nil, false
	}

	sess, err := e.sessions.Get(draftID, userID)
	if err != nil {
		writeError(ctx, "Draft not found", fasthttp.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func userIDFrom(ctx *fasthttp.RequestCtx) (string, bool) {
	userID, ok := ctx.UserValue("userID").(string)
	if !ok || userID == "" {
		writeError(ctx, "Unauthorized", fasthttp.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func isConstraintError(err error) bool {
	return errors.Is(err, media.ErrInvalidFileType) ||
		errors.Is(err, media.ErrTooManyFiles) ||
		errors.Is(err, media.ErrTooManyVideos) ||
		errors.Is(err, media.ErrVideoTooLong) ||
		errors.Is(err, media.ErrDurationProbe)
}

func saveFailureMessage(err *submission.MetadataPersistError) string {
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return fallbackSaveMessage
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, message string, status int) {
	writeJSON(ctx, status, ErrorResponse{Error: message})
}
