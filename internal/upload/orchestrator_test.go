package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/prappser/prappser_composer/internal/draft"
	"github.com/prappser/prappser_composer/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, f *media.File, onProgress func(percent int)) (string, error) {
	args := m.Called(ctx, f, onProgress)
	if onProgress != nil && args.Error(1) == nil {
		onProgress(50)
		onProgress(100)
	}
	return args.String(0), args.Error(1)
}

func newCandidate(name, contentType string) draft.Candidate {
	f := &media.File{Name: name, ContentType: contentType, Size: 10}
	kind, _ := f.Kind()
	return draft.Candidate{ID: name, URL: "local://" + name, Kind: kind, Origin: draft.OriginNew, File: f}
}

func TestOrchestrator_Run_ShouldContinueAfterUploadFailure(t *testing.T) {
	// given
	a, b, c := newCandidate("a.jpg", "image/jpeg"), newCandidate("b.jpg", "image/jpeg"), newCandidate("c.mp4", "video/mp4")
	uploader := new(MockUploader)
	uploader.On("Upload", mock.Anything, a.File, mock.Anything).Return("https://cdn.test/a.jpg", nil)
	uploader.On("Upload", mock.Anything, b.File, mock.Anything).Return("", errors.New("network down"))
	uploader.On("Upload", mock.Anything, c.File, mock.Anything).Return("https://cdn.test/c.mp4", nil)

	var registered []string
	register := func(ctx context.Context, cand draft.Candidate, url string) error {
		registered = append(registered, url)
		return nil
	}
	progress := NewProgress()

	// when
	outcomes := NewOrchestrator(uploader, nil).Run(context.Background(), []draft.Candidate{a, b, c}, progress, register)

	// then
	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].Failed())
	assert.True(t, outcomes[1].Failed())
	assert.Equal(t, StageUpload, outcomes[1].Stage)
	assert.False(t, outcomes[2].Failed())
	assert.Equal(t, []string{"https://cdn.test/a.jpg", "https://cdn.test/c.mp4"}, registered)
	assert.Equal(t, map[int]int{0: 100, 1: 0, 2: 100}, progress.Snapshot())
	uploader.AssertExpectations(t)
}

func TestOrchestrator_Run_ShouldRecordRegisterFailure(t *testing.T) {
	// given
	a := newCandidate("a.jpg", "image/jpeg")
	uploader := new(MockUploader)
	uploader.On("Upload", mock.Anything, a.File, mock.Anything).Return("https://cdn.test/a.jpg", nil)
	register := func(ctx context.Context, cand draft.Candidate, url string) error {
		return errors.New("media service unavailable")
	}

	// when
	outcomes := NewOrchestrator(uploader, nil).Run(context.Background(), []draft.Candidate{a}, nil, register)

	// then
	require.Len(t, outcomes, 1)
	assert.Equal(t, StageRegister, outcomes[0].Stage)
	assert.Equal(t, "https://cdn.test/a.jpg", outcomes[0].URL)
}

func TestOrchestrator_Run_ShouldRegisterBeforeNextUpload(t *testing.T) {
	// given
	a, b := newCandidate("a.jpg", "image/jpeg"), newCandidate("b.jpg", "image/jpeg")
	var events []string
	uploader := new(MockUploader)
	uploader.On("Upload", mock.Anything, a.File, mock.Anything).
		Run(func(mock.Arguments) { events = append(events, "upload a.jpg") }).
		Return("https://cdn.test/a.jpg", nil)
	uploader.On("Upload", mock.Anything, b.File, mock.Anything).
		Run(func(mock.Arguments) { events = append(events, "upload b.jpg") }).
		Return("https://cdn.test/b.jpg", nil)
	register := func(ctx context.Context, cand draft.Candidate, url string) error {
		events = append(events, "register "+cand.File.Name)
		return nil
	}

	// when
	NewOrchestrator(uploader, nil).Run(context.Background(), []draft.Candidate{a, b}, nil, register)

	// then
	assert.Equal(t, []string{"upload a.jpg", "register a.jpg", "upload b.jpg", "register b.jpg"}, events)
}

func TestOrchestrator_Run_ShouldStopOnCancelledContext(t *testing.T) {
	// given
	a, b := newCandidate("a.jpg", "image/jpeg"), newCandidate("b.jpg", "image/jpeg")
	ctx, cancel := context.WithCancel(context.Background())
	uploader := new(MockUploader)
	uploader.On("Upload", mock.Anything, a.File, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("https://cdn.test/a.jpg", nil)

	// when
	outcomes := NewOrchestrator(uploader, nil).Run(ctx, []draft.Candidate{a, b}, nil, nil)

	// then
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Failed())
	assert.ErrorIs(t, outcomes[1].Err, context.Canceled)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, b.File, mock.Anything)
}

func TestOrchestrator_Run_ShouldFailCandidateWithoutFile(t *testing.T) {
	existing := draft.Candidate{ID: "x", RemoteID: "m1", Origin: draft.OriginExisting}

	outcomes := NewOrchestrator(new(MockUploader), nil).Run(context.Background(), []draft.Candidate{existing}, nil, nil)

	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, ErrNoLocalFile)
}
