package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	durations map[string]time.Duration
	errs      map[string]error
	calls     []string
}

func (p *fakeProber) Probe(ctx context.Context, f *File) (time.Duration, error) {
	p.calls = append(p.calls, f.Name)
	if err := p.errs[f.Name]; err != nil {
		return 0, err
	}
	return p.durations[f.Name], nil
}

func image(name string) *File {
	return &File{Name: name, ContentType: "image/jpeg", Size: 1024}
}

func video(name string) *File {
	return &File{Name: name, ContentType: "video/mp4", Size: 4096}
}

func TestValidator_Validate_ShouldAcceptImagesAndShortVideo(t *testing.T) {
	// given
	prober := &fakeProber{durations: map[string]time.Duration{"clip.mp4": 22 * time.Second}}
	validator := NewValidator(DefaultLimits(), prober)

	// when
	err := validator.Validate(context.Background(), Counts{}, []*File{image("a.jpg"), image("b.jpg"), video("clip.mp4")})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"clip.mp4"}, prober.calls)
}

func TestValidator_Validate_ShouldRejectNonMediaFirst(t *testing.T) {
	// given
	prober := &fakeProber{}
	validator := NewValidator(DefaultLimits(), prober)
	files := []*File{image("a.jpg"), {Name: "notes.txt", ContentType: "text/plain"}, image("b.jpg"), image("c.jpg")}

	// when
	err := validator.Validate(context.Background(), Counts{Total: 2}, files)

	// then
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Contains(t, err.Error(), "notes.txt")
	assert.Empty(t, prober.calls)
}

func TestValidator_Validate_ShouldRejectTooManyFiles(t *testing.T) {
	validator := NewValidator(DefaultLimits(), &fakeProber{})

	err := validator.Validate(context.Background(), Counts{Total: 3, Videos: 1}, []*File{image("d.jpg")})

	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestValidator_Validate_ShouldRejectTooManyVideos(t *testing.T) {
	tests := []struct {
		name    string
		current Counts
		files   []*File
	}{
		{name: "two videos in one batch", current: Counts{}, files: []*File{video("a.mp4"), video("b.mp4")}},
		{name: "second video after first", current: Counts{Total: 1, Videos: 1}, files: []*File{video("b.mp4")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &fakeProber{}
			validator := NewValidator(DefaultLimits(), prober)

			err := validator.Validate(context.Background(), tt.current, tt.files)

			assert.ErrorIs(t, err, ErrTooManyVideos)
			assert.Empty(t, prober.calls, "durations must not be probed when counts fail")
		})
	}
}

func TestValidator_Validate_ShouldCheckCountBeforeVideoCount(t *testing.T) {
	validator := NewValidator(DefaultLimits(), &fakeProber{})

	err := validator.Validate(context.Background(), Counts{Total: 2, Videos: 1}, []*File{video("a.mp4"), video("b.mp4")})

	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestValidator_Validate_ShouldRejectLongVideoNamingFile(t *testing.T) {
	// given
	prober := &fakeProber{durations: map[string]time.Duration{"long.mp4": 45 * time.Second}}
	validator := NewValidator(DefaultLimits(), prober)

	// when
	err := validator.Validate(context.Background(), Counts{}, []*File{video("long.mp4")})

	// then
	assert.ErrorIs(t, err, ErrVideoTooLong)
	assert.Contains(t, err.Error(), "long.mp4")
}

func TestValidator_Validate_ShouldAcceptVideoOfExactlyMaxDuration(t *testing.T) {
	prober := &fakeProber{durations: map[string]time.Duration{"edge.mp4": 30 * time.Second}}
	validator := NewValidator(DefaultLimits(), prober)

	err := validator.Validate(context.Background(), Counts{}, []*File{video("edge.mp4")})

	assert.NoError(t, err)
}

func TestValidator_Validate_ShouldRejectWhenProbeFails(t *testing.T) {
	prober := &fakeProber{errs: map[string]error{"broken.mp4": errors.New("moov atom not found")}}
	validator := NewValidator(DefaultLimits(), prober)

	err := validator.Validate(context.Background(), Counts{}, []*File{video("broken.mp4")})

	assert.ErrorIs(t, err, ErrDurationProbe)
	assert.Contains(t, err.Error(), "broken.mp4")
}

func TestValidator_Validate_ShouldReturnContextErrorWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prober := &fakeProber{errs: map[string]error{"clip.mp4": context.Canceled}}
	validator := NewValidator(DefaultLimits(), prober)

	err := validator.Validate(ctx, Counts{}, []*File{video("clip.mp4")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrDurationProbe)
}

func TestNewValidator_ShouldFillMissingLimits(t *testing.T) {
	validator := NewValidator(Limits{MaxFiles: 5}, nil)

	limits := validator.Limits()

	assert.Equal(t, 5, limits.MaxFiles)
	assert.Equal(t, DefaultMaxVideos, limits.MaxVideos)
	assert.Equal(t, DefaultMaxVideoDuration, limits.MaxVideoDuration)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		contentType string
		kind        Kind
		ok          bool
	}{
		{"image/png", KindImage, true},
		{"video/webm", KindVideo, true},
		{"audio/mpeg", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		kind, ok := KindOf(tt.contentType)
		assert.Equal(t, tt.kind, kind, tt.contentType)
		assert.Equal(t, tt.ok, ok, tt.contentType)
	}
}
