package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu      sync.Mutex
	next    int
	active  map[string]bool
	created []string
	revoked []string
	failOn  string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{active: map[string]bool{}}
}

func (r *fakeRegistry) Create(f *media.File) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.Name == r.failOn {
		return "", errors.New("preview unavailable")
	}
	r.next++
	url := fmt.Sprintf("local://preview/%d", r.next)
	r.active[url] = true
	r.created = append(r.created, url)
	return url, nil
}

func (r *fakeRegistry) Revoke(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active[url] {
		return false
	}
	delete(r.active, url)
	r.revoked = append(r.revoked, url)
	return true
}

func (r *fakeRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

type fixedProber struct {
	durations map[string]time.Duration
}

func (p fixedProber) Probe(ctx context.Context, f *media.File) (time.Duration, error) {
	d, ok := p.durations[f.Name]
	if !ok {
		return 0, errors.New("no duration")
	}
	return d, nil
}

func img(name string) *media.File {
	return &media.File{Name: name, ContentType: "image/jpeg", Size: 1024}
}

func vid(name string) *media.File {
	return &media.File{Name: name, ContentType: "video/mp4", Size: 4096}
}

func newTestSet(registry *fakeRegistry, existing ...remote.Media) *PreviewSet {
	prober := fixedProber{durations: map[string]time.Duration{
		"short.mp4":  10 * time.Second,
		"edge.mp4":   30 * time.Second,
		"second.mp4": 5 * time.Second,
		"long.mp4":   31 * time.Second,
	}}
	return NewPreviewSet(media.NewValidator(media.DefaultLimits(), prober), registry, existing...)
}

func TestPreviewSet_Add_ShouldAppendNewCandidates(t *testing.T) {
	// given
	registry := newFakeRegistry()
	set := newTestSet(registry)

	// when
	added, err := set.Add(context.Background(), []*media.File{img("a.jpg"), vid("short.mp4")})

	// then
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, media.KindImage, added[0].Kind)
	assert.Equal(t, media.KindVideo, added[1].Kind)
	assert.True(t, added[0].IsNew())
	assert.NotEqual(t, added[0].ID, added[1].ID)
	assert.Equal(t, media.Counts{Total: 2, Videos: 1}, set.Counts())
	assert.Equal(t, 2, registry.Active())
}

func TestPreviewSet_Add_ShouldLeaveSetUnchangedOnRejection(t *testing.T) {
	tests := []struct {
		name    string
		seed    []*media.File
		batch   []*media.File
		wantErr error
	}{
		{
			name:    "non-media file",
			batch:   []*media.File{img("a.jpg"), {Name: "doc.pdf", ContentType: "application/pdf"}},
			wantErr: media.ErrInvalidFileType,
		},
		{
			name:    "too many files",
			seed:    []*media.File{img("a.jpg"), img("b.jpg")},
			batch:   []*media.File{img("c.jpg"), img("d.jpg")},
			wantErr: media.ErrTooManyFiles,
		},
		{
			name:    "second video",
			seed:    []*media.File{vid("short.mp4")},
			batch:   []*media.File{vid("second.mp4")},
			wantErr: media.ErrTooManyVideos,
		},
		{
			name:    "video too long",
			batch:   []*media.File{img("a.jpg"), vid("long.mp4")},
			wantErr: media.ErrVideoTooLong,
		},
		{
			name:    "unprobeable video",
			batch:   []*media.File{vid("mystery.mp4")},
			wantErr: media.ErrDurationProbe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			registry := newFakeRegistry()
			set := newTestSet(registry)
			if len(tt.seed) > 0 {
				_, err := set.Add(context.Background(), tt.seed)
				require.NoError(t, err)
			}
			before := set.Items()

			// when
			added, err := set.Add(context.Background(), tt.batch)

			// then
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, added)
			assert.Equal(t, before, set.Items())
			assert.Equal(t, len(before), registry.Active())
		})
	}
}

func TestPreviewSet_Add_ShouldAcceptVideoAtExactLimit(t *testing.T) {
	set := newTestSet(newFakeRegistry())

	_, err := set.Add(context.Background(), []*media.File{vid("edge.mp4")})

	assert.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestPreviewSet_Add_ShouldRevokeCreatedPreviewsWhenPreviewFails(t *testing.T) {
	// given
	registry := newFakeRegistry()
	registry.failOn = "b.jpg"
	set := newTestSet(registry)

	// when
	_, err := set.Add(context.Background(), []*media.File{img("a.jpg"), img("b.jpg")})

	// then
	assert.Error(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, registry.Active())
	assert.Equal(t, registry.created, registry.revoked)
}

func TestPreviewSet_RemoveAt_ShouldRevokeOnlyNewItems(t *testing.T) {
	// given
	registry := newFakeRegistry()
	set := newTestSet(registry, remote.Media{ID: "m1", Type: remote.MediaTypeImage, URL: "https://cdn.test/m1.jpg"})
	_, err := set.Add(context.Background(), []*media.File{img("a.jpg")})
	require.NoError(t, err)

	// when
	existing, err := set.RemoveAt(0)
	require.NoError(t, err)

	// then
	assert.Equal(t, "m1", existing.RemoteID)
	assert.Empty(t, registry.revoked)

	added, err := set.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, []string{added.URL}, registry.revoked)
	assert.Equal(t, 0, set.Len())
}

func TestPreviewSet_RemoveAt_OutOfRange(t *testing.T) {
	set := newTestSet(newFakeRegistry())

	_, err := set.RemoveAt(0)

	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPreviewSet_Remove_ByIdentity(t *testing.T) {
	// given
	registry := newFakeRegistry()
	set := newTestSet(registry)
	added, err := set.Add(context.Background(), []*media.File{img("a.jpg"), img("b.jpg"), img("c.jpg")})
	require.NoError(t, err)

	// when
	removed, err := set.Remove(added[1].ID)

	// then
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", removed.File.Name)
	items := set.Items()
	require.Len(t, items, 2)
	assert.Equal(t, added[0].ID, items[0].ID)
	assert.Equal(t, added[2].ID, items[1].ID)

	_, err = set.Remove(added[1].ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPreviewSet_Reset_ShouldRevokeEveryNewURLOnce(t *testing.T) {
	// given
	registry := newFakeRegistry()
	set := newTestSet(registry, remote.Media{ID: "m1", Type: remote.MediaTypeVideo, URL: "https://cdn.test/m1.mp4"})
	_, err := set.Add(context.Background(), []*media.File{img("a.jpg"), img("b.jpg")})
	require.NoError(t, err)

	// when
	set.Reset()
	set.Reset()

	// then
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, registry.Active())
	assert.ElementsMatch(t, registry.created, registry.revoked)
}

func TestPreviewSet_SeededVideoCountsTowardsLimit(t *testing.T) {
	set := newTestSet(newFakeRegistry(), remote.Media{ID: "m1", Type: remote.MediaTypeVideo, URL: "https://cdn.test/m1.mp4"})

	_, err := set.Add(context.Background(), []*media.File{vid("short.mp4")})

	assert.ErrorIs(t, err, media.ErrTooManyVideos)
}

func TestPreviewSet_RandomOperationsKeepInvariants(t *testing.T) {
	// given
	rnd := rand.New(rand.NewSource(42))
	registry := newFakeRegistry()
	original := []remote.Media{
		{ID: "m1", Type: remote.MediaTypeImage, URL: "https://cdn.test/m1.jpg"},
		{ID: "m2", Type: remote.MediaTypeVideo, URL: "https://cdn.test/m2.mp4"},
	}
	set := newTestSet(registry, original...)
	pool := []*media.File{img("a.jpg"), img("b.jpg"), vid("short.mp4"), vid("long.mp4"), {Name: "x.txt", ContentType: "text/plain"}}

	for i := 0; i < 500; i++ {
		// when
		if rnd.Intn(2) == 0 || set.Len() == 0 {
			n := rnd.Intn(3) + 1
			batch := make([]*media.File, n)
			for j := range batch {
				batch[j] = pool[rnd.Intn(len(pool))]
			}
			_, _ = set.Add(context.Background(), batch)
		} else {
			_, err := set.RemoveAt(rnd.Intn(set.Len()))
			require.NoError(t, err)
		}

		// then
		items := set.Items()
		counts := set.Counts()
		assert.LessOrEqual(t, counts.Total, 3)
		assert.LessOrEqual(t, counts.Videos, 1)

		newCount := 0
		for _, c := range items {
			if c.IsNew() {
				newCount++
			}
		}
		assert.Equal(t, newCount, registry.Active())

		plan := Reconcile(original, items)
		kept := 0
		for _, c := range items {
			if !c.IsNew() {
				kept++
			}
		}
		assert.Equal(t, len(original), kept+len(plan.DeleteIDs))
		assert.Len(t, plan.Uploads, newCount)
	}
}
