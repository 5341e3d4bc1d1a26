package draft

import (
	"context"
	"testing"

	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteMedia(ids ...string) []remote.Media {
	out := make([]remote.Media, len(ids))
	for i, id := range ids {
		out[i] = remote.Media{ID: id, Type: remote.MediaTypeImage, URL: "https://cdn.test/" + id + ".jpg"}
	}
	return out
}

func TestReconcile_NoChanges(t *testing.T) {
	// given
	original := remoteMedia("m1", "m2")
	set := newTestSet(newFakeRegistry(), original...)

	// when
	plan := Reconcile(original, set.Items())

	// then
	assert.Empty(t, plan.DeleteIDs)
	assert.Empty(t, plan.Uploads)
}

func TestReconcile_RemoveOneAddOne(t *testing.T) {
	// given
	original := remoteMedia("m1", "m2")
	set := newTestSet(newFakeRegistry(), original...)
	_, err := set.RemoveAt(0)
	require.NoError(t, err)
	_, err = set.Add(context.Background(), []*media.File{img("new.jpg")})
	require.NoError(t, err)

	// when
	plan := Reconcile(original, set.Items())

	// then
	assert.Equal(t, []string{"m1"}, plan.DeleteIDs)
	require.Len(t, plan.Uploads, 1)
	assert.Equal(t, "new.jpg", plan.Uploads[0].File.Name)
}

func TestReconcile_RemoveAll(t *testing.T) {
	original := remoteMedia("m1", "m2", "m3")

	plan := Reconcile(original, nil)

	assert.Equal(t, []string{"m1", "m2", "m3"}, plan.DeleteIDs)
	assert.Empty(t, plan.Uploads)
}

func TestReconcile_EmptySnapshotUploadsEverything(t *testing.T) {
	// given
	set := newTestSet(newFakeRegistry())
	_, err := set.Add(context.Background(), []*media.File{img("a.jpg"), img("b.jpg")})
	require.NoError(t, err)

	// when
	plan := Reconcile(nil, set.Items())

	// then
	assert.Empty(t, plan.DeleteIDs)
	require.Len(t, plan.Uploads, 2)
	assert.Equal(t, "a.jpg", plan.Uploads[0].File.Name)
	assert.Equal(t, "b.jpg", plan.Uploads[1].File.Name)
}

func TestReconcile_DuplicateSnapshotIDsDeletedOnce(t *testing.T) {
	original := append(remoteMedia("m1", "m2"), remoteMedia("m1")...)

	plan := Reconcile(original, nil)

	assert.Equal(t, []string{"m1", "m2"}, plan.DeleteIDs)
}

func TestReconcile_DoesNotModifyInputs(t *testing.T) {
	// given
	original := remoteMedia("m1", "m2")
	set := newTestSet(newFakeRegistry(), original...)
	_, err := set.RemoveAt(1)
	require.NoError(t, err)
	items := set.Items()
	snapshot := append([]remote.Media(nil), original...)

	// when
	first := Reconcile(original, items)
	second := Reconcile(original, items)

	// then
	assert.Equal(t, snapshot, original)
	assert.Equal(t, first, second)
}
