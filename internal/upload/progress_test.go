package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update_IsMonotonicPerSlot(t *testing.T) {
	// given
	progress := NewProgress()

	// when
	assert.True(t, progress.Update(0, 10))
	assert.True(t, progress.Update(0, 60))
	assert.False(t, progress.Update(0, 40))
	assert.True(t, progress.Update(1, 5))

	// then
	assert.Equal(t, map[int]int{0: 60, 1: 5}, progress.Snapshot())
}

func TestProgress_Update_ClampsValues(t *testing.T) {
	progress := NewProgress()

	progress.Update(0, 150)
	progress.Update(1, -3)

	percent, _ := progress.Get(0)
	assert.Equal(t, 100, percent)
	percent, _ = progress.Get(1)
	assert.Equal(t, 0, percent)
}

func TestProgress_Reset(t *testing.T) {
	progress := NewProgress()
	progress.Update(0, 80)

	progress.Reset()

	assert.Empty(t, progress.Snapshot())
	assert.True(t, progress.Update(0, 10), "slot restarts after reset")
}

func TestProgress_Subscribe(t *testing.T) {
	// given
	progress := NewProgress()
	var seen [][2]int
	unsubscribe := progress.Subscribe(func(slot, percent int) {
		seen = append(seen, [2]int{slot, percent})
	})

	// when
	progress.Update(0, 20)
	progress.Update(0, 10)
	unsubscribe()
	progress.Update(0, 90)

	// then
	assert.Equal(t, [][2]int{{0, 20}}, seen)
}
