package warmup

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadinessState_Initial(t *testing.T) {
	t.Parallel()
	state := NewReadinessState()

	assert.False(t, state.IsReady())
	status := state.Status()
	assert.False(t, status.Ready)
	assert.Equal(t, "model loading", status.Reason)
	assert.Zero(t, status.Attempts)
}

func TestReadinessState_FailedThenReady(t *testing.T) {
	t.Parallel()
	state := NewReadinessState()

	state.MarkFailed(errors.New("bundle not found"))
	status := state.Status()
	assert.False(t, status.Ready)
	assert.Equal(t, "model load failed: bundle not found", status.Reason)
	assert.Equal(t, 1, status.Attempts)

	state.MarkReady("2026.10.1")
	status = state.Status()
	assert.True(t, status.Ready)
	assert.Empty(t, status.Reason)
	assert.Equal(t, "2026.10.1", status.ModelVersion)
	assert.NotEmpty(t, status.ReadySince)
	assert.Equal(t, 2, status.Attempts)
}

func TestReadinessState_ReloadFailureKeepsReady(t *testing.T) {
	t.Parallel()
	state := NewReadinessState()
	state.MarkReady("v1")
	since := state.Status().ReadySince

	state.MarkFailed(errors.New("etag changed but body invalid"))
	status := state.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "last reload failed: etag changed but body invalid", status.Reason)
	assert.Equal(t, "v1", status.ModelVersion)

	state.MarkReady("v2")
	status = state.Status()
	assert.Equal(t, since, status.ReadySince)
	assert.Equal(t, "v2", status.ModelVersion)
	assert.Empty(t, status.Reason)
}

func TestReadinessState_Concurrent(t *testing.T) {
	t.Parallel()
	state := NewReadinessState()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			if i%2 == 0 {
				state.MarkReady("v")
			} else {
				state.MarkFailed(nil)
			}
			_ = state.Status()
			_ = state.IsReady()
		})
	}
	wg.Wait()
	assert.True(t, state.IsReady())
	assert.Equal(t, 50, state.Status().Attempts)
}
