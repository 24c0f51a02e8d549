package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearmind/redsheet/client"
	"github.com/clearmind/redsheet/engagement"
)

func TestOptimisticCommitKeepsPatch(t *testing.T) {
	target := engagement.Target{ID: "t-1", Status: engagement.TargetScanning}

	err := client.Optimistic(t.Context(), &target,
		func(s *engagement.Target) { s.Status = engagement.TargetOwned },
		func(ctx context.Context) error { return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, engagement.TargetOwned, target.Status)
}

func TestOptimisticFailureRollsBack(t *testing.T) {
	target := engagement.Target{ID: "t-1", Status: engagement.TargetScanning, Notes: "initial"}
	boom := errors.New("server said no")

	err := client.Optimistic(t.Context(), &target,
		func(s *engagement.Target) {
			s.Status = engagement.TargetOwned
			s.Notes = "changed"
		},
		func(ctx context.Context) error { return boom },
	)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, engagement.TargetScanning, target.Status)
	assert.Equal(t, "initial", target.Notes)
}

func TestOptimisticPatchVisibleDuringCommit(t *testing.T) {
	// The whole point of optimistic mutation: the local view updates
	// before the remote call resolves.
	target := engagement.Target{Status: engagement.TargetPending}
	var seen engagement.TargetStatus

	err := client.Optimistic(t.Context(), &target,
		func(s *engagement.Target) { s.Status = engagement.TargetExploited },
		func(ctx context.Context) error {
			seen = target.Status
			return nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, engagement.TargetExploited, seen)
}

func TestOptimisticSliceStateRollsBack(t *testing.T) {
	type view struct{ Items []string }
	state := view{Items: []string{"a", "b"}}

	err := client.Optimistic(t.Context(), &state,
		func(v *view) { v.Items = append([]string{"new"}, v.Items...) },
		func(ctx context.Context) error { return errors.New("rejected") },
	)
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, state.Items)
}
