package client

import "context"

// Optimistic runs a local-first mutation: patch is applied to state
// immediately, then commit runs the remote call. If commit fails the
// pre-patch snapshot is restored and the error returned, so the caller's
// view never drifts from the server's on failure.
//
// S must be a value type whose assignment is a deep enough copy for the
// rollback to be meaningful; slices and maps inside S are shared between
// snapshot and state, so patch should replace them rather than mutate in
// place.
func Optimistic[S any](ctx context.Context, state *S, patch func(*S), commit func(context.Context) error) error {
	snapshot := *state
	patch(state)
	if err := commit(ctx); err != nil {
		*state = snapshot
		return err
	}
	return nil
}
