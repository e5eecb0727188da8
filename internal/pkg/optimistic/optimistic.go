// Package optimistic applies a local change before its remote write completes
// and restores the exact prior snapshot when the write fails.
package optimistic

import "context"

type Command[S any] struct {
	// Snapshot captures the state Restore will put back.
	Snapshot func() S
	Apply    func()
	Write    func(ctx context.Context) error
	Restore  func(S)
}

// Run executes snapshot, apply, write and, on a write error, restore. The
// write error is returned unchanged.
func (c Command[S]) Run(ctx context.Context) error {
	snapshot := c.Snapshot()
	c.Apply()

	if err := c.Write(ctx); err != nil {
		c.Restore(snapshot)
		return err
	}

	return nil
}
