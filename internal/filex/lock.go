package filex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/dmitrijs2005/gophbook/internal/common"
)

// lockRetryDelay is how often flock is polled while another process holds it.
const lockRetryDelay = 10 * time.Millisecond

// Lock serializes access to one file. Goroutines queue on a channel (served
// in arrival order); the winner then takes flock(2) on a sidecar file so
// other processes working on the same data directory are excluded too.
type Lock struct {
	path string
	sem  chan struct{}
}

// NewLock returns a lock backed by the sidecar file at path. The file is
// created on first use and never removed.
func NewLock(path string) *Lock {
	return &Lock{path: path, sem: make(chan struct{}, 1)}
}

// Path returns the sidecar lock file.
func (l *Lock) Path() string {
	return l.path
}

// Acquire waits at most timeout (or until ctx is done) for the lock.
// On timeout it returns common.ErrorBusy. The returned release function
// must be called exactly once.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", common.ErrorBusy, l.path)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-l.sem
		if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s", common.ErrorBusy, l.path)
		}
		return nil, fmt.Errorf("%w: flock %s: %v", common.ErrorIO, l.path, err)
	}

	return func() {
		_ = fl.Unlock()
		<-l.sem
	}, nil
}
