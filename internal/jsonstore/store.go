// Package jsonstore keeps an ordered collection of T as a JSON array in a
// single file and offers serialized read-modify-write transactions over it.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/filex"
	"github.com/dmitrijs2005/gophbook/internal/logging"
)

const (
	DefaultLockTimeout = 5 * time.Second
	DefaultFileMode    = fs.FileMode(0o640)
)

// Mutator receives the collection loaded under the lock and returns the
// collection to persist. Returning an error aborts the transaction and
// leaves the file untouched.
type Mutator[T any] func(items []T) ([]T, error)

// Store is a file-backed collection. The zero value is not usable; use New.
type Store[T any] struct {
	path        string
	lock        *filex.Lock
	lockTimeout time.Duration
	mode        fs.FileMode
	logger      logging.Logger
}

type Option func(*options)

type options struct {
	lockTimeout time.Duration
	mode        fs.FileMode
	logger      logging.Logger
}

func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

func WithFileMode(mode fs.FileMode) Option {
	return func(o *options) { o.mode = mode }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns a store for the file at path. Nothing is touched on disk until
// the first Transact.
func New[T any](path string, opts ...Option) *Store[T] {
	o := options{
		lockTimeout: DefaultLockTimeout,
		mode:        DefaultFileMode,
		logger:      logging.Discard(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	return &Store[T]{
		path:        path,
		lock:        filex.NewLock(path + ".lock"),
		lockTimeout: o.lockTimeout,
		mode:        o.mode,
		logger:      o.logger.With("file", path),
	}
}

func (s *Store[T]) Path() string {
	return s.path
}

// Load returns the current collection. A missing, empty or unparsable file
// reads as an empty collection; only genuine read failures are reported.
// No lock is taken: writes replace the file atomically, so the snapshot is
// always complete.
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrorIO, s.path, err)
	}

	return s.decode(ctx, data), nil
}

func (s *Store[T]) decode(ctx context.Context, data []byte) []T {
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn(ctx, "collection file is not a valid JSON array, treating as empty", "error", err)
		return []T{}
	}
	if items == nil {
		// the file held "null"
		return []T{}
	}
	return items
}

// Transact runs fn as one atomic load-validate-mutate-write cycle.
//
// ctx bounds only the wait for the lock; once the lock is held the cycle runs
// to commit or abort. Lock timeout yields common.ErrorBusy, an encoding
// failure common.ErrorEncoding and a write failure common.ErrorIO. Errors
// returned by fn are passed through unchanged.
func (s *Store[T]) Transact(ctx context.Context, fn Mutator[T]) ([]T, error) {
	release, err := s.lock.Acquire(ctx, s.lockTimeout)
	if err != nil {
		s.logger.Warn(ctx, "lock not acquired", "error", err)
		return nil, err
	}
	defer release()

	// Detached from ctx: a cancelled request must not interrupt a held lock.
	ctx = context.WithoutCancel(ctx)

	current, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		s.logger.Debug(ctx, "transaction rejected", "error", err)
		return nil, err
	}
	if next == nil {
		next = []T{}
	}

	data, err := Encode(next)
	if err != nil {
		return nil, err
	}

	if err := filex.WriteFileAtomic(s.path, data, s.mode); err != nil {
		s.logger.Error(ctx, "collection write failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorIO, err)
	}

	s.logger.Debug(ctx, "transaction committed", "items", len(next))
	return next, nil
}

// Encode renders items the way collection files are stored: an indented JSON
// array terminated by a newline, with HTML characters left unescaped.
func Encode[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorEncoding, err)
	}
	return buf.Bytes(), nil
}
