// Package store persists the counter that typeid bases are reserved from.
//
// The counter is a decimal number in a file next to a lock file. Every
// reservation takes an exclusive lock on the lock file, reads the counter,
// writes the incremented value and releases the lock, so generator runs in
// parallel processes never hand out the same base.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Store reserves bases from the counter in one directory. A Store is safe
// for concurrent use; several Stores, in one or many processes, may share a
// directory.
type Store struct {
	dir         string
	counterPath string
	lockPath    string

	logger       hclog.Logger
	pollInterval time.Duration
	waitReport   time.Duration

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(l hclog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithPollInterval sets how often a blocked reservation retries the lock.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		s.pollInterval = d
	}
}

// WithWaitReport sets how often a blocked reservation logs the lock holder.
func WithWaitReport(d time.Duration) Option {
	return func(s *Store) {
		s.waitReport = d
	}
}

// Open returns a Store over dir. The directory is created on first use.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, &Error{Kind: KindConfig, Op: "open", Err: errors.New("empty directory")}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Op: "open", Path: dir, Err: err}
	}

	s := &Store{
		dir:          abs,
		counterPath:  filepath.Join(abs, CounterFile),
		lockPath:     filepath.Join(abs, LockFile),
		logger:       hclog.NewNullLogger(),
		pollInterval: 10 * time.Millisecond,
		waitReport:   5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Named("store")

	return s, nil
}

// OpenDefault resolves the directory from the process environment and
// opens it.
func OpenDefault(opts ...Option) (*Store, error) {
	dir, err := ResolveDir(OSEnv())
	if err != nil {
		return nil, err
	}

	return Open(dir, opts...)
}

// Dir returns the directory holding the counter and lock files.
func (s *Store) Dir() string {
	return s.dir
}

// CounterPath returns the path of the counter file.
func (s *Store) CounterPath() string {
	return s.counterPath
}

// LockPath returns the path of the lock file.
func (s *Store) LockPath() string {
	return s.lockPath
}

// Reserve implements idgen.Reserver.
func (s *Store) Reserve(ctx context.Context) (uint64, error) {
	return s.ReserveNext(ctx)
}

// ReserveNext increments the counter under the lock and returns the new
// value. An absent or unparseable counter counts as zero.
func (s *Store) ReserveNext(ctx context.Context) (uint64, error) {
	var base uint64

	err := s.withLock(ctx, func() error {
		old, err := s.readCounter()
		if err != nil {
			return err
		}

		if old == math.MaxUint64 {
			return &Error{Kind: KindOverflow, Op: "increment", Path: s.counterPath, Err: ErrOverflow}
		}

		next := old + 1
		if err := s.writeCounter(next); err != nil {
			return &Error{Kind: KindWrite, Op: "write", Path: s.counterPath, Err: err}
		}

		base = next

		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("reserved base", "base", base, "dir", s.dir)

	return base, nil
}

// Current returns the counter value without changing it.
func (s *Store) Current(ctx context.Context) (uint64, error) {
	var value uint64

	err := s.withLock(ctx, func() error {
		var err error
		value, err = s.readCounter()
		return err
	})

	return value, err
}

// withLock runs fn while holding both the in-process mutex and the file
// lock. The file lock is released on every path, and a release failure is
// reported instead of being dropped.
func (s *Store) withLock(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &Error{Kind: KindLock, Op: "create directory", Path: s.dir, Err: err}
	}

	f, err := os.OpenFile(s.lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return &Error{Kind: KindLock, Op: "open lock", Path: s.lockPath, Err: err}
	}
	defer f.Close()

	if err := s.acquire(ctx, f); err != nil {
		return err
	}

	defer func() {
		if uerr := unlock(f); uerr != nil {
			err = errors.Join(err, &Error{Kind: KindLock, Op: "release lock", Path: s.lockPath, Err: uerr})
		}
	}()

	if err := recordHolder(f); err != nil {
		s.logger.Debug("cannot record lock holder", "error", err)
	}

	return fn()
}

func (s *Store) acquire(ctx context.Context, f *os.File) error {
	start := time.Now()
	lastReport := start

	for {
		ok, err := tryLock(f)
		if err != nil {
			return &Error{Kind: KindLock, Op: "acquire lock", Path: s.lockPath, Err: err}
		}

		if ok {
			return nil
		}

		if time.Since(lastReport) >= s.waitReport {
			lastReport = time.Now()
			s.logger.Warn("waiting for typeid lock",
				"lock", s.lockPath,
				"holder", describeHolder(s.lockPath),
				"waited", time.Since(start).Round(time.Millisecond))
		}

		select {
		case <-ctx.Done():
			return &Error{Kind: KindLock, Op: "acquire lock", Path: s.lockPath, Err: ctx.Err()}
		case <-time.After(s.pollInterval):
		}
	}
}

// readCounter returns the persisted value. An absent, empty or unparseable
// counter counts as zero; any other read failure is returned so the counter
// is never reset over a file that merely could not be read.
func (s *Store) readCounter() (uint64, error) {
	content, err := os.ReadFile(s.counterPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, &Error{Kind: KindRead, Op: "read", Path: s.counterPath, Err: err}
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return 0, nil
	}

	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		s.logger.Warn("corrupt counter, starting from zero", "path", s.counterPath, "content", text)
		return 0, nil
	}

	return value, nil
}

// writeCounter replaces the counter file through a rename so readers never
// see a partial value.
func (s *Store) writeCounter(value uint64) error {
	tmp, err := os.CreateTemp(s.dir, CounterFile+"-*.tmp")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := fmt.Fprintf(tmp, "%d", value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.counterPath); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}
