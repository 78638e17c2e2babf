// Package journal keeps an optional SQLite log of every base reserved by
// typeidgen, so a stale or conflicting base can be traced back to the run
// that produced it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// FileName is the journal's file name inside the store directory.
const FileName = "journal.sqlite3"

const createTableSQL = `CREATE TABLE IF NOT EXISTS allocations (
	session     TEXT    NOT NULL,
	base        INTEGER NOT NULL,
	import_path TEXT    NOT NULL,
	type_name   TEXT    NOT NULL,
	generic     INTEGER NOT NULL,
	pid         INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);`

const insertSQL = `INSERT INTO allocations
	(session, base, import_path, type_name, generic, pid, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

const selectSQL = `SELECT session, base, import_path, type_name, generic, pid, created_at
	FROM allocations ORDER BY created_at, base`

// Entry is one recorded reservation.
type Entry struct {
	Session    string
	Base       uint64
	ImportPath string
	TypeName   string
	Generic    bool
	PID        int
	Time       time.Time
}

// Journal buffers entries and writes them in batches.
type Journal struct {
	db        *sql.DB
	session   string
	batchSize int
	logger    hclog.Logger

	mu      sync.Mutex
	pending []Entry
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used for flush failures at exit.
func WithLogger(l hclog.Logger) Option {
	return func(j *Journal) {
		j.logger = l
	}
}

// WithBatchSize sets how many entries are buffered before a flush.
func WithBatchSize(n int) Option {
	return func(j *Journal) {
		j.batchSize = n
	}
}

// Open opens or creates the journal at path. Buffered entries are flushed
// when the process exits through atexit.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=10000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create table in %s: %w", path, err)
	}

	j := &Journal{
		db:        db,
		session:   xid.New().String(),
		batchSize: 256,
		logger:    hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(j)
	}

	atexit.Register(func() {
		if err := j.Flush(); err != nil {
			j.logger.Warn("cannot flush journal", "error", err)
		}
	})

	return j, nil
}

// Session returns the id stamped on entries recorded by this Journal.
func (j *Journal) Session() string {
	return j.session
}

// Record buffers e. Session, PID and Time are filled in when unset.
func (j *Journal) Record(e Entry) error {
	if e.Session == "" {
		e.Session = j.session
	}

	if e.PID == 0 {
		e.PID = os.Getpid()
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	j.mu.Lock()
	j.pending = append(j.pending, e)
	full := len(j.pending) >= j.batchSize
	j.mu.Unlock()

	if full {
		return j.Flush()
	}

	return nil
}

// Flush writes all buffered entries in one transaction.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.pending) == 0 {
		return nil
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("journal: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range j.pending {
		_, err := stmt.Exec(
			e.Session,
			int64(e.Base),
			e.ImportPath,
			e.TypeName,
			e.Generic,
			e.PID,
			e.Time.UnixNano(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("journal: insert base %d: %w", e.Base, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}

	j.pending = nil

	return nil
}

// Entries returns every recorded entry, oldest first. Buffered entries are
// flushed first.
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	if err := j.Flush(); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e       Entry
			base    int64
			created int64
		)

		if err := rows.Scan(&e.Session, &base, &e.ImportPath, &e.TypeName,
			&e.Generic, &e.PID, &created); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}

		e.Base = uint64(base)
		e.Time = time.Unix(0, created)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close flushes and closes the database.
func (j *Journal) Close() error {
	ferr := j.Flush()
	cerr := j.db.Close()

	if ferr != nil {
		return ferr
	}

	return cerr
}
