// Package store is the durable state store: one goroutine owns the only
// sqlite connection and every caller's request is serialized through a
// channel, exactly the DatabaseWorker pattern in
// original_source/core/db.py (a thread reading a queue.Queue) translated
// to a goroutine reading a Go channel. Schema and WAL/PRAGMA setup follow
// sync/db.go's OpenDB/migrate shape.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_state (
    path              TEXT PRIMARY KEY,
    provider_id       TEXT NOT NULL,
    size              INTEGER NOT NULL,
    mtime             REAL NOT NULL,
    checksum          TEXT NOT NULL DEFAULT '',
    inode             TEXT NOT NULL DEFAULT '',
    last_seen_run_id  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_history (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time       REAL NOT NULL,
    end_time         REAL NOT NULL DEFAULT 0,
    status           TEXT NOT NULL,
    files_processed  INTEGER NOT NULL DEFAULT 0
);
`

// request is one unit of work handed to the writer goroutine; reply
// carries back either a *sql.Rows-derived value or an error.
type request struct {
	fn    func(*sql.DB) (any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

// Store serializes all database access through a single writer
// goroutine, avoiding sqlite's well-known "database is locked" errors
// under concurrent writers (spec.md §8 S8's 4-writer stress case).
type Store struct {
	db      *sql.DB
	reqs    chan request
	done    chan struct{}
}

// Open creates (or reopens) the state store at dbPath and starts its
// writer goroutine.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.New(apperr.Fatal, "open state store", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, apperr.New(apperr.Fatal, "set WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, apperr.New(apperr.Fatal, "set synchronous mode", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.New(apperr.Fatal, "create schema", err)
	}

	s := &Store{db: db, reqs: make(chan request), done: make(chan struct{})}
	go s.run()
	return s, nil
}

func (s *Store) run() {
	for req := range s.reqs {
		v, err := req.fn(s.db)
		req.reply <- result{value: v, err: err}
	}
	s.db.Close()
	close(s.done)
}

// submit sends fn to the writer goroutine and blocks for its result,
// honoring ctx cancellation the way a real caller-facing store method
// should — the channel send/receive are the only suspension points.
func (s *Store) submit(ctx context.Context, fn func(*sql.DB) (any, error)) (any, error) {
	reply := make(chan result, 1)
	select {
	case s.reqs <- request{fn: fn, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new requests and waits for the writer goroutine
// to close the underlying connection.
func (s *Store) Close() error {
	close(s.reqs)
	<-s.done
	return nil
}

// UpsertFileState records path's current observed state, grounded on
// db.py's upsert_file_state (ON CONFLICT DO UPDATE).
func (s *Store) UpsertFileState(ctx context.Context, fs model.FileState) error {
	_, err := s.submit(ctx, func(db *sql.DB) (any, error) {
		_, err := db.Exec(`
			INSERT INTO file_state (path, provider_id, size, mtime, checksum, inode, last_seen_run_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				provider_id=excluded.provider_id,
				size=excluded.size,
				mtime=excluded.mtime,
				checksum=excluded.checksum,
				inode=excluded.inode,
				last_seen_run_id=excluded.last_seen_run_id
		`, fs.Path, fs.ProviderID, fs.Size, fs.Mtime, fs.Checksum, fs.Inode, fs.LastSeenRunID)
		return nil, err
	})
	if err != nil {
		return apperr.New(apperr.Transient, "upsert file state "+fs.Path, err)
	}
	return nil
}

// GetFileState returns the last-synced state for path, or ok=false if
// the path has never been recorded.
func (s *Store) GetFileState(ctx context.Context, path string) (fs model.FileState, ok bool, err error) {
	v, err := s.submit(ctx, func(db *sql.DB) (any, error) {
		row := db.QueryRow(`SELECT path, provider_id, size, mtime, checksum, inode, last_seen_run_id
			FROM file_state WHERE path = ?`, path)
		var out model.FileState
		scanErr := row.Scan(&out.Path, &out.ProviderID, &out.Size, &out.Mtime, &out.Checksum, &out.Inode, &out.LastSeenRunID)
		if scanErr == sql.ErrNoRows {
			return nil, nil
		}
		if scanErr != nil {
			return nil, scanErr
		}
		return out, nil
	})
	if err != nil {
		return model.FileState{}, false, apperr.New(apperr.Transient, "get file state "+path, err)
	}
	if v == nil {
		return model.FileState{}, false, nil
	}
	return v.(model.FileState), true, nil
}

// DeleteFileState removes the persisted record for path, called once a
// deletion action has been executed on both sides so the next run
// doesn't resurrect it as "new" on the remaining side.
func (s *Store) DeleteFileState(ctx context.Context, path string) error {
	_, err := s.submit(ctx, func(db *sql.DB) (any, error) {
		_, err := db.Exec(`DELETE FROM file_state WHERE path = ?`, path)
		return nil, err
	})
	if err != nil {
		return apperr.New(apperr.Transient, "delete file state "+path, err)
	}
	return nil
}

// StartRun inserts a new run_history row and returns its id, grounded on
// db.py's start_run.
func (s *Store) StartRun(ctx context.Context) (int64, error) {
	v, err := s.submit(ctx, func(db *sql.DB) (any, error) {
		res, err := db.Exec(`INSERT INTO run_history (start_time, status) VALUES (?, ?)`,
			float64(time.Now().UnixNano())/float64(time.Second), model.RunRunning)
		if err != nil {
			return nil, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, apperr.New(apperr.Transient, "start run", err)
	}
	return v.(int64), nil
}

// EndRun closes out a run_history row, grounded on db.py's end_run.
func (s *Store) EndRun(ctx context.Context, runID int64, status model.RunStatus, filesProcessed int) error {
	_, err := s.submit(ctx, func(db *sql.DB) (any, error) {
		_, err := db.Exec(`UPDATE run_history SET end_time=?, status=?, files_processed=? WHERE id=?`,
			float64(time.Now().UnixNano())/float64(time.Second), status, filesProcessed, runID)
		return nil, err
	})
	if err != nil {
		return apperr.New(apperr.Transient, "end run", err)
	}
	return nil
}

// ListRuns returns the most recent run_history rows, newest first,
// capped at limit and skipping offset rows — backing GET /status's list
// of the 20 newest runs (SPEC_FULL.md's httpapi section).
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]model.RunHistory, error) {
	v, err := s.submit(ctx, func(db *sql.DB) (any, error) {
		rows, err := db.Query(`SELECT id, start_time, end_time, status, files_processed
			FROM run_history ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []model.RunHistory
		for rows.Next() {
			var r model.RunHistory
			if err := rows.Scan(&r.ID, &r.StartTime, &r.EndTime, &r.Status, &r.FilesProcessed); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, apperr.New(apperr.Transient, "list runs", err)
	}
	if v == nil {
		return nil, nil
	}
	return v.([]model.RunHistory), nil
}
