// Package audit records every served suggestion in a SQLite database.
// Writes are queued on a buffered channel and applied by a single writer
// goroutine so the request path never waits on disk.
package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

const (
	defaultQueueSize     = 256
	defaultRetentionDays = 30
)

// Config configures the audit log.
type Config struct {
	Path          string
	QueueSize     int
	RetentionDays int
	// StoreSuggestion keeps the suggestion text; context text is never stored.
	StoreSuggestion bool
	Logger          zerolog.Logger
}

// Record is one served suggestion.
type Record struct {
	RequestID  string
	KeyDigest  string
	Source     string
	ErrorKind  string
	Structure  string
	Suggestion string
	LatencyMs  int64
	CreatedAt  time.Time
}

// QueryOpts filters Query.
type QueryOpts struct {
	Source string
	Since  time.Time
	Limit  int
}

// Log is the SQLite-backed audit log.
type Log struct {
	db      *sql.DB
	cfg     Config
	log     zerolog.Logger
	queue   chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	closed  atomic.Bool
	mu      sync.Mutex
}

// Open opens (or creates) the audit database and starts the writer.
func Open(cfg Config) (*Log, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	db, err := sql.Open("sqlite", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// a single writer keeps sqlite out of SQLITE_BUSY territory
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	l := &Log{
		db:    db,
		cfg:   cfg,
		log:   cfg.Logger,
		queue: make(chan Record, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	l.wg.Add(2)
	go l.writeLoop()
	go l.retentionLoop()
	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS suggestions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id  TEXT,
		key_digest  TEXT NOT NULL,
		source      TEXT NOT NULL,
		error_kind  TEXT,
		structure   TEXT,
		suggestion  TEXT,
		latency_ms  INTEGER NOT NULL,
		created_at  DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_suggestions_created ON suggestions(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_suggestions_source ON suggestions(source)`)
	return err
}

// Digest returns a short BLAKE3 hex digest of text, used instead of storing
// document content.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// Record enqueues r without blocking. When the queue is full the record is
// dropped and counted.
func (l *Log) Record(r Record) {
	if l == nil || l.closed.Load() {
		return
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if !l.cfg.StoreSuggestion {
		r.Suggestion = ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Load() {
		return
	}
	select {
	case l.queue <- r:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns the number of records lost to a full queue.
func (l *Log) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

func (l *Log) writeLoop() {
	defer l.wg.Done()
	for r := range l.queue {
		if err := l.insert(context.Background(), r); err != nil {
			l.log.Warn().Err(err).Msg("audit insert failed")
		}
	}
}

func (l *Log) insert(ctx context.Context, r Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO suggestions
		(request_id, key_digest, source, error_kind, structure, suggestion, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.KeyDigest, r.Source, r.ErrorKind, r.Structure, r.Suggestion,
		r.LatencyMs, r.CreatedAt.UTC(),
	)
	return err
}

// Query returns records newest first.
func (l *Log) Query(ctx context.Context, opts QueryOpts) ([]Record, error) {
	q := `SELECT request_id, key_digest, source, error_kind, structure, suggestion, latency_ms, created_at
		FROM suggestions WHERE 1=1`
	var args []any
	if opts.Source != "" {
		q += " AND source = ?"
		args = append(args, opts.Source)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}
	q += " ORDER BY id DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		var reqID, errKind, structure, suggestion sql.NullString
		if err := rows.Scan(&reqID, &r.KeyDigest, &r.Source, &errKind, &structure, &suggestion, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		r.RequestID = reqID.String
		r.ErrorKind = errKind.String
		r.Structure = structure.String
		r.Suggestion = suggestion.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary counts records per source.
func (l *Log) Summary(ctx context.Context) (map[string]int64, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT source, count(*) FROM suggestions GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("audit summary: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var src string
		var n int64
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scan audit summary: %w", err)
		}
		out[src] = n
	}
	return out, rows.Err()
}

// Cleanup deletes records older than the retention period.
func (l *Log) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays).UTC()
	res, err := l.db.ExecContext(ctx, `DELETE FROM suggestions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close drains queued records, stops background work, and closes the
// database.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed.Swap(true) {
		l.mu.Unlock()
		return nil
	}
	close(l.queue)
	close(l.done)
	l.mu.Unlock()
	l.wg.Wait()
	return l.db.Close()
}

func (l *Log) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if n, err := l.Cleanup(context.Background()); err != nil {
				l.log.Warn().Err(err).Msg("audit cleanup failed")
			} else if n > 0 {
				l.log.Debug().Int64("deleted", n).Msg("audit cleanup")
			}
		}
	}
}
