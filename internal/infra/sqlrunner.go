package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLExecutor defines the contract repositories use for executing SQL.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// ErrMissingMarker is returned for statements without a leading --sql <uuid> line.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// DefaultSlowStatement is the duration above which statements log at warn.
const DefaultSlowStatement = 250 * time.Millisecond

// pgxConn is satisfied by *pgxpool.Pool and pgx.Tx.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SQLRunner executes marker-tagged statements. Logs and the optional Observe
// hook are keyed by marker, never by SQL text or arguments.
type SQLRunner struct {
	conn   pgxConn
	Logger zerolog.Logger

	// Observe receives every finished statement. pgx.ErrNoRows is passed
	// through so callers can tell empty lookups apart from failures.
	Observe func(marker string, took time.Duration, err error)
	Slow    time.Duration
}

func NewSQLRunner(conn pgxConn, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{conn: conn, Logger: logger, Slow: DefaultSlowStatement}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.conn.Exec(ctx, body, args...)
	r.finish(marker, "exec", start, err).Int64("rows", tag.RowsAffected()).Msg("sql exec")
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, body, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	// pgx defers the round trip of QueryRow to Scan, so timing ends there.
	return &observedRow{row: r.conn.QueryRow(ctx, body, args...), runner: r, marker: marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.conn.Query(ctx, body, args...)
	r.finish(marker, "query", start, err).Msg("sql query")
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// finish reports the statement and returns the log event so callers can
// add fields. The event level follows the outcome.
func (r *SQLRunner) finish(marker, op string, start time.Time, err error) *zerolog.Event {
	took := time.Since(start)
	if r.Observe != nil {
		r.Observe(marker, took, err)
	}
	var evt *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		evt = r.Logger.Error().Err(err)
	case r.Slow > 0 && took > r.Slow:
		evt = r.Logger.Warn().Bool("slow", true)
	default:
		evt = r.Logger.Debug()
	}
	return evt.Str("sql", marker).Str("op", op).Dur("took", took)
}

type observedRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (o *observedRow) Scan(dest ...any) error {
	err := o.row.Scan(dest...)
	o.runner.finish(o.marker, "query_row", o.start, err).Bool("empty", IsNoRows(err)).Msg("sql query_row")
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// extractMarker splits "--sql <uuid>\n<body>" into marker and body.
func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	first, body, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(first, "--sql "), body, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
