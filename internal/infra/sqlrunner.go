package infra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLExecutor is the narrow query surface used by the credential store.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// ErrUnmarkedQuery is returned for queries without a "--sql <uuid>" first line.
var ErrUnmarkedQuery = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

type markedQuery struct {
	marker string
	body   string
}

// SQLRunner executes marked inline queries and tags every log line with the
// query marker. The pgx pool satisfies SQLExecutor and is the usual
// backend.
type SQLRunner struct {
	db     SQLExecutor
	logger zerolog.Logger

	parsed sync.Map // query text -> markedQuery
}

func NewSQLRunner(db SQLExecutor, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{db: db, logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	q, err := r.prepare(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.db.Exec(ctx, q.body, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", q.marker).Msg("exec failed")
		return tag, fmt.Errorf("sql %s: %w", q.marker, err)
	}
	r.logger.Debug().Str("sql", q.marker).Int64("rows", tag.RowsAffected()).Dur("elapsed", time.Since(start)).Msg("exec")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	q, err := r.prepare(query)
	if err != nil {
		return errorRow{err: err}
	}
	r.logger.Debug().Str("sql", q.marker).Msg("query_row")
	return loggingRow{row: r.db.QueryRow(ctx, q.body, args...), logger: r.logger, marker: q.marker}
}

func (r *SQLRunner) prepare(query string) (markedQuery, error) {
	if cached, ok := r.parsed.Load(query); ok {
		return cached.(markedQuery), nil
	}
	q, err := parseMarked(query)
	if err != nil {
		return markedQuery{}, err
	}
	r.parsed.Store(query, q)
	return q, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
}

// Scan keeps pgx.ErrNoRows unwrapped so IsNoRows keeps working.
func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && !IsNoRows(err) {
		l.logger.Error().Err(err).Str("sql", l.marker).Msg("scan failed")
		return fmt.Errorf("sql %s: %w", l.marker, err)
	}
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

func parseMarked(query string) (markedQuery, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return markedQuery{}, fmt.Errorf("%w: empty query", ErrUnmarkedQuery)
	}
	first, rest, _ := strings.Cut(trimmed, "\n")
	m := markerRegexp.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return markedQuery{}, ErrUnmarkedQuery
	}
	body := strings.TrimSpace(rest)
	if body == "" {
		return markedQuery{}, fmt.Errorf("%w: marker %s has no statement", ErrUnmarkedQuery, m[1])
	}
	return markedQuery{marker: m[1], body: body}, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
