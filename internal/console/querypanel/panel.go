// Package querypanel runs read-only queries against the warehouse Postgres
// database for the console's raw query panel.
package querypanel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	DefaultStatementTimeout = 5 * time.Second
	DefaultRowLimit         = 500
)

// SQLSTATE query_canceled, raised by statement_timeout.
const sqlStateQueryCanceled = "57014"

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config configures the warehouse connection.
type Config struct {
	DSN              string
	StatementTimeout time.Duration
	RowLimit         int
}

// Result is one query's output. Rows are truncated to the row limit.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

// Panel executes queries inside read-only transactions.
type Panel struct {
	db      *sqlx.DB
	timeout time.Duration
	limit   int
}

// Open connects to the warehouse. An empty DSN returns ErrDisabled.
func Open(ctx context.Context, cfg Config) (*Panel, error) {
	if cfg.DSN == "" {
		return nil, ErrDisabled
	}
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, ErrUnavailable.Err(err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping warehouse")
		return nil, ErrUnavailable.Err(err)
	}
	return newPanel(db, cfg), nil
}

func newPanel(db *sqlx.DB, cfg Config) *Panel {
	p := &Panel{db: db, timeout: cfg.StatementTimeout, limit: cfg.RowLimit}
	if p.timeout <= 0 {
		p.timeout = DefaultStatementTimeout
	}
	if p.limit <= 0 {
		p.limit = DefaultRowLimit
	}
	return p
}

// Close releases the connection pool.
func (p *Panel) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Run checks q and executes it.
func (p *Panel) Run(ctx context.Context, q string) (*Result, error) {
	stmt, err := CheckStatement(q)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, stmt)
}

// Preview returns the first rows of schema.table.
func (p *Panel) Preview(ctx context.Context, schema, table string) (*Result, error) {
	if !identifierRegex.MatchString(schema) || !identifierRegex.MatchString(table) {
		return nil, ErrInvalidIdentifier.Msg(fmt.Sprintf("invalid identifier: %s.%s", schema, table))
	}
	return p.run(ctx, fmt.Sprintf("SELECT * FROM %s.%s", pq.QuoteIdentifier(schema), pq.QuoteIdentifier(table)))
}

func (p *Panel) run(ctx context.Context, stmt string) (*Result, error) {
	start := time.Now()
	tx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ErrUnavailable.Err(err)
	}
	defer tx.Rollback()

	timeout := fmt.Sprintf("%dms", p.timeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, "SET LOCAL statement_timeout = "+pq.QuoteLiteral(timeout)); err != nil {
		return nil, translate(err)
	}

	rows, err := tx.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, translate(err)
	}
	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(res.Rows) == p.limit {
			res.Truncated = true
			break
		}
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, translate(err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	res.ElapsedMs = time.Since(start).Milliseconds()
	log.Ctx(ctx).Debug().Int("rows", len(res.Rows)).Bool("truncated", res.Truncated).
		Int64("elapsed_ms", res.ElapsedMs).Msg("query panel statement executed")
	return res, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
		if pgErr.Code == sqlStateQueryCanceled {
			return ErrQueryTimeout.MsgErr(msg, err)
		}
		return ErrQueryFailed.MsgErr(msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrQueryTimeout.Err(err)
	}
	return ErrQueryFailed.Err(err)
}
