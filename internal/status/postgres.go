package status

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DBConfig holds the relational store connection parameters.
type DBConfig struct {
	Host       string
	Port       int
	Name       string
	User       string
	Password   string
	InitSchema bool
}

// ConnString returns a postgres:// URL for cfg.
func (c DBConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	return u.String()
}

// Querier is the subset of the pgx API the store needs. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	q    Querier
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the request status database.
func NewPostgresStore(ctx context.Context, cfg DBConfig) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	// One invocation issues at most a handful of sequential queries.
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{q: pool, pool: pool}

	if cfg.InitSchema {
		if err := s.initSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	slog.Info("connected to request status database", "component", "status", "host", cfg.Host, "database", cfg.Name)
	return s, nil
}

// NewPostgresStoreWithQuerier wraps an existing connection.
func NewPostgresStoreWithQuerier(q Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

// initSchema creates request_status if it doesn't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

const selectByObjectKey = `
	SELECT request_id, request_group_id, granule_id, object_key, job_type,
	       COALESCE(restore_bucket_dest, ''), COALESCE(archive_bucket_dest, ''),
	       job_status, COALESCE(err_msg, ''), request_time, last_update_time
	FROM request_status
	WHERE object_key = $1
	ORDER BY last_update_time DESC
	LIMIT 1
`

// GetByObjectKey returns the most recently updated request for objectKey.
func (s *PostgresStore) GetByObjectKey(ctx context.Context, objectKey string) (*Request, error) {
	var req Request
	var jobStatus string

	err := s.q.QueryRow(ctx, selectByObjectKey, objectKey).Scan(
		&req.RequestID, &req.RequestGroupID, &req.GranuleID, &req.ObjectKey, &req.JobType,
		&req.RestoreBucketDest, &req.ArchiveBucketDest,
		&jobStatus, &req.ErrMsg, &req.RequestTime, &req.LastUpdateTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("object key %s: %w", objectKey, ErrNotFound)
		}
		return nil, fmt.Errorf("get request status: %w", err)
	}
	req.JobStatus = JobStatus(jobStatus)
	return &req, nil
}

const updateStatus = `
	UPDATE request_status
	SET job_status = $2,
	    err_msg = $3,
	    archive_bucket_dest = COALESCE($4, archive_bucket_dest),
	    last_update_time = NOW()
	WHERE request_id = $1
`

// UpdateStatus applies u to its request row.
func (s *PostgresStore) UpdateStatus(ctx context.Context, u Update) error {
	var errMsg *string
	if u.ErrMsg != "" {
		errMsg = &u.ErrMsg
	}

	var archiveDest *string
	if u.ArchiveBucketDest != "" {
		archiveDest = &u.ArchiveBucketDest
	}

	tag, err := s.q.Exec(ctx, updateStatus, u.RequestID, string(u.JobStatus), errMsg, archiveDest)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", u.RequestID, ErrNotFound)
	}
	return nil
}

// Close releases database connections.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Verify PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
