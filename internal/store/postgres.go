package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"eppclient/pkg/errors"
)

// Clock abstracts time for testability.
type Clock func() time.Time

// PostgresStore persists command traffic in PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a PostgresStore instance.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgresStore constructs a PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "open postgres")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "ping postgres")
	}
	return db, nil
}

func (s *PostgresStore) SaveRequest(ctx context.Context, rec RequestRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	query := `
		INSERT INTO epp_requests (cltrid, command, object_id, request, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ClTRID, rec.Command, rec.ObjectID, rec.Request, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save request record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveResponse(ctx context.Context, rec ResponseRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	query := `
		INSERT INTO epp_responses (cltrid, svtrid, result_code, http_status,
			headers, body, reason_code, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ClTRID, rec.SvTRID, rec.ResultCode, rec.HTTPStatus,
		rec.Headers, rec.Body, rec.ReasonCode, rec.Reason, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save response record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, rec MessageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	query := `
		INSERT INTO epp_messages (msg_id, msg_type, domain, title, msg_date, body,
			cltrid, svtrid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (msg_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.Domain, rec.Title, rec.Date, rec.Body,
		rec.ClTRID, rec.SvTRID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save message record: %w", err)
	}
	return nil
}
