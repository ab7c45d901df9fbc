package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the slice of pgxpool.Pool the repository needs; tests
// substitute a pgxmock pool.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db pgxQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new row. The database assigns created_at; the id and
// status are fixed here and never updated afterwards.
func (r *PostgresRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	id := uuid.New()
	query := `
		INSERT INTO leads (id, name, email, phone, role, message, marketing_consent,
		    source, variant, user_agent, ip_address, referrer, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Role,
		lead.Message,
		lead.MarketingConsent,
		lead.Source,
		lead.Variant,
		lead.UserAgent,
		lead.IPAddress,
		lead.Referrer,
		StatusNew,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	stored := *lead
	stored.ID = id.String()
	stored.Status = StatusNew
	stored.CreatedAt = createdAt
	return &stored, nil
}

// GetByID fetches a stored lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, name, email, phone, role, message, marketing_consent,
		       source, variant, user_agent, ip_address, referrer, status, created_at
		FROM leads
		WHERE id = $1
	`
	row := r.db.QueryRow(ctx, query, id)
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Role,
		&lead.Message,
		&lead.MarketingConsent,
		&lead.Source,
		&lead.Variant,
		&lead.UserAgent,
		&lead.IPAddress,
		&lead.Referrer,
		&lead.Status,
		&lead.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}

// Ping reports whether the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
