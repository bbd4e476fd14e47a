package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/xtreamrelay/internal/models"
)

// Postgres implements Store on a sessions table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*models.Session, error) {
	s := models.Session{ID: id}
	err := p.pool.QueryRow(ctx,
		`SELECT server, username, password, authenticated_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.Credentials.Server, &s.Credentials.Username, &s.Credentials.Password, &s.AuthenticatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) Put(ctx context.Context, s models.Session) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sessions (id, server, username, password, authenticated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   server = EXCLUDED.server, username = EXCLUDED.username,
		   password = EXCLUDED.password, authenticated_at = EXCLUDED.authenticated_at`,
		s.ID, s.Credentials.Server, s.Credentials.Username, s.Credentials.Password, s.AuthenticatedAt,
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (p *Postgres) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE authenticated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
