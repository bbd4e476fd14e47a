package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/voyagen/xtreamrelay/internal/models"
)

const (
	sessionsTable = "sessions"
	idIndex       = "id"
)

// Memory keeps sessions in an in-process go-memdb database.
type Memory struct {
	db *memdb.MemDB
}

type memSession struct {
	ID      string
	Session models.Session
}

// NewMemory creates an empty in-memory store.
func NewMemory() (*Memory, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			sessionsTable: {
				Name: sessionsTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	return &Memory{db: db}, nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.Session, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(sessionsTable, idIndex, id)
	if err != nil {
		return nil, fmt.Errorf("memdb get: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	s := raw.(*memSession).Session
	return &s, nil
}

func (m *Memory) Put(_ context.Context, s models.Session) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	row := &memSession{ID: s.ID, Session: s}
	if err := txn.Insert(sessionsTable, row); err != nil {
		return fmt.Errorf("memdb put: %w", err)
	}
	txn.Commit()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(sessionsTable, idIndex, id); err != nil {
		return fmt.Errorf("memdb delete: %w", err)
	}
	txn.Commit()
	return nil
}

func (m *Memory) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(sessionsTable, idIndex)
	if err != nil {
		return 0, fmt.Errorf("memdb sweep: %w", err)
	}
	var stale []*memSession
	for raw := it.Next(); raw != nil; raw = it.Next() {
		row := raw.(*memSession)
		if row.Session.AuthenticatedAt.Before(cutoff) {
			stale = append(stale, row)
		}
	}
	for _, row := range stale {
		if err := txn.Delete(sessionsTable, row); err != nil {
			return 0, fmt.Errorf("memdb sweep delete: %w", err)
		}
	}
	txn.Commit()
	return len(stale), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
