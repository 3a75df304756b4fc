package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"

	actions "github.com/goliatone/go-auth-actions"
)

// Manager groups the Bun backed stores sharing one database handle.
type Manager struct {
	db       *bun.DB
	subjects *SubjectStore
	clients  *ClientStore
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:       db,
		subjects: NewSubjectStore(db),
		clients:  NewClientStore(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.subjects == nil {
		return errors.New("repository subjects should be initialized")
	}

	if m.clients == nil {
		return errors.New("repository clients should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) Subjects() *SubjectStore {
	return m.subjects
}

func (m *Manager) Clients() *ClientStore {
	return m.clients
}

// Migrate creates the schema and upserts the given clients in a single
// transaction.
func (m *Manager) Migrate(ctx context.Context, clients []*actions.Client) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := CreateSchema(ctx, tx); err != nil {
			return err
		}
		store := NewClientStore(tx)
		for _, client := range clients {
			if err := store.UpsertClient(ctx, client); err != nil {
				return err
			}
		}
		return nil
	})
}
