package repository

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	actions "github.com/goliatone/go-auth-actions"
)

// ClientStore implements actions.ClientRepository using Bun.
type ClientStore struct {
	db bun.IDB
}

var _ actions.ClientRepository = (*ClientStore)(nil)

// NewClientStore creates a new store.
func NewClientStore(db bun.IDB) *ClientStore {
	return &ClientStore{db: db}
}

// FindClient implements actions.ClientRepository.
func (r *ClientStore) FindClient(ctx context.Context, clientID string) (*actions.Client, error) {
	var model ClientModel
	err := r.db.NewSelect().
		Model(&model).
		Where("client_id = ?", clientID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, actions.ErrUnknownClient.Clone().WithMetadata(map[string]any{"client_id": clientID})
		}
		return nil, err
	}
	return model.toClient(), nil
}

// UpsertClient creates or replaces a client.
func (r *ClientStore) UpsertClient(ctx context.Context, client *actions.Client) error {
	_, err := r.db.NewInsert().
		Model(fromClient(client)).
		On("CONFLICT (client_id) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("root_url = EXCLUDED.root_url").
		Set("base_url = EXCLUDED.base_url").
		Set("redirect_uris = EXCLUDED.redirect_uris").
		Exec(ctx)
	return err
}
