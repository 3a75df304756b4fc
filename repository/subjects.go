package repository

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	actions "github.com/goliatone/go-auth-actions"
)

// SubjectStore implements actions.SubjectRepository using Bun.
type SubjectStore struct {
	repository.Repository[*SubjectModel]
	db *bun.DB
}

var _ actions.SubjectRepository = (*SubjectStore)(nil)

// NewSubjectStore creates a new store.
func NewSubjectStore(db *bun.DB) *SubjectStore {
	repo := repository.NewRepository[*SubjectModel](db, repository.ModelHandlers[*SubjectModel]{
		NewRecord: func() *SubjectModel { return &SubjectModel{} },
		GetID: func(m *SubjectModel) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *SubjectModel, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &SubjectStore{
		Repository: repo,
		db:         db,
	}
}

func withAttributes(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("Attributes")
}

// FindSubject implements actions.SubjectRepository.
func (s *SubjectStore) FindSubject(ctx context.Context, id string) (*actions.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, actions.ErrUnknownSubject.Clone().WithMetadata(map[string]any{"subject_id": id})
	}

	model, err := s.Repository.GetByID(ctx, id, withAttributes)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.Is(err, sql.ErrNoRows) {
			return nil, actions.ErrUnknownSubject.Clone().WithMetadata(map[string]any{"subject_id": id})
		}
		return nil, err
	}

	return model.toSubject(), nil
}

// SearchSubjects implements actions.SubjectRepository.
func (s *SubjectStore) SearchSubjects(ctx context.Context, attribute, value string) ([]*actions.Subject, error) {
	var models []*SubjectModel
	err := s.db.NewSelect().
		Model(&models).
		Relation("Attributes").
		Where("?TableAlias.id IN (?)",
			s.db.NewSelect().
				Model((*SubjectAttributeModel)(nil)).
				Column("subject_id").
				Where("name = ? AND value = ?", attribute, value),
		).
		OrderExpr("?TableAlias.username ASC").
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return []*actions.Subject{}, nil
		}
		return nil, err
	}

	subjects := make([]*actions.Subject, len(models))
	for i, m := range models {
		subjects[i] = m.toSubject()
	}
	return subjects, nil
}

// MarkEmailVerified implements actions.SubjectRepository.
func (s *SubjectStore) MarkEmailVerified(ctx context.Context, id string) error {
	res, err := s.db.NewUpdate().
		Model((*SubjectModel)(nil)).
		Set("email_verified = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

// RemoveRequiredAction implements actions.SubjectRepository. Removing an
// action that is not pending is a no-op.
func (s *SubjectStore) RemoveRequiredAction(ctx context.Context, id string, action actions.RequiredAction) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		model := &SubjectModel{}
		err := tx.NewSelect().
			Model(model).
			Column("id", "required_actions").
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if goerrors.Is(err, sql.ErrNoRows) {
				return actions.ErrUnknownSubject.Clone().WithMetadata(map[string]any{"subject_id": id})
			}
			return err
		}

		remaining := make([]string, 0, len(model.RequiredActions))
		for _, name := range model.RequiredActions {
			if name != string(action) {
				remaining = append(remaining, name)
			}
		}
		if len(remaining) == len(model.RequiredActions) {
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*SubjectModel)(nil)).
			Set("required_actions = ?", jsonStrings(remaining)).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

// CreateSubject stores a subject with its attributes.
func (s *SubjectStore) CreateSubject(ctx context.Context, subject *actions.Subject) (*actions.Subject, error) {
	model, attrs := fromSubject(subject)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.Repository.CreateTx(ctx, tx, model); err != nil {
			return err
		}
		if len(attrs) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&attrs).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	model.Attributes = attrs
	return model.toSubject(), nil
}

func expectAffected(res sql.Result, id string) error {
	if res == nil {
		return nil
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return actions.ErrUnknownSubject.Clone().WithMetadata(map[string]any{"subject_id": id})
	}
	return nil
}
