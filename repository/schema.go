package repository

import (
	"context"

	"github.com/uptrace/bun"
)

var schemaModels = []any{
	(*SubjectModel)(nil),
	(*SubjectAttributeModel)(nil),
	(*ClientModel)(nil),
}

// CreateSchema creates the tables and indexes used by the stores. It is safe
// to run more than once.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range schemaModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	_, err := db.NewCreateIndex().
		Model((*SubjectAttributeModel)(nil)).
		Index("idx_subject_attributes_name_value").
		Column("name", "value").
		IfNotExists().
		Exec(ctx)
	return err
}
