package migrations

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the progress schema, registered in file name order.
var Migrations = migrate.NewMigrations()

//go:embed 20261018090000_create_progress_records.up.sql
var createProgressRecords string

const dropProgressRecords = `DROP TABLE IF EXISTS progress_records`

func init() {
	Migrations.MustRegister(inTx(createProgressRecords), inTx(dropProgressRecords))
}

// inTx runs stmt inside its own transaction.
func inTx(stmt string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.ExecContext(ctx, stmt)
			return err
		})
	}
}
