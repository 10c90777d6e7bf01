package postgresadapter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const activePostRecordIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_post_records_active_submission
ON post_records (submission_id) WHERE state IN ('PENDING', 'RUNNING')`

// Migrate creates the engine tables and the read-only projection tables used in
// standalone deployments.
func Migrate(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(
		&postRecordModel{},
		&websitePostRecordModel{},
		&postEventModel{},
		&postQueueModel{},
		&submissionModel{},
		&websiteOptionModel{},
		&submissionFileModel{},
		&accountModel{},
	); err != nil {
		return fmt.Errorf("auto migrate post orchestration tables: %w", err)
	}
	// Partial index; both postgres and sqlite accept this statement.
	if err := tx.Exec(activePostRecordIndex).Error; err != nil {
		return fmt.Errorf("create active post record index: %w", err)
	}
	return nil
}
