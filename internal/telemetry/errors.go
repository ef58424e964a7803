package telemetry

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidDBPath   = errors.ErrorCode("telemetry_invalid_db_path")
	ErrInvalidBatching = errors.ErrorCode("telemetry_invalid_batching")

	// Schema errors
	ErrSchemaInitFailed       = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("telemetry_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("telemetry_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("telemetry_transaction_failed")

	// Storage errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Recording errors
	ErrInvalidSnapshot = errors.ErrorCode("telemetry_invalid_snapshot")
	ErrRecordFailed    = errors.ErrorCode("telemetry_record_failed")

	// Operation errors
	ErrOperationTimeout = errors.ErrTimeout
)
