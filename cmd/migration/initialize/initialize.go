package initialize

import (
	"bptracker/internal/database"
	"bptracker/internal/logger"
	"bptracker/internal/repositories"
	"context"
)

// InitializeTables re-asserts the reference data production depends on.
func InitializeTables(ctx context.Context, db database.DB, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing essential production data")

	if err := repositories.NewPosture(db).EnsureDefaults(ctx); err != nil {
		return log.Err("failed to ensure default postures", err)
	}

	log.Info("Table initialization complete")
	return nil
}
