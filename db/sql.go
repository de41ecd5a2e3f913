package db

import (
	"context"
	"database/sql"
	"sync"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
)

var dataDb *sql.DB
var dataDBErr error
var dataDBOnce = &sync.Once{}

// GetDataDBConnection opens the MySQL store named by DATA_DB_DSN. It returns a nil handle when no DSN is configured.
func GetDataDBConnection(cfg *config.Config, log *zap.Logger) (*sql.DB, error) {
	if cfg.DataDBDSN == "" {
		log.Info("DATA_DB_DSN not set, using in-memory stores")
		return nil, nil
	}
	dataDBOnce.Do(func() {
		dsn, err := mysql.ParseDSN(cfg.DataDBDSN)
		if err != nil {
			dataDBErr = err
			return
		}
		dsn.ParseTime = true

		dataDb, err = sql.Open("mysql", dsn.FormatDSN())
		if err != nil {
			dataDBErr = err
			return
		}
		if err = dataDb.Ping(); err != nil {
			dataDBErr = err
			return
		}
		dataDBErr = EnsureSchema(context.Background(), dataDb)
	})

	return dataDb, dataDBErr
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id VARCHAR(64) PRIMARY KEY,
		service VARCHAR(64) NOT NULL,
		amount DECIMAL(36,18) NOT NULL,
		currency VARCHAR(16) NOT NULL,
		user_address VARCHAR(42) NOT NULL,
		status VARCHAR(16) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		transaction_hash VARCHAR(66) NULL,
		paid_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX payments_address_service (user_address, service, status)
	)`,
	`CREATE TABLE IF NOT EXISTS automation_rules (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		strategy_id VARCHAR(128) NOT NULL,
		type VARCHAR(32) NOT NULL,
		conditions JSON NOT NULL,
		actions JSON NOT NULL,
		status VARCHAR(16) NOT NULL,
		execution_count INT NOT NULL DEFAULT 0,
		max_executions INT NOT NULL DEFAULT 0,
		cooldown_minutes INT NOT NULL DEFAULT 0,
		last_executed DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX automation_rules_user (user_id),
		INDEX automation_rules_status (status)
	)`,
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
