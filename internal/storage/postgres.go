package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_transitions (
	id             UUID PRIMARY KEY,
	order_id       TEXT NOT NULL,
	owner          TEXT NOT NULL,
	input_token    TEXT NOT NULL,
	output_token   TEXT NOT NULL,
	input_amount   NUMERIC NOT NULL,
	target_price   NUMERIC NOT NULL,
	old_status     TEXT NOT NULL,
	new_status     TEXT NOT NULL,
	txid           TEXT,
	failure_reason TEXT,
	detected_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage connects and ensures the transitions table exists.
func NewPostgresStorage(ctx context.Context, cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &PostgresStorage{db: db, logger: cfg.Logger}
	err = p.Migrate(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

// Migrate creates the transitions table if missing.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create transitions table: %w", err)
	}
	return nil
}

// StoreTransition inserts a transition. Re-inserting the same event id is a no-op.
func (p *PostgresStorage) StoreTransition(ctx context.Context, event *types.TransitionEvent) error {
	query := `
		INSERT INTO order_transitions (
			id, order_id, owner, input_token, output_token, input_amount,
			target_price, old_status, new_status, txid, failure_reason, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (id) DO NOTHING
	`

	o := event.Order
	_, err := p.db.ExecContext(ctx, query,
		event.ID,
		o.ID,
		o.Owner,
		o.InputToken,
		o.OutputToken,
		o.InputAmount.String(),
		o.TargetPrice.String(),
		string(event.OldStatus),
		string(event.NewStatus),
		nullable(o.TxID),
		nullable(o.FailureReason),
		event.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	p.logger.Debug("transition-stored",
		zap.String("event-id", event.ID),
		zap.String("order-id", o.ID))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
