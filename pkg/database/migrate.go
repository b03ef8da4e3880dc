package database

import (
	"context"
	"fmt"
)

// schema is applied in order at boot. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT categories_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id                BIGSERIAL PRIMARY KEY,
		name              VARCHAR(255) NOT NULL,
		category_id       BIGINT NOT NULL REFERENCES categories(id),
		description       TEXT NOT NULL DEFAULT '',
		quantity_in_stock INTEGER NOT NULL DEFAULT 0,
		min_stock_level   INTEGER NOT NULL DEFAULT 0,
		unit_price        NUMERIC(12,2) NOT NULL DEFAULT 0,
		reorder_level     INTEGER NOT NULL DEFAULT 0,
		is_active         BOOLEAN NOT NULL DEFAULT true,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT inventory_items_quantity_nonnegative CHECK (quantity_in_stock >= 0),
		CONSTRAINT inventory_items_min_stock_nonnegative CHECK (min_stock_level >= 0),
		CONSTRAINT inventory_items_unit_price_nonnegative CHECK (unit_price >= 0),
		CONSTRAINT inventory_items_reorder_nonnegative CHECK (reorder_level >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_active ON inventory_items (is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_name ON inventory_items (name)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id                BIGSERIAL PRIMARY KEY,
		inventory_item_id BIGINT NOT NULL REFERENCES inventory_items(id),
		batch_number      VARCHAR(64) NOT NULL,
		quantity          INTEGER NOT NULL,
		expiry_date       TIMESTAMPTZ,
		supplier          VARCHAR(255) NOT NULL DEFAULT '',
		received_date     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_active         BOOLEAN NOT NULL DEFAULT true,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT batches_batch_number_key UNIQUE (batch_number),
		CONSTRAINT batches_quantity_nonnegative CHECK (quantity >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_item_active ON batches (inventory_item_id, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_expiry ON batches (expiry_date) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                BIGSERIAL PRIMARY KEY,
		inventory_item_id BIGINT NOT NULL REFERENCES inventory_items(id),
		batch_id          BIGINT REFERENCES batches(id),
		transaction_type  VARCHAR(16) NOT NULL,
		quantity_change   INTEGER NOT NULL,
		date              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		remarks           TEXT NOT NULL DEFAULT '',
		patient_name      VARCHAR(255),
		CONSTRAINT transactions_type_valid CHECK (transaction_type IN ('ADD', 'REMOVE', 'UPDATE', 'DISPOSE', 'DELETE'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_item_type ON transactions (inventory_item_id, transaction_type)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id                BIGSERIAL PRIMARY KEY,
		notification_type VARCHAR(32) NOT NULL,
		entity_id         BIGINT NOT NULL,
		batch_id          BIGINT REFERENCES batches(id),
		inventory_item_id BIGINT REFERENCES inventory_items(id),
		quantity_left     INTEGER,
		expiry_date       TIMESTAMPTZ,
		title             VARCHAR(255) NOT NULL,
		message           TEXT NOT NULL,
		seen              BOOLEAN NOT NULL DEFAULT false,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT notifications_type_valid CHECK (notification_type IN ('LOW_STOCK', 'EXPIRED', 'SOON_EXPIRING', 'REORDER'))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_open ON notifications (notification_type, entity_id) WHERE seen = false`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_batch ON notifications (batch_id) WHERE seen = false`,
	`CREATE TABLE IF NOT EXISTS admins (
		id         BIGSERIAL PRIMARY KEY,
		email      VARCHAR(255) NOT NULL,
		password   VARCHAR(255),
		voucher    VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT admins_email_key UNIQUE (email),
		CONSTRAINT admins_voucher_key UNIQUE (voucher)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key        VARCHAR(100) PRIMARY KEY,
		value      TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		for i, stmt := range schema {
			if _, err := db.Q(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		db.logger.Info().Int("statements", len(schema)).Msg("schema migrated")
		return nil
	})
}
