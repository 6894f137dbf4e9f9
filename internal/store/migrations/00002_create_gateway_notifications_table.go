package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpGatewayNotificationsTable, DownGatewayNotificationsTable)
}

func UpGatewayNotificationsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE gateway_notifications
(
    id BIGSERIAL PRIMARY KEY,
    order_id VARCHAR(64) NOT NULL,
    transaction_status VARCHAR(32) NOT NULL,
    fraud_status VARCHAR(32) NOT NULL DEFAULT '',
    status_code VARCHAR(8) NOT NULL DEFAULT '',
    payload JSONB NOT NULL,
    received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX idx_gateway_notifications_order_id ON gateway_notifications (order_id);`)
	return err
}

func DownGatewayNotificationsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE gateway_notifications;")
	return err
}
