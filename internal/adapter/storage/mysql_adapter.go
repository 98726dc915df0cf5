package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/shopcore/internal/core/domain"
)

//go:embed schema.sql
var schema string

var ErrOrderNotArchived = errors.New("order not archived")

// MySQLAdapter mirrors the order ledger into MySQL. The in-memory ledger
// stays authoritative; the archive is best effort.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the archive tables if they do not exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) SaveOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, customer_username, customer_name, total_cents, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Customer.ID, order.Customer.Username, order.Customer.Name,
		int64(order.Total), string(order.Status), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, item_id, item_name, unit_price_cents, quantity, line_total_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, i+1, line.Item.ID, line.Item.Name,
			int64(line.Item.UnitPrice), line.Quantity, int64(line.LineTotal),
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, orderID int, status domain.OrderStatus, updatedAt time.Time) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ?`,
		string(status), updatedAt, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOrderNotArchived
	}

	return nil
}
