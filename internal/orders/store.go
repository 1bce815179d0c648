package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no order exists for the requested id.
var ErrNotFound = errors.New("orders: order not found")

// Order mirrors the order service's row shape. This service never creates or
// deletes orders; it only flips status and last_updated on existing rows.
type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	OrderDate   time.Time `json:"order_date"`
	LastUpdated time.Time `json:"last_updated"`
}

// StatusCompleted is the terminal status written once the order's
// notification has been materialized.
const StatusCompleted = "Completed"

// Store reads and updates orders in the order service's database. It runs on
// its own pool; the notifications database is a separate pool with no shared
// transaction boundary.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Find returns the order with the given id, or ErrNotFound.
func (s *Store) Find(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, product_id, quantity, status, order_date, last_updated
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.Status, &o.OrderDate, &o.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	return &o, nil
}

// UpdateStatus sets the order's status and last_updated timestamp and returns
// the updated row. A missing order is ErrNotFound, not a silent no-op.
func (s *Store) UpdateStatus(ctx context.Context, orderID, status string, ts time.Time) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, last_updated = $3
		 WHERE id = $1
		 RETURNING id, user_id, product_id, quantity, status, order_date, last_updated`,
		orderID, status, ts,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.Status, &o.OrderDate, &o.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s status: %w", orderID, err)
	}
	return &o, nil
}
