package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotificationNotFound is returned when a notification does not exist or
// belongs to a different user.
var ErrNotificationNotFound = errors.New("notifications: notification not found")

// Notification is a stored, user-facing notification record. ID and UserID
// are immutable once created; the read flag only ever transitions from false
// to true.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	OrderID   *string    `json:"order_id,omitempty"`
	OrderDate *time.Time `json:"order_date,omitempty"`
}

// NotificationStore provides CRUD operations for the notifications table.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Insert stores a new notification and returns its store-assigned id. The id
// is also written back to n.
func (s *NotificationStore) Insert(ctx context.Context, n *Notification) (string, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, message, read, created_at, order_id, order_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		n.UserID, n.Message, n.Read, n.CreatedAt, n.OrderID, n.OrderDate,
	).Scan(&n.ID)
	return n.ID, err
}

// List returns the user's notifications newest first, plus the total count.
func (s *NotificationStore) List(ctx context.Context, userID string, limit, offset int) ([]Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, message, read, created_at, order_id, order_date
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt, &n.OrderID, &n.OrderDate); err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}

	if notifications == nil {
		notifications = []Notification{}
	}

	return notifications, total, rows.Err()
}

// MarkRead flips the read flag to true for the given user's notification and
// returns the updated record. The flag never transitions back to false.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, notificationID string) (*Notification, error) {
	var n Notification
	err := s.pool.QueryRow(ctx,
		`UPDATE notifications SET read = true
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, message, read, created_at, order_id, order_date`,
		notificationID, userID,
	).Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt, &n.OrderID, &n.OrderDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Delete removes the given user's notification. This is the only delete path
// for notification records.
func (s *NotificationStore) Delete(ctx context.Context, userID, notificationID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
