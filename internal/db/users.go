package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"maintenance-service/internal/models"
)

func (d *DB) ListAdmins(ctx context.Context) ([]models.User, error) {
	rows, err := d.Pool.Query(ctx, `SELECT id, name, role FROM users WHERE role = $1 ORDER BY id ASC`, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (d *DB) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	err := d.Pool.QueryRow(ctx, `INSERT INTO users (name, role) VALUES ($1, $2) RETURNING id`,
		u.Name, u.Role).Scan(&u.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
        INSERT INTO notifications (id, user_id, kind, title, message, order_id)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := d.Pool.Exec(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Message, n.OrderID)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
