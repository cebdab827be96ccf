package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/models"
)

func (d *DB) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	query := `
        INSERT INTO alerts (sensor_id, kind, message, value, resolved)
        VALUES ($1, $2, $3, $4, FALSE)
        RETURNING id, created_at`
	err := d.Pool.QueryRow(ctx, query, a.SensorID, a.Kind, a.Message, a.Value).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to create alert for sensor %d: %w", a.SensorID, err)
	}
	return a, nil
}

func (d *DB) LinkAlertToOrder(ctx context.Context, alertID, orderID int64) error {
	result, err := d.Pool.Exec(ctx, `UPDATE alerts SET order_id = $2 WHERE id = $1`, alertID, orderID)
	if err != nil {
		return fmt.Errorf("failed to link alert %d to order %d: %w", alertID, orderID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert %d: %w", alertID, faults.ErrNotFound)
	}
	return nil
}

func (d *DB) ResolveAlert(ctx context.Context, alertID int64) (models.Alert, error) {
	query := `
        UPDATE alerts SET resolved = TRUE
        WHERE id = $1
        RETURNING id, sensor_id, kind, message, value, resolved, order_id, created_at`
	var a models.Alert
	err := d.Pool.QueryRow(ctx, query, alertID).Scan(
		&a.ID, &a.SensorID, &a.Kind, &a.Message, &a.Value, &a.Resolved, &a.OrderID, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Alert{}, fmt.Errorf("alert %d: %w", alertID, faults.ErrNotFound)
		}
		return models.Alert{}, fmt.Errorf("failed to resolve alert %d: %w", alertID, err)
	}
	return a, nil
}

func (d *DB) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return d.listAlerts(ctx, `WHERE NOT resolved ORDER BY created_at DESC`)
}

func (d *DB) ListUnresolvedAlertsBySensor(ctx context.Context, sensorID int64) ([]models.Alert, error) {
	return d.listAlerts(ctx, `WHERE sensor_id = $1 AND NOT resolved ORDER BY created_at ASC`, sensorID)
}

func (d *DB) listAlerts(ctx context.Context, tail string, args ...interface{}) ([]models.Alert, error) {
	query := `
        SELECT id, sensor_id, kind, message, value, resolved, order_id, created_at
        FROM alerts ` + tail
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.SensorID, &a.Kind, &a.Message, &a.Value, &a.Resolved, &a.OrderID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}
