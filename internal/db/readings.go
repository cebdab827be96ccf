package db

import (
	"context"
	"fmt"

	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

func (d *DB) CreateReading(ctx context.Context, r models.Reading) (models.Reading, error) {
	query := `
        INSERT INTO readings (sensor_id, value)
        VALUES ($1, $2)
        RETURNING id, timestamp`
	err := d.Pool.QueryRow(ctx, query, r.SensorID, r.Value).Scan(&r.ID, &r.Timestamp)
	if err != nil {
		return models.Reading{}, fmt.Errorf("failed to create reading for sensor %d: %w", r.SensorID, err)
	}
	return r, nil
}

func (d *DB) ListReadings(ctx context.Context, sensorID int64, q store.ReadingQuery) ([]models.Reading, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	query := `
        SELECT id, sensor_id, value, timestamp
        FROM readings
        WHERE sensor_id = $1`
	args := []interface{}{sensorID}
	if q.From != nil {
		args = append(args, *q.From)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if q.To != nil {
		args = append(args, *q.To)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings for sensor %d: %w", sensorID, err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Value, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// RecentReadings returns the n most recent readings ordered oldest first,
// which is the order the prediction engine analyzes them in.
func (d *DB) RecentReadings(ctx context.Context, sensorID int64, n int) ([]models.Reading, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, sensor_id, value, timestamp FROM (
            SELECT id, sensor_id, value, timestamp
            FROM readings
            WHERE sensor_id = $1
            ORDER BY timestamp DESC
            LIMIT $2
        ) recent
        ORDER BY timestamp ASC`, sensorID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent readings for sensor %d: %w", sensorID, err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Value, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}
