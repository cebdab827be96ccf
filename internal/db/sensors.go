package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

func (d *DB) CreateSensor(ctx context.Context, s models.Sensor) (models.Sensor, error) {
	query := `
        INSERT INTO sensors (code, type, location, min_threshold, max_threshold, active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`
	err := d.Pool.QueryRow(ctx, query,
		s.Code, s.Type, s.Location, s.MinThreshold, s.MaxThreshold, s.Active,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Sensor{}, fmt.Errorf("sensor code %s already exists: %w", s.Code, faults.ErrInvalidState)
		}
		return models.Sensor{}, fmt.Errorf("failed to create sensor %s: %w", s.Code, err)
	}
	return s, nil
}

func (d *DB) GetSensor(ctx context.Context, id int64) (models.Sensor, error) {
	return d.getSensor(ctx, "id = $1", id)
}

func (d *DB) GetSensorByCode(ctx context.Context, code string) (models.Sensor, error) {
	return d.getSensor(ctx, "code = $1", code)
}

func (d *DB) getSensor(ctx context.Context, where string, arg interface{}) (models.Sensor, error) {
	query := `
        SELECT id, code, type, location, min_threshold, max_threshold, active, created_at
        FROM sensors WHERE ` + where
	var s models.Sensor
	err := d.Pool.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.Code, &s.Type, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.Active, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Sensor{}, fmt.Errorf("sensor %v: %w", arg, faults.ErrNotFound)
		}
		return models.Sensor{}, fmt.Errorf("failed to get sensor %v: %w", arg, err)
	}
	return s, nil
}

func (d *DB) UpdateSensor(ctx context.Context, id int64, upd store.SensorUpdate) (models.Sensor, error) {
	query := `
        UPDATE sensors
        SET min_threshold = COALESCE($2, min_threshold),
            max_threshold = COALESCE($3, max_threshold),
            active        = COALESCE($4, active)
        WHERE id = $1
        RETURNING id, code, type, location, min_threshold, max_threshold, active, created_at`
	var s models.Sensor
	err := d.Pool.QueryRow(ctx, query, id, upd.MinThreshold, upd.MaxThreshold, upd.Active).Scan(
		&s.ID, &s.Code, &s.Type, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.Active, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Sensor{}, fmt.Errorf("sensor %d: %w", id, faults.ErrNotFound)
		}
		return models.Sensor{}, fmt.Errorf("failed to update sensor %d: %w", id, err)
	}
	return s, nil
}

func (d *DB) ListSensors(ctx context.Context, page, limit int, typ *models.SensorType) ([]models.Sensor, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM sensors`
	countArgs := []interface{}{}
	if typ != nil {
		countQ += ` WHERE type = $1`
		countArgs = append(countArgs, *typ)
	}
	var total int
	if err := d.Pool.QueryRow(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sensors: %w", err)
	}

	query := `
        SELECT id, code, type, location, min_threshold, max_threshold, active, created_at
        FROM sensors`
	args := []interface{}{}
	if typ != nil {
		query += ` WHERE type = $1 ORDER BY code ASC LIMIT $2 OFFSET $3`
		args = append(args, *typ, limit, (page-1)*limit)
	} else {
		query += ` ORDER BY code ASC LIMIT $1 OFFSET $2`
		args = append(args, limit, (page-1)*limit)
	}

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sensors: %w", err)
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.Code, &s.Type, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.Active, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, s)
	}
	return sensors, total, nil
}

func (d *DB) ListActiveSensors(ctx context.Context) ([]models.Sensor, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, code, type, location, min_threshold, max_threshold, active, created_at
        FROM sensors WHERE active ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sensors: %w", err)
	}
	defer rows.Close()

	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.Code, &s.Type, &s.Location, &s.MinThreshold, &s.MaxThreshold, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, s)
	}
	return sensors, nil
}
