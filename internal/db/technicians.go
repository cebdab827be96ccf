package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/models"
)

func (d *DB) GetTechnician(ctx context.Context, id int64) (models.Technician, error) {
	var t models.Technician
	err := d.Pool.QueryRow(ctx, `
        SELECT id, name, specialty, availability, latitude, longitude
        FROM technicians WHERE id = $1`, id).Scan(
		&t.ID, &t.Name, &t.Specialty, &t.Availability, &t.Latitude, &t.Longitude,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Technician{}, fmt.Errorf("technician %d: %w", id, faults.ErrNotFound)
		}
		return models.Technician{}, fmt.Errorf("failed to get technician %d: %w", id, err)
	}
	return t, nil
}

// ListTechnicianSnapshots joins each technician with its derived workload:
// the count of ASSIGNED/IN_PROGRESS orders. Terminal orders never count.
func (d *DB) ListTechnicianSnapshots(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT t.id, t.name, t.specialty, t.availability, t.latitude, t.longitude,
               COUNT(o.id) FILTER (WHERE o.status IN ('ASSIGNED', 'IN_PROGRESS')) AS active_orders
        FROM technicians t
        LEFT JOIN work_orders o ON o.technician_id = t.id
        GROUP BY t.id
        ORDER BY t.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	defer rows.Close()

	var snapshots []models.TechnicianSnapshot
	for rows.Next() {
		var s models.TechnicianSnapshot
		if err := rows.Scan(&s.ID, &s.Name, &s.Specialty, &s.Availability, &s.Latitude, &s.Longitude, &s.ActiveOrders); err != nil {
			return nil, fmt.Errorf("failed to scan technician: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

func (d *DB) UpdateTechnicianAvailability(ctx context.Context, id int64, av models.Availability) (models.Technician, error) {
	var t models.Technician
	err := d.Pool.QueryRow(ctx, `
        UPDATE technicians SET availability = $2
        WHERE id = $1
        RETURNING id, name, specialty, availability, latitude, longitude`, id, av).Scan(
		&t.ID, &t.Name, &t.Specialty, &t.Availability, &t.Latitude, &t.Longitude,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Technician{}, fmt.Errorf("technician %d: %w", id, faults.ErrNotFound)
		}
		return models.Technician{}, fmt.Errorf("failed to update technician %d: %w", id, err)
	}
	return t, nil
}

func (d *DB) CreateTechnician(ctx context.Context, t models.Technician) (models.Technician, error) {
	if t.Availability == "" {
		t.Availability = models.Available
	}
	err := d.Pool.QueryRow(ctx, `
        INSERT INTO technicians (name, specialty, availability, latitude, longitude)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`, t.Name, t.Specialty, t.Availability, t.Latitude, t.Longitude).Scan(&t.ID)
	if err != nil {
		return models.Technician{}, fmt.Errorf("failed to create technician: %w", err)
	}
	return t, nil
}
