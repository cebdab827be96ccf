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

const orderColumns = `id, description, priority, status, client_id, technician_id,
        location, latitude, longitude, required_specialty, created_at`

func scanOrder(row pgx.Row) (models.WorkOrder, error) {
	var o models.WorkOrder
	err := row.Scan(
		&o.ID, &o.Description, &o.Priority, &o.Status, &o.ClientID, &o.TechnicianID,
		&o.Location, &o.Latitude, &o.Longitude, &o.RequiredSpecialty, &o.CreatedAt,
	)
	return o, err
}

func (d *DB) CreateOrder(ctx context.Context, o models.WorkOrder) (models.WorkOrder, error) {
	query := `
        INSERT INTO work_orders (description, priority, status, client_id, location,
            latitude, longitude, required_specialty)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`
	err := d.Pool.QueryRow(ctx, query,
		o.Description, o.Priority, o.Status, o.ClientID, o.Location,
		o.Latitude, o.Longitude, o.RequiredSpecialty,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("failed to create order: %w", err)
	}
	return o, nil
}

func (d *DB) GetOrder(ctx context.Context, id int64) (models.WorkOrder, error) {
	o, err := scanOrder(d.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM work_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WorkOrder{}, fmt.Errorf("order %d: %w", id, faults.ErrNotFound)
		}
		return models.WorkOrder{}, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return o, nil
}

// AssignOrder binds a technician to a PENDING order inside one transaction.
// The technician row is locked first, so a concurrent assignment targeting
// the same technician serializes behind this one.
func (d *DB) AssignOrder(ctx context.Context, orderID, technicianID int64) (models.WorkOrder, error) {
	return d.assign(ctx, orderID, technicianID, -1)
}

// AssignOrderToCandidate additionally re-derives the technician's workload
// under the row lock and refuses to commit when it no longer matches the
// count the candidate was selected on.
func (d *DB) AssignOrderToCandidate(ctx context.Context, orderID, technicianID int64, expectedActive int) (models.WorkOrder, error) {
	return d.assign(ctx, orderID, technicianID, expectedActive)
}

func (d *DB) assign(ctx context.Context, orderID, technicianID int64, expectedActive int) (models.WorkOrder, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("failed to begin assignment: %w", err)
	}
	defer tx.Rollback(ctx)

	var techID int64
	err = tx.QueryRow(ctx, `SELECT id FROM technicians WHERE id = $1 FOR UPDATE`, technicianID).Scan(&techID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WorkOrder{}, fmt.Errorf("technician %d: %w", technicianID, faults.ErrNotFound)
		}
		return models.WorkOrder{}, fmt.Errorf("failed to lock technician %d: %w", technicianID, err)
	}

	if expectedActive >= 0 {
		var active int
		err = tx.QueryRow(ctx, `
            SELECT COUNT(*) FROM work_orders
            WHERE technician_id = $1 AND status IN ('ASSIGNED', 'IN_PROGRESS')`, technicianID).Scan(&active)
		if err != nil {
			return models.WorkOrder{}, fmt.Errorf("failed to count active orders for technician %d: %w", technicianID, err)
		}
		if active != expectedActive {
			return models.WorkOrder{}, fmt.Errorf("technician %d has %d active orders, selected at %d: %w",
				technicianID, active, expectedActive, store.ErrStaleCandidate)
		}
	}

	var status models.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM work_orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WorkOrder{}, fmt.Errorf("order %d: %w", orderID, faults.ErrNotFound)
		}
		return models.WorkOrder{}, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	if status != models.OrderPending {
		return models.WorkOrder{}, fmt.Errorf("order %d is %s, not assignable: %w", orderID, status, faults.ErrInvalidState)
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
        UPDATE work_orders
        SET technician_id = $2, status = 'ASSIGNED'
        WHERE id = $1
        RETURNING `+orderColumns, orderID, technicianID))
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("failed to assign order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WorkOrder{}, fmt.Errorf("failed to commit assignment: %w", err)
	}
	return o, nil
}

func (d *DB) CompleteOrder(ctx context.Context, orderID int64) (models.WorkOrder, error) {
	o, err := scanOrder(d.Pool.QueryRow(ctx, `
        UPDATE work_orders
        SET status = 'COMPLETED'
        WHERE id = $1 AND status IN ('ASSIGNED', 'IN_PROGRESS')
        RETURNING `+orderColumns, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing from non-completable.
			if _, getErr := d.GetOrder(ctx, orderID); getErr != nil {
				return models.WorkOrder{}, getErr
			}
			return models.WorkOrder{}, fmt.Errorf("order %d not completable: %w", orderID, faults.ErrInvalidState)
		}
		return models.WorkOrder{}, fmt.Errorf("failed to complete order %d: %w", orderID, err)
	}
	return o, nil
}

func (d *DB) CountActiveOrders(ctx context.Context, technicianID int64) (int, error) {
	var count int
	err := d.Pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM work_orders
        WHERE technician_id = $1 AND status IN ('ASSIGNED', 'IN_PROGRESS')`, technicianID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active orders for technician %d: %w", technicianID, err)
	}
	return count, nil
}

func (d *DB) ListOrdersByTechnician(ctx context.Context, technicianID int64) ([]models.WorkOrder, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT `+orderColumns+` FROM work_orders
        WHERE technician_id = $1
        ORDER BY created_at DESC`, technicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for technician %d: %w", technicianID, err)
	}
	defer rows.Close()

	var orders []models.WorkOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
