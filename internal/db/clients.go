package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/models"
)

func (d *DB) FindClientByLocationText(ctx context.Context, text string) (models.Client, error) {
	var c models.Client
	err := d.Pool.QueryRow(ctx, `
        SELECT id, name, address FROM clients
        WHERE address ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
        ORDER BY id ASC
        LIMIT 1`, text).Scan(&c.ID, &c.Name, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Client{}, fmt.Errorf("client for location %q: %w", text, faults.ErrNotFound)
		}
		return models.Client{}, fmt.Errorf("failed to find client for location %q: %w", text, err)
	}
	return c, nil
}

func (d *DB) AnyClient(ctx context.Context) (models.Client, error) {
	var c models.Client
	err := d.Pool.QueryRow(ctx, `SELECT id, name, address FROM clients ORDER BY id ASC LIMIT 1`).Scan(
		&c.ID, &c.Name, &c.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Client{}, fmt.Errorf("no clients: %w", faults.ErrNotFound)
		}
		return models.Client{}, fmt.Errorf("failed to get fallback client: %w", err)
	}
	return c, nil
}

func (d *DB) CreateClient(ctx context.Context, c models.Client) (models.Client, error) {
	err := d.Pool.QueryRow(ctx, `
        INSERT INTO clients (name, address) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Address).Scan(&c.ID)
	if err != nil {
		return models.Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}
