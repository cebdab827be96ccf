// Package cascade turns a threshold breach into an alert, a high-priority
// work order, and a dispatch attempt.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"maintenance-service/internal/config"
	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/faults"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

// Notifier is the narrow collaborator contract for admin notification.
// Implementations are best-effort; the cascade never fails on their errors.
type Notifier interface {
	NotifyAdmins(ctx context.Context, kind, title, message string, orderID *int64) error
}

type Generator struct {
	store    store.Store
	dispatch *dispatch.Engine
	notifier Notifier
	logger   *logging.Logger
	catalog  Catalog
	policy   config.ClientFallbackPolicy
}

func NewGenerator(st store.Store, eng *dispatch.Engine, n Notifier, logger *logging.Logger, catalog Catalog, policy config.ClientFallbackPolicy) *Generator {
	return &Generator{
		store:    st,
		dispatch: eng,
		notifier: n,
		logger:   logger,
		catalog:  catalog,
		policy:   policy,
	}
}

// Outcome reports what the cascade produced. Order and Assigned are zero
// when the corresponding step did not happen.
type Outcome struct {
	Alert    models.Alert
	Order    *models.WorkOrder
	Assigned bool
}

// OnBreach creates the alert, cascades it into a work order, and attempts
// auto-assignment. The alert always lands; later steps degrade per policy:
// a missing client under STRICT stops the cascade after the alert, and a
// failed dispatch leaves the order PENDING.
func (g *Generator) OnBreach(ctx context.Context, sensor models.Sensor, reading models.Reading, kind models.AlertKind) (Outcome, error) {
	message := breachMessage(sensor, reading.Value, kind)

	alert, err := g.store.CreateAlert(ctx, models.Alert{
		SensorID: sensor.ID,
		Kind:     kind,
		Message:  message,
		Value:    reading.Value,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create alert: %w", err)
	}
	g.logger.Warnf("Alert: %s", message)

	client, err := g.resolveClient(ctx, sensor.Location)
	if err != nil {
		return Outcome{Alert: alert}, fmt.Errorf("cascade for alert %d stopped: %w", alert.ID, err)
	}

	entry := g.catalog.Lookup(sensor.Type)
	order, err := g.store.CreateOrder(ctx, models.WorkOrder{
		Description:       fmt.Sprintf("%s. %s. Location: %s", entry.Problem, message, sensor.Location),
		Priority:          models.PriorityHigh,
		Status:            models.OrderPending,
		ClientID:          client.ID,
		Location:          sensor.Location,
		RequiredSpecialty: entry.Specialty,
	})
	if err != nil {
		return Outcome{Alert: alert}, fmt.Errorf("failed to create order for alert %d: %w", alert.ID, err)
	}

	if err := g.store.LinkAlertToOrder(ctx, alert.ID, order.ID); err != nil {
		return Outcome{Alert: alert, Order: &order}, fmt.Errorf("failed to link alert %d: %w", alert.ID, err)
	}
	alert.OrderID = &order.ID

	result, err := g.dispatch.AutoAssign(ctx, order.ID)
	if err != nil {
		// The order stands; dispatch failure is reported, not retried.
		if errors.Is(err, faults.ErrNoAvailableResource) {
			g.logger.Warnf("No technician available for order %d, left PENDING", order.ID)
		} else {
			g.logger.Errorf("Auto-assign for order %d failed: %v", order.ID, err)
		}
		return Outcome{Alert: alert, Order: &order}, nil
	}
	order = result.Order

	title := "IoT alert - automatic order"
	body := fmt.Sprintf("%s. Order #%d created and assigned to %s.", message, order.ID, result.Technician.Name)
	if err := g.notifier.NotifyAdmins(ctx, "IOT_ALERT", title, body, &order.ID); err != nil {
		g.logger.Warnf("Admin notification for order %d failed: %v", order.ID, err)
	}

	return Outcome{Alert: alert, Order: &order, Assigned: true}, nil
}

func (g *Generator) resolveClient(ctx context.Context, location string) (models.Client, error) {
	client, err := g.store.FindClientByLocationText(ctx, location)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, faults.ErrNotFound) {
		return models.Client{}, fmt.Errorf("client lookup failed: %w", faults.ErrUpstreamUnavailable)
	}

	if g.policy == config.FallbackStrict {
		return models.Client{}, fmt.Errorf("no client matches location %q: %w", location, faults.ErrNotFound)
	}

	g.logger.Warnf("No client matches location %q, falling back to any client", location)
	return g.store.AnyClient(ctx)
}

func breachMessage(sensor models.Sensor, value float64, kind models.AlertKind) string {
	if kind == models.AlertAboveMax {
		return fmt.Sprintf("Sensor %s above max threshold: %g > %g", sensor.Code, value, *sensor.MaxThreshold)
	}
	return fmt.Sprintf("Sensor %s below min threshold: %g < %g", sensor.Code, value, *sensor.MinThreshold)
}
