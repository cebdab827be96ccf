// Package dispatch selects technicians for work orders and performs the
// assignment. Candidate ranking happens in memory over snapshots; the
// auto-assignment write is guarded by the workload the candidate was ranked
// on, so a selection that raced a concurrent assignment reruns instead of
// double-booking.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

const earthRadiusKm = 6371

type Engine struct {
	store  store.Store
	logger *logging.Logger
}

func NewEngine(st store.Store, logger *logging.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

func (e *Engine) availableSnapshots(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	all, err := e.store.ListTechnicianSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	var available []models.TechnicianSnapshot
	for _, t := range all {
		if t.Availability == models.Available {
			available = append(available, t)
		}
	}
	return available, nil
}

// FindClosestAvailable ranks AVAILABLE technicians by distance to the given
// point. Technicians without known coordinates are ranked strictly after
// located ones, preserving input order; there is no sentinel distance.
func (e *Engine) FindClosestAvailable(ctx context.Context, lat, lon float64) (models.TechnicianSnapshot, bool, error) {
	available, err := e.availableSnapshots(ctx)
	if err != nil {
		return models.TechnicianSnapshot{}, false, err
	}

	var located, unlocated []models.TechnicianSnapshot
	for _, t := range available {
		if t.Latitude != nil && t.Longitude != nil {
			d := DistanceKm(lat, lon, *t.Latitude, *t.Longitude)
			t.DistanceKm = &d
			located = append(located, t)
		} else {
			unlocated = append(unlocated, t)
		}
	}
	sort.SliceStable(located, func(i, j int) bool {
		return *located[i].DistanceKm < *located[j].DistanceKm
	})

	if len(located) > 0 {
		return located[0], true, nil
	}
	if len(unlocated) > 0 {
		return unlocated[0], true, nil
	}
	return models.TechnicianSnapshot{}, false, nil
}

// FindMostAvailable returns the AVAILABLE technician with the smallest
// derived workload. Ties resolve to the first encountered.
func (e *Engine) FindMostAvailable(ctx context.Context) (models.TechnicianSnapshot, bool, error) {
	available, err := e.availableSnapshots(ctx)
	if err != nil {
		return models.TechnicianSnapshot{}, false, err
	}
	if len(available) == 0 {
		return models.TechnicianSnapshot{}, false, nil
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].ActiveOrders < available[j].ActiveOrders
	})
	return available[0], true, nil
}

// FindBySpecialty filters AVAILABLE technicians whose specialty contains the
// given text (case-insensitive) and picks the least loaded among them.
// Fallback when nothing matches is the caller's decision.
func (e *Engine) FindBySpecialty(ctx context.Context, specialty string) (models.TechnicianSnapshot, bool, error) {
	available, err := e.availableSnapshots(ctx)
	if err != nil {
		return models.TechnicianSnapshot{}, false, err
	}
	needle := strings.ToLower(specialty)
	var matches []models.TechnicianSnapshot
	for _, t := range available {
		if strings.Contains(strings.ToLower(t.Specialty), needle) {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return models.TechnicianSnapshot{}, false, nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ActiveOrders < matches[j].ActiveOrders
	})
	return matches[0], true, nil
}

// FindByName matches any technician (busy ones included) by name or by the
// derived identifier "tech-<id>", case-insensitive.
func (e *Engine) FindByName(ctx context.Context, text string) (models.TechnicianSnapshot, bool, error) {
	all, err := e.store.ListTechnicianSnapshots(ctx)
	if err != nil {
		return models.TechnicianSnapshot{}, false, err
	}
	needle := strings.ToLower(text)
	for _, t := range all {
		ident := fmt.Sprintf("tech-%d", t.ID)
		if strings.Contains(strings.ToLower(t.Name), needle) || strings.Contains(ident, needle) {
			return t, true, nil
		}
	}
	return models.TechnicianSnapshot{}, false, nil
}

// Assign binds the technician to the order and returns the updated order
// with a fresh technician snapshot. Availability and workload are not
// checked here: the manual path is a dispatcher override and may stack work
// on a BUSY technician.
func (e *Engine) Assign(ctx context.Context, orderID, technicianID int64) (models.AssignmentResult, error) {
	order, err := e.store.AssignOrder(ctx, orderID, technicianID)
	if err != nil {
		return models.AssignmentResult{}, err
	}
	return e.assignmentResult(ctx, order, technicianID)
}

func (e *Engine) assignmentResult(ctx context.Context, order models.WorkOrder, technicianID int64) (models.AssignmentResult, error) {
	tech, err := e.store.GetTechnician(ctx, technicianID)
	if err != nil {
		return models.AssignmentResult{}, err
	}
	active, err := e.store.CountActiveOrders(ctx, technicianID)
	if err != nil {
		return models.AssignmentResult{}, err
	}

	e.logger.Infof("Order %d assigned to technician %s (%d active orders)", order.ID, tech.Name, active)
	return models.AssignmentResult{
		Order:      order,
		Technician: models.TechnicianSnapshot{Technician: tech, ActiveOrders: active},
	}, nil
}

// Retries after losing a candidate to a concurrent assignment. Each retry
// reselects against committed state, so the bound only matters under
// sustained contention.
const maxAssignAttempts = 3

// AutoAssign picks a technician for the order and binds them atomically:
// the assignment only commits while the candidate's workload still matches
// the selection, otherwise selection reruns. Preference order is specialty
// match when the order requires one, then closest when the order carries
// coordinates, then least loaded. The order stays PENDING when nothing
// matches.
func (e *Engine) AutoAssign(ctx context.Context, orderID int64) (models.AssignmentResult, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return models.AssignmentResult{}, err
	}

	for attempt := 1; attempt <= maxAssignAttempts; attempt++ {
		candidate, found, err := e.selectCandidate(ctx, order)
		if err != nil {
			return models.AssignmentResult{}, err
		}
		if !found {
			return models.AssignmentResult{}, fmt.Errorf("no technician for order %d: %w", orderID, faults.ErrNoAvailableResource)
		}

		assigned, err := e.store.AssignOrderToCandidate(ctx, orderID, candidate.ID, candidate.ActiveOrders)
		if errors.Is(err, store.ErrStaleCandidate) {
			e.logger.Infof("Candidate %d for order %d went stale, reselecting", candidate.ID, orderID)
			continue
		}
		if err != nil {
			return models.AssignmentResult{}, err
		}
		return e.assignmentResult(ctx, assigned, candidate.ID)
	}
	return models.AssignmentResult{}, fmt.Errorf("no settled candidate for order %d after %d attempts: %w",
		orderID, maxAssignAttempts, faults.ErrNoAvailableResource)
}

func (e *Engine) selectCandidate(ctx context.Context, order models.WorkOrder) (models.TechnicianSnapshot, bool, error) {
	if order.RequiredSpecialty != "" {
		candidate, found, err := e.FindBySpecialty(ctx, order.RequiredSpecialty)
		if err != nil || found {
			return candidate, found, err
		}
	}
	if order.Latitude != nil && order.Longitude != nil {
		candidate, found, err := e.FindClosestAvailable(ctx, *order.Latitude, *order.Longitude)
		if err != nil || found {
			return candidate, found, err
		}
	}
	return e.FindMostAvailable(ctx)
}

// ListTechnicians returns every technician with derived workload.
func (e *Engine) ListTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	return e.store.ListTechnicianSnapshots(ctx)
}

// SetAvailability manually overrides a technician's availability.
func (e *Engine) SetAvailability(ctx context.Context, technicianID int64, av models.Availability) (models.Technician, error) {
	return e.store.UpdateTechnicianAvailability(ctx, technicianID, av)
}

// OrdersFor lists a technician's orders, newest first.
func (e *Engine) OrdersFor(ctx context.Context, technicianID int64) ([]models.WorkOrder, error) {
	if _, err := e.store.GetTechnician(ctx, technicianID); err != nil {
		return nil, err
	}
	return e.store.ListOrdersByTechnician(ctx, technicianID)
}

// OnOrderCompleted moves the order to COMPLETED and recomputes the assigned
// technician's workload. At zero remaining active orders the technician's
// availability flips back to AVAILABLE; this is the only place availability
// is restored.
func (e *Engine) OnOrderCompleted(ctx context.Context, orderID int64) (models.WorkOrder, error) {
	order, err := e.store.CompleteOrder(ctx, orderID)
	if err != nil {
		return models.WorkOrder{}, err
	}
	if order.TechnicianID == nil {
		return order, nil
	}

	remaining, err := e.store.CountActiveOrders(ctx, *order.TechnicianID)
	if err != nil {
		return models.WorkOrder{}, err
	}
	e.logger.Infof("Technician %d has %d active orders remaining", *order.TechnicianID, remaining)
	if remaining == 0 {
		if _, err := e.store.UpdateTechnicianAvailability(ctx, *order.TechnicianID, models.Available); err != nil {
			return models.WorkOrder{}, err
		}
	}
	return order, nil
}
