// Package store defines the persistence boundary for the maintenance core.
// Two implementations exist: the Postgres one in internal/db and the
// in-memory one in this package, which backs tests and the dev profile.
package store

import (
	"context"
	"errors"
	"time"

	"maintenance-service/internal/models"
)

// ErrStaleCandidate reports that a guarded assignment found the technician's
// workload changed between candidate selection and the assignment itself.
// Callers reselect a candidate and try again; it never crosses the API
// boundary.
var ErrStaleCandidate = errors.New("stale candidate")

// SensorUpdate carries the mutable sensor fields. Nil means "leave as is".
type SensorUpdate struct {
	MinThreshold *float64
	MaxThreshold *float64
	Active       *bool
}

// ReadingQuery filters a reading history listing. Zero Limit means the
// implementation's default page size; nil bounds are open.
type ReadingQuery struct {
	Limit int
	From  *time.Time
	To    *time.Time
}

type Store interface {
	// Sensors
	CreateSensor(ctx context.Context, s models.Sensor) (models.Sensor, error)
	GetSensor(ctx context.Context, id int64) (models.Sensor, error)
	GetSensorByCode(ctx context.Context, code string) (models.Sensor, error)
	UpdateSensor(ctx context.Context, id int64, upd SensorUpdate) (models.Sensor, error)
	ListSensors(ctx context.Context, page, limit int, typ *models.SensorType) ([]models.Sensor, int, error)
	ListActiveSensors(ctx context.Context) ([]models.Sensor, error)

	// Readings
	CreateReading(ctx context.Context, r models.Reading) (models.Reading, error)
	// ListReadings returns the reading history newest first, bounded by the
	// query's limit and optional time range.
	ListReadings(ctx context.Context, sensorID int64, q ReadingQuery) ([]models.Reading, error)
	// RecentReadings returns up to n most recent readings for the sensor,
	// ordered oldest first.
	RecentReadings(ctx context.Context, sensorID int64, n int) ([]models.Reading, error)

	// Alerts
	CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error)
	LinkAlertToOrder(ctx context.Context, alertID, orderID int64) error
	ResolveAlert(ctx context.Context, alertID int64) (models.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	ListUnresolvedAlertsBySensor(ctx context.Context, sensorID int64) ([]models.Alert, error)

	// Work orders
	CreateOrder(ctx context.Context, o models.WorkOrder) (models.WorkOrder, error)
	GetOrder(ctx context.Context, id int64) (models.WorkOrder, error)
	// AssignOrder binds the technician to a PENDING order and moves it to
	// ASSIGNED. The status check and the write are atomic, so two concurrent
	// calls cannot both claim the same order. The technician's workload is
	// NOT checked; use AssignOrderToCandidate when the choice of technician
	// depends on it.
	AssignOrder(ctx context.Context, orderID, technicianID int64) (models.WorkOrder, error)
	// AssignOrderToCandidate is AssignOrder guarded by the workload the
	// candidate was selected on: the assignment only commits while the
	// technician's derived active-order count still equals expectedActive,
	// otherwise ErrStaleCandidate is returned and the caller reselects.
	AssignOrderToCandidate(ctx context.Context, orderID, technicianID int64, expectedActive int) (models.WorkOrder, error)
	CompleteOrder(ctx context.Context, orderID int64) (models.WorkOrder, error)
	CountActiveOrders(ctx context.Context, technicianID int64) (int, error)
	ListOrdersByTechnician(ctx context.Context, technicianID int64) ([]models.WorkOrder, error)

	// Technicians
	GetTechnician(ctx context.Context, id int64) (models.Technician, error)
	// ListTechnicianSnapshots returns every technician with the derived
	// count of ASSIGNED/IN_PROGRESS orders, in stable id order.
	ListTechnicianSnapshots(ctx context.Context) ([]models.TechnicianSnapshot, error)
	UpdateTechnicianAvailability(ctx context.Context, id int64, av models.Availability) (models.Technician, error)
	CreateTechnician(ctx context.Context, t models.Technician) (models.Technician, error)

	// Clients
	FindClientByLocationText(ctx context.Context, text string) (models.Client, error)
	AnyClient(ctx context.Context) (models.Client, error)
	CreateClient(ctx context.Context, c models.Client) (models.Client, error)

	// Users and notifications
	ListAdmins(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	CreateNotification(ctx context.Context, n models.Notification) error
}
