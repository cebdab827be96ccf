package models

import "time"

// SensorType classifies what a sensor measures. The cascade catalog maps
// each type to a problem description and a required specialty.
type SensorType string

const (
	SensorTemperature SensorType = "TEMPERATURE"
	SensorPressure    SensorType = "PRESSURE"
	SensorVibration   SensorType = "VIBRATION"
	SensorCurrent     SensorType = "CURRENT"
	SensorVoltage     SensorType = "VOLTAGE"
	SensorHumidity    SensorType = "HUMIDITY"
)

type AlertKind string

const (
	AlertAboveMax AlertKind = "ABOVE_MAX"
	AlertBelowMin AlertKind = "BELOW_MIN"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderAssigned   OrderStatus = "ASSIGNED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

type OrderPriority string

const (
	PriorityLow    OrderPriority = "LOW"
	PriorityMedium OrderPriority = "MEDIUM"
	PriorityHigh   OrderPriority = "HIGH"
)

type Availability string

const (
	Available Availability = "AVAILABLE"
	Busy      Availability = "BUSY"
)

// Sensor is a provisioned field sensor. Thresholds are optional; a nil
// threshold disables the corresponding breach check.
type Sensor struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"`
	Type         SensorType `json:"type"`
	Location     string     `json:"location"`
	MinThreshold *float64   `json:"min_threshold,omitempty"`
	MaxThreshold *float64   `json:"max_threshold,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`

	// Embedded in detail/list responses, not stored on the sensor row.
	Readings []Reading `json:"readings,omitempty"`
	Alerts   []Alert   `json:"alerts,omitempty"`
}

// Reading is one measurement. Immutable once created.
type Reading struct {
	ID        int64     `json:"id"`
	SensorID  int64     `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type Alert struct {
	ID        int64     `json:"id"`
	SensorID  int64     `json:"sensor_id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Resolved  bool      `json:"resolved"`
	OrderID   *int64    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WorkOrder struct {
	ID                int64         `json:"id"`
	Description       string        `json:"description"`
	Priority          OrderPriority `json:"priority"`
	Status            OrderStatus   `json:"status"`
	ClientID          int64         `json:"client_id"`
	TechnicianID      *int64        `json:"technician_id,omitempty"`
	Location          string        `json:"location,omitempty"`
	Latitude          *float64      `json:"latitude,omitempty"`
	Longitude         *float64      `json:"longitude,omitempty"`
	RequiredSpecialty string        `json:"required_specialty,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

type Technician struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Specialty    string       `json:"specialty"`
	Availability Availability `json:"availability"`
	Latitude     *float64     `json:"latitude,omitempty"`
	Longitude    *float64     `json:"longitude,omitempty"`
}

// TechnicianSnapshot is a technician plus dispatch-time derived data:
// active workload and, when ranking by location, distance to the order.
type TechnicianSnapshot struct {
	Technician
	ActiveOrders int      `json:"active_orders"`
	DistanceKm   *float64 `json:"distance_km,omitempty"`
}

type Client struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// User exists here only so the notifier can address administrators.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

const RoleAdmin = "ADMIN"

// Notification is a persisted best-effort message to a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	OrderID   *int64    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentResult is returned by the dispatch engine after a successful
// assignment.
type AssignmentResult struct {
	Order      WorkOrder          `json:"order"`
	Technician TechnicianSnapshot `json:"technician"`
}
