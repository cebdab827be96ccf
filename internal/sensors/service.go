// Package sensors holds the sensor registry and the threshold evaluator.
package sensors

import (
	"context"
	"fmt"
	"strings"

	"maintenance-service/internal/cascade"
	"maintenance-service/internal/faults"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

type Service struct {
	store   store.Store
	cascade *cascade.Generator
	logger  *logging.Logger
}

func New(st store.Store, gen *cascade.Generator, logger *logging.Logger) *Service {
	return &Service{store: st, cascade: gen, logger: logger}
}

// CreateSensorInput carries the provisioning fields.
type CreateSensorInput struct {
	Code         string            `json:"code" binding:"required"`
	Type         models.SensorType `json:"type" binding:"required"`
	Location     string            `json:"location"`
	MinThreshold *float64          `json:"min_threshold"`
	MaxThreshold *float64          `json:"max_threshold"`
}

func (s *Service) CreateSensor(ctx context.Context, in CreateSensorInput) (models.Sensor, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return models.Sensor{}, fmt.Errorf("sensor code is required: %w", faults.ErrInvalidState)
	}
	sensor, err := s.store.CreateSensor(ctx, models.Sensor{
		Code:         code,
		Type:         in.Type,
		Location:     in.Location,
		MinThreshold: in.MinThreshold,
		MaxThreshold: in.MaxThreshold,
		Active:       true,
	})
	if err != nil {
		return models.Sensor{}, err
	}
	s.logger.Infof("Sensor provisioned: %s (%s)", sensor.Code, sensor.Type)
	return sensor, nil
}

func (s *Service) UpdateSensor(ctx context.Context, id int64, upd store.SensorUpdate) (models.Sensor, error) {
	return s.store.UpdateSensor(ctx, id, upd)
}

// GetSensor returns the sensor with its last 20 readings and unresolved
// alerts embedded.
func (s *Service) GetSensor(ctx context.Context, id int64) (models.Sensor, error) {
	sensor, err := s.store.GetSensor(ctx, id)
	if err != nil {
		return models.Sensor{}, err
	}
	readings, err := s.store.RecentReadings(ctx, id, 20)
	if err != nil {
		return models.Sensor{}, err
	}
	alerts, err := s.store.ListUnresolvedAlertsBySensor(ctx, id)
	if err != nil {
		return models.Sensor{}, err
	}
	sensor.Readings = readings
	sensor.Alerts = alerts
	return sensor, nil
}

func (s *Service) ListSensors(ctx context.Context, page, limit int, typ *models.SensorType) ([]models.Sensor, int, error) {
	return s.store.ListSensors(ctx, page, limit, typ)
}

func (s *Service) ListReadings(ctx context.Context, sensorID int64, q store.ReadingQuery) ([]models.Reading, error) {
	if _, err := s.store.GetSensor(ctx, sensorID); err != nil {
		return nil, err
	}
	return s.store.ListReadings(ctx, sensorID, q)
}

func (s *Service) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.store.ListActiveAlerts(ctx)
}

func (s *Service) ResolveAlert(ctx context.Context, alertID int64) (models.Alert, error) {
	return s.store.ResolveAlert(ctx, alertID)
}

// RegisterReading validates and persists a reading, then classifies it
// against the sensor's thresholds. On a breach the cascade runs
// synchronously before the reading is returned; cascade degradation is
// logged but never rolls back the reading.
func (s *Service) RegisterReading(ctx context.Context, sensorCode string, value float64) (models.Reading, error) {
	sensor, err := s.store.GetSensorByCode(ctx, sensorCode)
	if err != nil {
		return models.Reading{}, err
	}
	if !sensor.Active {
		return models.Reading{}, fmt.Errorf("sensor %s is inactive: %w", sensorCode, faults.ErrInvalidState)
	}

	reading, err := s.store.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: value})
	if err != nil {
		return models.Reading{}, err
	}

	kind, breached := classify(sensor, value)
	if breached {
		if sensor.MinThreshold != nil && sensor.MaxThreshold != nil && *sensor.MinThreshold > *sensor.MaxThreshold {
			s.logger.Warnf("Sensor %s has inverted thresholds (min %g > max %g); max check takes precedence",
				sensor.Code, *sensor.MinThreshold, *sensor.MaxThreshold)
		}
		if _, err := s.cascade.OnBreach(ctx, sensor, reading, kind); err != nil {
			s.logger.Errorf("Cascade for sensor %s degraded: %v", sensor.Code, err)
		}
	}

	return reading, nil
}

// classify compares a value against the sensor's thresholds. The max check
// runs first, so with inverted thresholds ABOVE_MAX wins.
func classify(sensor models.Sensor, value float64) (models.AlertKind, bool) {
	if sensor.MaxThreshold != nil && value > *sensor.MaxThreshold {
		return models.AlertAboveMax, true
	}
	if sensor.MinThreshold != nil && value < *sensor.MinThreshold {
		return models.AlertBelowMin, true
	}
	return "", false
}
