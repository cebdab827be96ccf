package sensors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"maintenance-service/internal/cascade"
	"maintenance-service/internal/config"
	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/faults"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

type noopNotifier struct{ calls int }

func (n *noopNotifier) NotifyAdmins(context.Context, string, string, string, *int64) error {
	n.calls++
	return nil
}

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := logging.NewNop()
	eng := dispatch.NewEngine(st, logger)
	gen := cascade.NewGenerator(st, eng, &noopNotifier{}, logger, cascade.DefaultCatalog(), config.FallbackAny)
	svc := New(st, gen, logger)

	if _, err := st.CreateClient(context.Background(), models.Client{Name: "Acme", Address: "Building A"}); err != nil {
		t.Fatal(err)
	}
	return svc, st
}

func ptr(f float64) *float64 { return &f }

func createSensor(t *testing.T, svc *Service, code string, min, max *float64) models.Sensor {
	t.Helper()
	sensor, err := svc.CreateSensor(context.Background(), CreateSensorInput{
		Code:         code,
		Type:         models.SensorTemperature,
		Location:     "Building A",
		MinThreshold: min,
		MaxThreshold: max,
	})
	if err != nil {
		t.Fatalf("create sensor %s: %v", code, err)
	}
	return sensor
}

func TestCreateSensorActivatesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newService(t)

	sensor := createSensor(t, svc, "TEMP-001", ptr(15), ptr(35))
	if !sensor.Active {
		t.Fatal("new sensors should start active")
	}

	_, err := svc.CreateSensor(context.Background(), CreateSensorInput{
		Code: "TEMP-001", Type: models.SensorTemperature,
	})
	if !errors.Is(err, faults.ErrInvalidState) {
		t.Fatalf("expected invalid-state on duplicate code, got %v", err)
	}

	_, err = svc.CreateSensor(context.Background(), CreateSensorInput{
		Code: "   ", Type: models.SensorTemperature,
	})
	if !errors.Is(err, faults.ErrInvalidState) {
		t.Fatalf("expected invalid-state on blank code, got %v", err)
	}
}

func TestRegisterReadingUnknownSensor(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RegisterReading(context.Background(), "NOPE-001", 20)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRegisterReadingInactiveSensorRejected(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	sensor := createSensor(t, svc, "TEMP-002", ptr(15), ptr(35))
	inactive := false
	if _, err := svc.UpdateSensor(ctx, sensor.ID, store.SensorUpdate{Active: &inactive}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.RegisterReading(ctx, "TEMP-002", 20)
	if !errors.Is(err, faults.ErrInvalidState) {
		t.Fatalf("expected invalid-state, got %v", err)
	}
	readings, err := st.ListReadings(ctx, sensor.ID, store.ReadingQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(readings) != 0 {
		t.Fatalf("rejected reading must not be stored, got %d", len(readings))
	}
}

func TestRegisterReadingInRangeProducesNoAlert(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	createSensor(t, svc, "TEMP-003", ptr(15), ptr(35))
	reading, err := svc.RegisterReading(ctx, "TEMP-003", 25)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reading.Value != 25 {
		t.Fatalf("unexpected stored value %g", reading.Value)
	}

	alerts, err := st.ListActiveAlerts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 0 {
		t.Fatalf("in-range reading must not alert, got %d alerts", len(alerts))
	}
}

func TestRegisterReadingAboveMaxCascades(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	createSensor(t, svc, "TEMP-001", ptr(15), ptr(35))
	if _, err := svc.RegisterReading(ctx, "TEMP-001", 40); err != nil {
		t.Fatalf("register: %v", err)
	}

	alerts, err := st.ListActiveAlerts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	alert := alerts[0]
	if alert.Kind != models.AlertAboveMax {
		t.Fatalf("expected ABOVE_MAX, got %s", alert.Kind)
	}
	if !strings.Contains(alert.Message, "40") || !strings.Contains(alert.Message, "35") {
		t.Fatalf("message should carry value and threshold: %q", alert.Message)
	}
	if alert.OrderID == nil {
		t.Fatal("alert should be linked to its order")
	}

	order, err := st.GetOrder(ctx, *alert.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Priority != models.PriorityHigh {
		t.Fatalf("expected HIGH priority, got %s", order.Priority)
	}
	// No technicians registered: dispatch degrades and the order stays open.
	if order.Status != models.OrderPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if order.RequiredSpecialty != "HVAC" {
		t.Fatalf("temperature breach should require HVAC, got %q", order.RequiredSpecialty)
	}
}

func TestRegisterReadingBelowMin(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	createSensor(t, svc, "PRES-001", ptr(15), ptr(35))
	if _, err := svc.RegisterReading(ctx, "PRES-001", 10); err != nil {
		t.Fatalf("register: %v", err)
	}

	alerts, _ := st.ListActiveAlerts(ctx)
	if len(alerts) != 1 || alerts[0].Kind != models.AlertBelowMin {
		t.Fatalf("expected one BELOW_MIN alert, got %+v", alerts)
	}
	if !strings.Contains(alerts[0].Message, "10") || !strings.Contains(alerts[0].Message, "15") {
		t.Fatalf("message should carry value and threshold: %q", alerts[0].Message)
	}
}

func TestRegisterReadingRepeatedBreachesEachAlert(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	createSensor(t, svc, "TEMP-005", nil, ptr(35))
	for _, v := range []float64{40, 41, 42} {
		if _, err := svc.RegisterReading(ctx, "TEMP-005", v); err != nil {
			t.Fatalf("register %g: %v", v, err)
		}
	}

	alerts, _ := st.ListActiveAlerts(ctx)
	if len(alerts) != 3 {
		t.Fatalf("every breach alerts independently, got %d", len(alerts))
	}
}

func TestClassifyInvertedThresholdsMaxWins(t *testing.T) {
	sensor := models.Sensor{Code: "BAD-001", MinThreshold: ptr(50), MaxThreshold: ptr(10)}

	// 30 is above max and below min at once; the max check runs first.
	kind, breached := classify(sensor, 30)
	if !breached {
		t.Fatal("expected a breach")
	}
	if kind != models.AlertAboveMax {
		t.Fatalf("expected ABOVE_MAX precedence, got %s", kind)
	}
}

func TestGetSensorEmbedsHistory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sensor := createSensor(t, svc, "TEMP-006", ptr(15), ptr(35))
	if _, err := svc.RegisterReading(ctx, "TEMP-006", 20); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RegisterReading(ctx, "TEMP-006", 40); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetSensor(ctx, sensor.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Readings) != 2 {
		t.Fatalf("expected two embedded readings, got %d", len(got.Readings))
	}
	if len(got.Alerts) != 1 {
		t.Fatalf("expected one unresolved embedded alert, got %d", len(got.Alerts))
	}

	if _, err := svc.ResolveAlert(ctx, got.Alerts[0].ID); err != nil {
		t.Fatal(err)
	}
	got, err = svc.GetSensor(ctx, sensor.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Alerts) != 0 {
		t.Fatal("resolved alerts should not be embedded")
	}
}
