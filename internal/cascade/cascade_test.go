package cascade

import (
	"context"
	"strings"
	"testing"

	"maintenance-service/internal/config"
	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/notifier"
	"maintenance-service/internal/store"
)

func ptr(f float64) *float64 { return &f }

func newGenerator(t *testing.T, policy config.ClientFallbackPolicy) (*Generator, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := logging.NewNop()
	eng := dispatch.NewEngine(st, logger)
	n := notifier.New(st, nil, logger, 0)
	return NewGenerator(st, eng, n, logger, DefaultCatalog(), policy), st
}

func seedSensor(t *testing.T, st *store.MemoryStore, code string, typ models.SensorType, location string) models.Sensor {
	t.Helper()
	sensor, err := st.CreateSensor(context.Background(), models.Sensor{
		Code:         code,
		Type:         typ,
		Location:     location,
		MinThreshold: ptr(15),
		MaxThreshold: ptr(35),
		Active:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sensor
}

func TestOnBreachFullCascade(t *testing.T) {
	gen, st := newGenerator(t, config.FallbackAny)
	ctx := context.Background()

	sensor := seedSensor(t, st, "TEMP-001", models.SensorTemperature, "Building A")
	if _, err := st.CreateClient(ctx, models.Client{Name: "Acme", Address: "Building A"}); err != nil {
		t.Fatal(err)
	}
	tech, err := st.CreateTechnician(ctx, models.Technician{Name: "Clara", Specialty: "HVAC"})
	if err != nil {
		t.Fatal(err)
	}
	admin, err := st.CreateUser(ctx, models.User{Name: "Root", Role: models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}

	reading, err := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 40})
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := gen.OnBreach(ctx, sensor, reading, models.AlertAboveMax)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}

	if outcome.Alert.Kind != models.AlertAboveMax {
		t.Fatalf("expected ABOVE_MAX alert, got %s", outcome.Alert.Kind)
	}
	if !strings.Contains(outcome.Alert.Message, "40") || !strings.Contains(outcome.Alert.Message, "35") {
		t.Fatalf("alert message missing value or threshold: %q", outcome.Alert.Message)
	}
	if outcome.Order == nil {
		t.Fatal("expected a work order")
	}
	if outcome.Order.Priority != models.PriorityHigh {
		t.Fatalf("expected HIGH priority, got %s", outcome.Order.Priority)
	}
	if outcome.Order.RequiredSpecialty != "HVAC" {
		t.Fatalf("temperature maps to HVAC, got %q", outcome.Order.RequiredSpecialty)
	}
	if !outcome.Assigned || outcome.Order.Status != models.OrderAssigned {
		t.Fatalf("expected assignment, status %s", outcome.Order.Status)
	}
	if outcome.Order.TechnicianID == nil || *outcome.Order.TechnicianID != tech.ID {
		t.Fatal("order should be bound to the HVAC technician")
	}
	if outcome.Alert.OrderID == nil || *outcome.Alert.OrderID != outcome.Order.ID {
		t.Fatal("alert should be linked to the order")
	}

	notifications := st.Notifications()
	if len(notifications) != 1 {
		t.Fatalf("expected one admin notification, got %d", len(notifications))
	}
	if notifications[0].UserID != admin.ID {
		t.Fatal("notification should target the admin")
	}
	if notifications[0].OrderID == nil || *notifications[0].OrderID != outcome.Order.ID {
		t.Fatal("notification should reference the order")
	}
}

func TestOnBreachNoTechnicianLeavesOrderPending(t *testing.T) {
	gen, st := newGenerator(t, config.FallbackAny)
	ctx := context.Background()

	sensor := seedSensor(t, st, "TEMP-002", models.SensorTemperature, "Building A")
	if _, err := st.CreateClient(ctx, models.Client{Name: "Acme", Address: "Building A"}); err != nil {
		t.Fatal(err)
	}
	reading, _ := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 40})

	outcome, err := gen.OnBreach(ctx, sensor, reading, models.AlertAboveMax)
	if err != nil {
		t.Fatalf("dispatch degradation must not fail the cascade: %v", err)
	}
	if outcome.Assigned {
		t.Fatal("nothing to assign to")
	}
	if outcome.Order == nil || outcome.Order.Status != models.OrderPending {
		t.Fatalf("expected a PENDING order, got %+v", outcome.Order)
	}
}

func TestOnBreachStrictPolicyStopsWithoutClient(t *testing.T) {
	gen, st := newGenerator(t, config.FallbackStrict)
	ctx := context.Background()

	sensor := seedSensor(t, st, "TEMP-003", models.SensorTemperature, "Warehouse 9")
	if _, err := st.CreateClient(ctx, models.Client{Name: "Acme", Address: "Building A"}); err != nil {
		t.Fatal(err)
	}
	reading, _ := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 40})

	outcome, err := gen.OnBreach(ctx, sensor, reading, models.AlertAboveMax)
	if err == nil {
		t.Fatal("STRICT policy should report the stopped cascade")
	}
	if outcome.Alert.ID == 0 {
		t.Fatal("the alert must land even when the cascade stops")
	}
	if outcome.Order != nil {
		t.Fatal("no order under STRICT without a matching client")
	}

	alerts, _ := st.ListActiveAlerts(ctx)
	if len(alerts) != 1 {
		t.Fatalf("expected the alert to persist, got %d", len(alerts))
	}
}

func TestOnBreachFallbackPolicyUsesAnyClient(t *testing.T) {
	gen, st := newGenerator(t, config.FallbackAny)
	ctx := context.Background()

	sensor := seedSensor(t, st, "TEMP-004", models.SensorTemperature, "Warehouse 9")
	client, err := st.CreateClient(ctx, models.Client{Name: "Acme", Address: "Building A"})
	if err != nil {
		t.Fatal(err)
	}
	reading, _ := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 40})

	outcome, err := gen.OnBreach(ctx, sensor, reading, models.AlertAboveMax)
	if err != nil {
		t.Fatalf("fallback policy should keep the cascade alive: %v", err)
	}
	if outcome.Order == nil || outcome.Order.ClientID != client.ID {
		t.Fatal("order should fall back to the only client")
	}
}

func TestOnBreachBelowMinMessage(t *testing.T) {
	gen, st := newGenerator(t, config.FallbackAny)
	ctx := context.Background()

	sensor := seedSensor(t, st, "PRES-001", models.SensorPressure, "Building A")
	if _, err := st.CreateClient(ctx, models.Client{Name: "Acme", Address: "Building A"}); err != nil {
		t.Fatal(err)
	}
	reading, _ := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 10})

	outcome, err := gen.OnBreach(ctx, sensor, reading, models.AlertBelowMin)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(outcome.Alert.Message, "below min") {
		t.Fatalf("unexpected message %q", outcome.Alert.Message)
	}
	if outcome.Order.RequiredSpecialty != "Hydraulics" {
		t.Fatalf("pressure maps to Hydraulics, got %q", outcome.Order.RequiredSpecialty)
	}
}

func TestCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()

	cases := []struct {
		typ       models.SensorType
		specialty string
	}{
		{models.SensorTemperature, "HVAC"},
		{models.SensorPressure, "Hydraulics"},
		{models.SensorVibration, "Mechanical"},
		{models.SensorCurrent, "Industrial Electricity"},
		{models.SensorVoltage, "Industrial Electricity"},
		{models.SensorHumidity, "HVAC"},
	}
	for _, c := range cases {
		if got := cat.Lookup(c.typ); got.Specialty != c.specialty {
			t.Errorf("%s: expected %q, got %q", c.typ, c.specialty, got.Specialty)
		}
	}

	// Unknown types fall through to the generic entry.
	entry := cat.Lookup(models.SensorType("GAMMA_RAY"))
	if entry.Specialty != "General" {
		t.Fatalf("expected General fallback, got %q", entry.Specialty)
	}
	if entry.Problem == "" {
		t.Fatal("fallback entry needs a problem description")
	}
}

func TestBreachMessageShapes(t *testing.T) {
	sensor := models.Sensor{Code: "TEMP-001", MinThreshold: ptr(15), MaxThreshold: ptr(35)}

	above := breachMessage(sensor, 40, models.AlertAboveMax)
	if above != "Sensor TEMP-001 above max threshold: 40 > 35" {
		t.Fatalf("unexpected above-max message: %q", above)
	}
	below := breachMessage(sensor, 10, models.AlertBelowMin)
	if below != "Sensor TEMP-001 below min threshold: 10 < 15" {
		t.Fatalf("unexpected below-min message: %q", below)
	}
}

func TestBreachCompletionRestoresTechnician(t *testing.T) {
	gen, st := newGenerator(t, config.FallbackAny)
	ctx := context.Background()
	eng := dispatch.NewEngine(st, logging.NewNop())

	sensor := seedSensor(t, st, "TEMP-005", models.SensorTemperature, "Building A")
	if _, err := st.CreateClient(ctx, models.Client{Name: "Acme", Address: "Building A"}); err != nil {
		t.Fatal(err)
	}
	tech, err := st.CreateTechnician(ctx, models.Technician{Name: "Clara", Specialty: "HVAC"})
	if err != nil {
		t.Fatal(err)
	}

	reading, _ := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 40})
	outcome, err := gen.OnBreach(ctx, sensor, reading, models.AlertAboveMax)
	if err != nil || !outcome.Assigned {
		t.Fatalf("expected assignment, err=%v", err)
	}
	if _, err := st.UpdateTechnicianAvailability(ctx, tech.ID, models.Busy); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.OnOrderCompleted(ctx, outcome.Order.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetTechnician(ctx, tech.ID)
	if got.Availability != models.Available {
		t.Fatalf("expected AVAILABLE after the order closed, got %s", got.Availability)
	}
}
