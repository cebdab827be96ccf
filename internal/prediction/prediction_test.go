package prediction

import (
	"context"
	"testing"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

func ptr(f float64) *float64 { return &f }

// repeat builds a window by concatenating each block count times.
func repeat(blocks ...[]float64) []float64 {
	var out []float64
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

func TestAnalyzeHighRiskSensorIsCritical(t *testing.T) {
	sensor := models.Sensor{ID: 1, Code: "TEMP-001", MaxThreshold: ptr(100)}

	// Two identical halves (stable trend), four of sixteen readings above the
	// max (25% out of range) and a wide spread (CV well above 30%).
	half := []float64{40, 160, 40, 40, 160, 40, 40, 40}
	values := repeat(half, half)

	p, ok := analyze(sensor, values, 3)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if p.Probability != 95 {
		t.Fatalf("expected probability 95, got %d", p.Probability)
	}
	if p.Urgency != models.UrgencyCritical {
		t.Fatalf("expected CRITICAL, got %s", p.Urgency)
	}
	if len(p.Reasons) != 3 {
		t.Fatalf("expected three reasons, got %v", p.Reasons)
	}
	if p.Recommendation == "" {
		t.Fatal("expected a recommendation")
	}
}

func TestAnalyzeClampsAtHundred(t *testing.T) {
	sensor := models.Sensor{ID: 1, Code: "VIB-001", MaxThreshold: ptr(100)}
	half := []float64{40, 160, 40, 40, 160, 40, 40, 40}
	values := repeat(half, half)

	p, ok := analyze(sensor, values, 10)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if p.Probability != 100 {
		t.Fatalf("expected clamp at 100, got %d", p.Probability)
	}
	if p.Urgency != models.UrgencyCritical {
		t.Fatalf("expected CRITICAL, got %s", p.Urgency)
	}
}

func TestAnalyzeRisingTrendNearMax(t *testing.T) {
	sensor := models.Sensor{ID: 2, Code: "TEMP-002", MaxThreshold: ptr(100)}
	values := []float64{86, 87, 88, 89, 90, 91, 92, 93, 94, 95}

	p, ok := analyze(sensor, values, 0)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if p.Probability != nearThresholdScore {
		t.Fatalf("expected %d, got %d", nearThresholdScore, p.Probability)
	}
	if p.Urgency != models.UrgencyMedium {
		t.Fatalf("expected MEDIUM, got %s", p.Urgency)
	}
}

func TestAnalyzeFallingTrendNearMin(t *testing.T) {
	sensor := models.Sensor{ID: 3, Code: "PRES-001", MinThreshold: ptr(10)}
	values := repeat(
		[]float64{11.5, 11.5, 11.5, 11.5, 11.5},
		[]float64{10.2, 10.2, 10.2, 10.2, 10.2},
	)

	p, ok := analyze(sensor, values, 0)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if p.Probability != nearThresholdScore {
		t.Fatalf("expected %d, got %d", nearThresholdScore, p.Probability)
	}
}

func TestAnalyzeQuietSensorProducesNothing(t *testing.T) {
	sensor := models.Sensor{ID: 4, Code: "HUM-001", MinThreshold: ptr(0), MaxThreshold: ptr(100)}
	values := []float64{50, 50, 50, 50, 50, 50, 50, 50, 50, 50}

	if _, ok := analyze(sensor, values, 0); ok {
		t.Fatal("stable in-range sensor should produce no prediction")
	}
}

func TestAnalyzeOutOfRangeScoreNeverDecreases(t *testing.T) {
	sensor := models.Sensor{ID: 5, Code: "CUR-001", MaxThreshold: ptr(100)}

	low := make([]float64, 20)
	high := make([]float64, 20)
	for i := range low {
		low[i], high[i] = 99, 99
	}
	// One of twenty out of range vs five of twenty.
	low[0] = 101
	high[0], high[4], high[8], high[12], high[16] = 101, 101, 101, 101, 101

	pLow, okLow := analyze(sensor, low, 0)
	pHigh, okHigh := analyze(sensor, high, 0)
	if !okHigh {
		t.Fatal("expected a prediction at 25% out of range")
	}
	if pHigh.Probability != highOutOfRangeScore {
		t.Fatalf("expected %d, got %d", highOutOfRangeScore, pHigh.Probability)
	}
	scoreLow := 0
	if okLow {
		scoreLow = pLow.Probability
	}
	if scoreLow > pHigh.Probability {
		t.Fatalf("score decreased as out-of-range ratio grew: %d > %d", scoreLow, pHigh.Probability)
	}
}

func TestAnalyzeZeroMeanSkipsVariability(t *testing.T) {
	sensor := models.Sensor{ID: 6, Code: "VOLT-001", MaxThreshold: ptr(5)}
	values := []float64{-10, 10, -10, 10, -10, 10, -10, 10, -10, 10}

	// CV is undefined at zero mean; the only contribution here is the 50%
	// out-of-range ratio.
	p, ok := analyze(sensor, values, 0)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if p.Probability != highOutOfRangeScore {
		t.Fatalf("expected %d, got %d", highOutOfRangeScore, p.Probability)
	}
}

func TestPredictFailuresSkipsShortHistory(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	e := NewEngine(st, logging.NewNop(), 100, 10)

	sensor, err := st.CreateSensor(ctx, models.Sensor{
		Code: "TEMP-010", Type: models.SensorTemperature, MaxThreshold: ptr(35), Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := st.CreateReading(ctx, models.Reading{SensorID: sensor.ID, Value: 100}); err != nil {
			t.Fatal(err)
		}
	}

	predictions, err := e.PredictFailures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(predictions) != 0 {
		t.Fatalf("five readings should be excluded, got %d predictions", len(predictions))
	}
}

func TestPredictFailuresOrdersByProbability(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	e := NewEngine(st, logging.NewNop(), 100, 10)

	critical, err := st.CreateSensor(ctx, models.Sensor{
		Code: "TEMP-020", Type: models.SensorTemperature, MaxThreshold: ptr(100), Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	half := []float64{40, 160, 40, 40, 160, 40, 40, 40}
	for _, v := range repeat(half, half) {
		if _, err := st.CreateReading(ctx, models.Reading{SensorID: critical.ID, Value: v}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := st.CreateAlert(ctx, models.Alert{SensorID: critical.ID, Kind: models.AlertAboveMax, Value: 160}); err != nil {
			t.Fatal(err)
		}
	}

	medium, err := st.CreateSensor(ctx, models.Sensor{
		Code: "TEMP-021", Type: models.SensorTemperature, MaxThreshold: ptr(100), Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []float64{86, 87, 88, 89, 90, 91, 92, 93, 94, 95} {
		if _, err := st.CreateReading(ctx, models.Reading{SensorID: medium.ID, Value: v}); err != nil {
			t.Fatal(err)
		}
	}

	predictions, err := e.PredictFailures(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(predictions) != 2 {
		t.Fatalf("expected two predictions, got %d", len(predictions))
	}
	if predictions[0].SensorCode != "TEMP-020" || predictions[1].SensorCode != "TEMP-021" {
		t.Fatalf("expected descending probability order, got %s then %s",
			predictions[0].SensorCode, predictions[1].SensorCode)
	}

	stats, err := e.GetAggregateStatistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAnalyzed != 2 || stats.Critical != 1 || stats.Medium != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.MeanProbability != 68 {
		t.Fatalf("expected mean 68, got %d", stats.MeanProbability)
	}
}
