// Package prediction ranks sensors by failure probability derived from
// their recent reading window and unresolved alert count.
package prediction

import (
	"context"
	"fmt"
	"math"
	"sort"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

type trend int

const (
	trendStable trend = iota
	trendRising
	trendFalling
)

// Score contributions and limits. Values below minScore are treated as
// negligible risk and produce no prediction.
const (
	nearThresholdScore   = 40
	towardThresholdScore = 25
	highVariabilityScore = 30
	modVariabilityScore  = 15
	perAlertScore        = 10
	highOutOfRangeScore  = 35
	modOutOfRangeScore   = 20
	minScore             = 15
	maxScore             = 100
)

type Engine struct {
	store       store.Store
	logger      *logging.Logger
	window      int
	minReadings int
}

func NewEngine(st store.Store, logger *logging.Logger, window, minReadings int) *Engine {
	if window <= 0 {
		window = 100
	}
	if minReadings <= 0 {
		minReadings = 10
	}
	return &Engine{store: st, logger: logger, window: window, minReadings: minReadings}
}

// PredictFailures analyzes every active sensor and returns predictions
// ordered by descending probability. Sensors with too little history are
// silently excluded.
func (e *Engine) PredictFailures(ctx context.Context) ([]models.FailurePrediction, error) {
	sensors, err := e.store.ListActiveSensors(ctx)
	if err != nil {
		return nil, err
	}

	var predictions []models.FailurePrediction
	for _, sensor := range sensors {
		readings, err := e.store.RecentReadings(ctx, sensor.ID, e.window)
		if err != nil {
			return nil, err
		}
		if len(readings) < e.minReadings {
			continue
		}
		alerts, err := e.store.ListUnresolvedAlertsBySensor(ctx, sensor.ID)
		if err != nil {
			return nil, err
		}

		values := make([]float64, len(readings))
		for i, r := range readings {
			values[i] = r.Value
		}
		if p, ok := analyze(sensor, values, len(alerts)); ok {
			predictions = append(predictions, p)
		}
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})
	return predictions, nil
}

// GetAggregateStatistics summarizes a prediction run: counts per urgency
// tier and the rounded mean probability across emitted predictions.
func (e *Engine) GetAggregateStatistics(ctx context.Context) (models.PredictionStats, error) {
	predictions, err := e.PredictFailures(ctx)
	if err != nil {
		return models.PredictionStats{}, err
	}

	stats := models.PredictionStats{TotalAnalyzed: len(predictions)}
	sum := 0
	for _, p := range predictions {
		sum += p.Probability
		switch p.Urgency {
		case models.UrgencyCritical:
			stats.Critical++
		case models.UrgencyHigh:
			stats.High++
		case models.UrgencyMedium:
			stats.Medium++
		case models.UrgencyLow:
			stats.Low++
		}
	}
	if len(predictions) > 0 {
		stats.MeanProbability = int(math.Round(float64(sum) / float64(len(predictions))))
	}
	return stats, nil
}

// analyze scores one sensor's window. Values are ordered oldest first, so a
// rising trend means the recent half averages higher than the older half.
func analyze(sensor models.Sensor, values []float64, activeAlerts int) (models.FailurePrediction, bool) {
	score := 0
	var reasons []string

	avg := mean(values)
	tr := classifyTrend(values)

	if tr == trendRising && sensor.MaxThreshold != nil {
		margin := (*sensor.MaxThreshold - avg) / *sensor.MaxThreshold
		if margin < 0.10 {
			score += nearThresholdScore
			reasons = append(reasons, "readings close to max threshold")
		} else if margin < 0.20 {
			score += towardThresholdScore
			reasons = append(reasons, "rising trend toward max threshold")
		}
	}
	if tr == trendFalling && sensor.MinThreshold != nil {
		margin := (avg - *sensor.MinThreshold) / *sensor.MinThreshold
		if margin < 0.10 {
			score += nearThresholdScore
			reasons = append(reasons, "readings close to min threshold")
		} else if margin < 0.20 {
			score += towardThresholdScore
			reasons = append(reasons, "falling trend toward min threshold")
		}
	}

	if avg != 0 {
		cv := stddev(values) / math.Abs(avg) * 100
		if cv > 30 {
			score += highVariabilityScore
			reasons = append(reasons, "high variability in readings")
		} else if cv > 20 {
			score += modVariabilityScore
			reasons = append(reasons, "moderate variability in readings")
		}
	}

	if activeAlerts > 0 {
		score += activeAlerts * perAlertScore
		reasons = append(reasons, fmt.Sprintf("%d active alert(s)", activeAlerts))
	}

	outOfRange := outOfRangePct(sensor, values)
	if outOfRange > 20 {
		score += highOutOfRangeScore
		reasons = append(reasons, fmt.Sprintf("%.1f%% of readings out of range", outOfRange))
	} else if outOfRange > 10 {
		score += modOutOfRangeScore
		reasons = append(reasons, fmt.Sprintf("%.1f%% of readings abnormal", outOfRange))
	}

	if score < minScore {
		return models.FailurePrediction{}, false
	}
	if score > maxScore {
		score = maxScore
	}

	urgency := urgencyFor(score)
	return models.FailurePrediction{
		SensorID:       sensor.ID,
		SensorCode:     sensor.Code,
		Probability:    score,
		Reasons:        reasons,
		Urgency:        urgency,
		Recommendation: recommendation(sensor.Code, urgency),
	}, true
}

// classifyTrend splits the window in half and compares the averages. Delta
// above +5% is rising, below -5% falling, otherwise stable.
func classifyTrend(values []float64) trend {
	if len(values) < 5 {
		return trendStable
	}
	half := len(values) / 2
	firstAvg := mean(values[:half])
	secondAvg := mean(values[half:])
	if firstAvg == 0 {
		return trendStable
	}
	delta := (secondAvg - firstAvg) / firstAvg * 100
	if delta > 5 {
		return trendRising
	}
	if delta < -5 {
		return trendFalling
	}
	return trendStable
}

func outOfRangePct(sensor models.Sensor, values []float64) float64 {
	abnormal := 0
	for _, v := range values {
		if (sensor.MaxThreshold != nil && v > *sensor.MaxThreshold) ||
			(sensor.MinThreshold != nil && v < *sensor.MinThreshold) {
			abnormal++
		}
	}
	return float64(abnormal) / float64(len(values)) * 100
}

func urgencyFor(score int) models.Urgency {
	switch {
	case score >= 80:
		return models.UrgencyCritical
	case score >= 60:
		return models.UrgencyHigh
	case score >= 40:
		return models.UrgencyMedium
	default:
		return models.UrgencyLow
	}
}

func recommendation(code string, u models.Urgency) string {
	switch u {
	case models.UrgencyCritical:
		return fmt.Sprintf("URGENT: inspect sensor %s immediately. Very high failure risk.", code)
	case models.UrgencyHigh:
		return fmt.Sprintf("Schedule preventive maintenance for sensor %s within 24-48 hours.", code)
	case models.UrgencyMedium:
		return fmt.Sprintf("Monitor sensor %s closely. Consider preventive maintenance.", code)
	default:
		return fmt.Sprintf("Sensor %s needs attention. Schedule a routine check.", code)
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	avg := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
