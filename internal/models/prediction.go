package models

// Urgency is the coarse bucket derived from a failure probability score.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// FailurePrediction is derived per sensor from its reading history and
// unresolved alert count. It is never persisted.
type FailurePrediction struct {
	SensorID       int64    `json:"sensor_id"`
	SensorCode     string   `json:"sensor_code"`
	Probability    int      `json:"probability"` // 0..100
	Reasons        []string `json:"reasons"`
	Urgency        Urgency  `json:"urgency"`
	Recommendation string   `json:"recommendation"`
}

// PredictionStats summarizes one prediction run.
type PredictionStats struct {
	TotalAnalyzed   int `json:"total_analyzed"`
	Critical        int `json:"critical"`
	High            int `json:"high"`
	Medium          int `json:"medium"`
	Low             int `json:"low"`
	MeanProbability int `json:"mean_probability"`
}
