package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/faults"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/prediction"
	"maintenance-service/internal/sensors"
	"maintenance-service/internal/store"
)

type Handler struct {
	sensors    *sensors.Service
	dispatch   *dispatch.Engine
	prediction *prediction.Engine
	logger     *logging.Logger
}

func NewHandler(s *sensors.Service, d *dispatch.Engine, p *prediction.Engine, logger *logging.Logger) *Handler {
	return &Handler{sensors: s, dispatch: d, prediction: p, logger: logger}
}

// statusFor maps the shared error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, faults.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, faults.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, faults.ErrNoAvailableResource):
		return http.StatusServiceUnavailable
	case errors.Is(err, faults.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error, context string) {
	h.logger.Errorf("%s: %v", context, err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) CreateSensor(c *gin.Context) {
	var in sensors.CreateSensorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Errorf("Invalid request body for sensor: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sensor, err := h.sensors.CreateSensor(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "Failed to create sensor")
		return
	}
	c.JSON(http.StatusCreated, sensor)
}

func (h *Handler) ListSensors(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var typ *models.SensorType
	if t := c.Query("type"); t != "" {
		st := models.SensorType(t)
		typ = &st
	}

	list, total, err := h.sensors.ListSensors(c.Request.Context(), page, limit, typ)
	if err != nil {
		h.fail(c, err, "Failed to list sensors")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": list,
		"meta": gin.H{"total": total, "page": page, "limit": limit},
	})
}

func (h *Handler) GetSensor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sensor, err := h.sensors.GetSensor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to get sensor")
		return
	}
	c.JSON(http.StatusOK, sensor)
}

func (h *Handler) UpdateSensor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var upd struct {
		MinThreshold *float64 `json:"min_threshold"`
		MaxThreshold *float64 `json:"max_threshold"`
		Active       *bool    `json:"active"`
	}
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sensor, err := h.sensors.UpdateSensor(c.Request.Context(), id, store.SensorUpdate{
		MinThreshold: upd.MinThreshold,
		MaxThreshold: upd.MaxThreshold,
		Active:       upd.Active,
	})
	if err != nil {
		h.fail(c, err, "Failed to update sensor")
		return
	}
	c.JSON(http.StatusOK, sensor)
}

func (h *Handler) ListSensorReadings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	q := store.ReadingQuery{Limit: limit}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from timestamp"})
			return
		}
		q.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to timestamp"})
			return
		}
		q.To = &t
	}

	readings, err := h.sensors.ListReadings(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err, "Failed to list readings")
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (h *Handler) RegisterReading(c *gin.Context) {
	var req struct {
		SensorCode string   `json:"sensor_code" binding:"required"`
		Value      *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for reading: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	reading, err := h.sensors.RegisterReading(c.Request.Context(), req.SensorCode, *req.Value)
	if err != nil {
		h.fail(c, err, "Failed to register reading")
		return
	}
	c.JSON(http.StatusCreated, reading)
}

func (h *Handler) ListActiveAlerts(c *gin.Context) {
	alerts, err := h.sensors.ListActiveAlerts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to list active alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	alert, err := h.sensors.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to resolve alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) PredictFailures(c *gin.Context) {
	predictions, err := h.prediction.PredictFailures(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to predict failures")
		return
	}
	if predictions == nil {
		predictions = []models.FailurePrediction{}
	}
	c.JSON(http.StatusOK, predictions)
}

func (h *Handler) PredictionStats(c *gin.Context) {
	stats, err := h.prediction.GetAggregateStatistics(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to compute prediction stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AssignOrder performs a manual assignment when technician_id is given and
// an automatic one otherwise.
func (h *Handler) AssignOrder(c *gin.Context) {
	var req struct {
		OrderID      int64  `json:"order_id" binding:"required"`
		TechnicianID *int64 `json:"technician_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var (
		result models.AssignmentResult
		err    error
	)
	if req.TechnicianID != nil {
		result, err = h.dispatch.Assign(c.Request.Context(), req.OrderID, *req.TechnicianID)
	} else {
		result, err = h.dispatch.AutoAssign(c.Request.Context(), req.OrderID)
	}
	if err != nil {
		h.fail(c, err, "Failed to assign order")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CompleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.dispatch.OnOrderCompleted(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to complete order")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListTechnicians(c *gin.Context) {
	technicians, err := h.dispatch.ListTechnicians(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to list technicians")
		return
	}
	c.JSON(http.StatusOK, technicians)
}

func (h *Handler) UpdateTechnicianAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Availability models.Availability `json:"availability" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Availability != models.Available && req.Availability != models.Busy {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid availability"})
		return
	}

	tech, err := h.dispatch.SetAvailability(c.Request.Context(), id, req.Availability)
	if err != nil {
		h.fail(c, err, "Failed to update technician availability")
		return
	}
	c.JSON(http.StatusOK, tech)
}

func (h *Handler) ListTechnicianOrders(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	orders, err := h.dispatch.OrdersFor(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to list technician orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}
