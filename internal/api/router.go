package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/prediction"
	"maintenance-service/internal/sensors"
	"maintenance-service/internal/ws"
)

func NewRouter(sensorSvc *sensors.Service, dispatchEng *dispatch.Engine, predictionEng *prediction.Engine, hub *ws.Hub, logger *logging.Logger, basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(sensorSvc, dispatchEng, predictionEng, logger)
	api := r.Group(basePath)
	{
		// Sensors
		api.POST("/sensors", h.CreateSensor)
		api.GET("/sensors", h.ListSensors)
		api.GET("/sensors/:id", h.GetSensor)
		api.PATCH("/sensors/:id", h.UpdateSensor)
		api.GET("/sensors/:id/readings", h.ListSensorReadings)

		// Readings
		api.POST("/readings", h.RegisterReading)

		// Alerts
		api.GET("/alerts/active", h.ListActiveAlerts)
		api.PATCH("/alerts/:id/resolve", h.ResolveAlert)

		// Predictions
		api.GET("/predictions/failures", h.PredictFailures)
		api.GET("/predictions/stats", h.PredictionStats)

		// Dispatch
		api.POST("/dispatch/assign", h.AssignOrder)
		api.POST("/orders/:id/complete", h.CompleteOrder)

		// Technicians
		api.GET("/technicians", h.ListTechnicians)
		api.PATCH("/technicians/:id/availability", h.UpdateTechnicianAvailability)
		api.GET("/technicians/:id/orders", h.ListTechnicianOrders)
	}

	r.GET("/ws", func(c *gin.Context) {
		if err := hub.Upgrade(c.Writer, c.Request); err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
		}
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
