// Package notifier delivers best-effort admin notifications: persisted
// records plus a websocket broadcast. Failures surface as
// faults.ErrUpstreamUnavailable and callers are expected to log and move on.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
	"maintenance-service/internal/ws"
)

type Service struct {
	store   store.Store
	hub     *ws.Hub
	logger  *logging.Logger
	timeout time.Duration
}

func New(st store.Store, hub *ws.Hub, logger *logging.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{store: st, hub: hub, logger: logger, timeout: timeout}
}

// NotifyAdmins records one notification per administrator and broadcasts
// the event over the websocket hub. The whole call runs under a bounded
// timeout so a slow collaborator cannot stall the cascade.
func (s *Service) NotifyAdmins(ctx context.Context, kind, title, message string, orderID *int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %v: %w", err, faults.ErrUpstreamUnavailable)
	}

	var failed int
	for _, admin := range admins {
		n := models.Notification{
			ID:      uuid.New().String(),
			UserID:  admin.ID,
			Kind:    kind,
			Title:   title,
			Message: message,
			OrderID: orderID,
		}
		if err := s.retry(2, 100*time.Millisecond, func() error {
			return s.store.CreateNotification(ctx, n)
		}); err != nil {
			s.logger.Warnf("Notification for admin %d failed: %v", admin.ID, err)
			failed++
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(map[string]interface{}{
			"kind":     kind,
			"title":    title,
			"message":  message,
			"order_id": orderID,
		})
	}

	if failed > 0 {
		return fmt.Errorf("%d/%d admin notifications failed: %w", failed, len(admins), faults.ErrUpstreamUnavailable)
	}
	return nil
}

func (s *Service) retry(maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if attempt < maxAttempts {
				time.Sleep(delay)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
