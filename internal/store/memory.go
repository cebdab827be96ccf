package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"maintenance-service/internal/faults"
	"maintenance-service/internal/models"
)

// MemoryStore keeps everything behind a single mutex, so every Store
// operation, AssignOrder included, is atomic by construction.
type MemoryStore struct {
	mu            sync.Mutex
	sensors       map[int64]models.Sensor
	sensorCodes   map[string]int64
	readings      map[int64][]models.Reading // sensor id -> readings, append order
	alerts        map[int64]models.Alert
	orders        map[int64]models.WorkOrder
	technicians   map[int64]models.Technician
	clients       map[int64]models.Client
	users         map[int64]models.User
	notifications []models.Notification
	nextID        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sensors:     make(map[int64]models.Sensor),
		sensorCodes: make(map[string]int64),
		readings:    make(map[int64][]models.Reading),
		alerts:      make(map[int64]models.Alert),
		orders:      make(map[int64]models.WorkOrder),
		technicians: make(map[int64]models.Technician),
		clients:     make(map[int64]models.Client),
		users:       make(map[int64]models.User),
		nextID:      1,
	}
}

func (m *MemoryStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MemoryStore) CreateSensor(_ context.Context, s models.Sensor) (models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sensorCodes[s.Code]; exists {
		return models.Sensor{}, fmt.Errorf("sensor code %s already exists: %w", s.Code, faults.ErrInvalidState)
	}
	s.ID = m.id()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.sensors[s.ID] = s
	m.sensorCodes[s.Code] = s.ID
	return s, nil
}

func (m *MemoryStore) GetSensor(_ context.Context, id int64) (models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sensors[id]
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor %d: %w", id, faults.ErrNotFound)
	}
	return s, nil
}

func (m *MemoryStore) GetSensorByCode(_ context.Context, code string) (models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sensorCodes[code]
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor %s: %w", code, faults.ErrNotFound)
	}
	return m.sensors[id], nil
}

func (m *MemoryStore) UpdateSensor(_ context.Context, id int64, upd SensorUpdate) (models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sensors[id]
	if !ok {
		return models.Sensor{}, fmt.Errorf("sensor %d: %w", id, faults.ErrNotFound)
	}
	if upd.MinThreshold != nil {
		s.MinThreshold = upd.MinThreshold
	}
	if upd.MaxThreshold != nil {
		s.MaxThreshold = upd.MaxThreshold
	}
	if upd.Active != nil {
		s.Active = *upd.Active
	}
	m.sensors[id] = s
	return s, nil
}

func (m *MemoryStore) ListSensors(_ context.Context, page, limit int, typ *models.SensorType) ([]models.Sensor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Sensor
	for _, s := range m.sensors {
		if typ != nil && s.Type != *typ {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	total := len(all)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *MemoryStore) ListActiveSensors(_ context.Context) ([]models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Sensor
	for _, s := range m.sensors {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateReading(_ context.Context, r models.Reading) (models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sensors[r.SensorID]; !ok {
		return models.Reading{}, fmt.Errorf("sensor %d: %w", r.SensorID, faults.ErrNotFound)
	}
	r.ID = m.id()
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	m.readings[r.SensorID] = append(m.readings[r.SensorID], r)
	return r, nil
}

func (m *MemoryStore) ListReadings(_ context.Context, sensorID int64, q ReadingQuery) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []models.Reading
	for _, r := range m.readings[sensorID] {
		if q.From != nil && r.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && r.Timestamp.After(*q.To) {
			continue
		}
		filtered = append(filtered, r)
	}
	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[len(filtered)-q.Limit:]
	}
	// Newest first, matching the history endpoint ordering.
	out := make([]models.Reading, len(filtered))
	for i, r := range filtered {
		out[len(filtered)-1-i] = r
	}
	return out, nil
}

func (m *MemoryStore) RecentReadings(_ context.Context, sensorID int64, n int) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := m.readings[sensorID]
	if n > 0 && len(rs) > n {
		rs = rs[len(rs)-n:]
	}
	out := make([]models.Reading, len(rs))
	copy(out, rs)
	return out, nil
}

func (m *MemoryStore) CreateAlert(_ context.Context, a models.Alert) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.alerts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) LinkAlertToOrder(_ context.Context, alertID, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return fmt.Errorf("alert %d: %w", alertID, faults.ErrNotFound)
	}
	a.OrderID = &orderID
	m.alerts[alertID] = a
	return nil
}

func (m *MemoryStore) ResolveAlert(_ context.Context, alertID int64) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %d: %w", alertID, faults.ErrNotFound)
	}
	a.Resolved = true
	m.alerts[alertID] = a
	return a, nil
}

func (m *MemoryStore) ListActiveAlerts(_ context.Context) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListUnresolvedAlertsBySensor(_ context.Context, sensorID int64) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if a.SensorID == sensorID && !a.Resolved {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o models.WorkOrder) (models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id int64) (models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.WorkOrder{}, fmt.Errorf("order %d: %w", id, faults.ErrNotFound)
	}
	return o, nil
}

func (m *MemoryStore) AssignOrder(_ context.Context, orderID, technicianID int64) (models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignLocked(orderID, technicianID)
}

func (m *MemoryStore) AssignOrderToCandidate(_ context.Context, orderID, technicianID int64, expectedActive int) (models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.technicians[technicianID]; !ok {
		return models.WorkOrder{}, fmt.Errorf("technician %d: %w", technicianID, faults.ErrNotFound)
	}
	if active := m.countActiveLocked(technicianID); active != expectedActive {
		return models.WorkOrder{}, fmt.Errorf("technician %d has %d active orders, selected at %d: %w",
			technicianID, active, expectedActive, ErrStaleCandidate)
	}
	return m.assignLocked(orderID, technicianID)
}

func (m *MemoryStore) assignLocked(orderID, technicianID int64) (models.WorkOrder, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return models.WorkOrder{}, fmt.Errorf("order %d: %w", orderID, faults.ErrNotFound)
	}
	if _, ok := m.technicians[technicianID]; !ok {
		return models.WorkOrder{}, fmt.Errorf("technician %d: %w", technicianID, faults.ErrNotFound)
	}
	if o.Status != models.OrderPending {
		return models.WorkOrder{}, fmt.Errorf("order %d is %s, not assignable: %w", orderID, o.Status, faults.ErrInvalidState)
	}
	o.TechnicianID = &technicianID
	o.Status = models.OrderAssigned
	m.orders[orderID] = o
	return o, nil
}

func (m *MemoryStore) CompleteOrder(_ context.Context, orderID int64) (models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return models.WorkOrder{}, fmt.Errorf("order %d: %w", orderID, faults.ErrNotFound)
	}
	if o.Status != models.OrderAssigned && o.Status != models.OrderInProgress {
		return models.WorkOrder{}, fmt.Errorf("order %d is %s, not completable: %w", orderID, o.Status, faults.ErrInvalidState)
	}
	o.Status = models.OrderCompleted
	m.orders[orderID] = o
	return o, nil
}

func (m *MemoryStore) CountActiveOrders(_ context.Context, technicianID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countActiveLocked(technicianID), nil
}

func (m *MemoryStore) countActiveLocked(technicianID int64) int {
	count := 0
	for _, o := range m.orders {
		if o.TechnicianID != nil && *o.TechnicianID == technicianID &&
			(o.Status == models.OrderAssigned || o.Status == models.OrderInProgress) {
			count++
		}
	}
	return count
}

func (m *MemoryStore) ListOrdersByTechnician(_ context.Context, technicianID int64) ([]models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WorkOrder
	for _, o := range m.orders {
		if o.TechnicianID != nil && *o.TechnicianID == technicianID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetTechnician(_ context.Context, id int64) (models.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.technicians[id]
	if !ok {
		return models.Technician{}, fmt.Errorf("technician %d: %w", id, faults.ErrNotFound)
	}
	return t, nil
}

func (m *MemoryStore) ListTechnicianSnapshots(_ context.Context) ([]models.TechnicianSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TechnicianSnapshot
	for _, t := range m.technicians {
		out = append(out, models.TechnicianSnapshot{
			Technician:   t,
			ActiveOrders: m.countActiveLocked(t.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateTechnicianAvailability(_ context.Context, id int64, av models.Availability) (models.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.technicians[id]
	if !ok {
		return models.Technician{}, fmt.Errorf("technician %d: %w", id, faults.ErrNotFound)
	}
	t.Availability = av
	m.technicians[id] = t
	return t, nil
}

func (m *MemoryStore) CreateTechnician(_ context.Context, t models.Technician) (models.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	if t.Availability == "" {
		t.Availability = models.Available
	}
	m.technicians[t.ID] = t
	return t, nil
}

func (m *MemoryStore) FindClientByLocationText(_ context.Context, text string) (models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(text)
	var ids []int64
	for id := range m.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c := m.clients[id]
		if strings.Contains(strings.ToLower(c.Address), needle) ||
			strings.Contains(strings.ToLower(c.Name), needle) {
			return c, nil
		}
	}
	return models.Client{}, fmt.Errorf("client for location %q: %w", text, faults.ErrNotFound)
}

func (m *MemoryStore) AnyClient(_ context.Context) (models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.clients {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return models.Client{}, fmt.Errorf("no clients: %w", faults.ErrNotFound)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return m.clients[ids[0]], nil
}

func (m *MemoryStore) CreateClient(_ context.Context, c models.Client) (models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.clients[c.ID] = c
	return c, nil
}

func (m *MemoryStore) ListAdmins(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.Role == models.RoleAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) CreateNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	m.notifications = append(m.notifications, n)
	return nil
}

// Notifications returns a copy of everything recorded so far. Test helper.
func (m *MemoryStore) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}
