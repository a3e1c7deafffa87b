package services

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"consultations/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory database. Do serializes units of work, which is
// as strong as the slot row lock, and restores a snapshot on error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	slots         map[string]domain.Slot
	reservations  map[string]domain.Reservation
	notifications map[string]domain.Notification
	outbox        []domain.OutboxEvent
	users         map[string]domain.User
	nextID        int

	// failOutbox makes Append fail, to check that state changes roll back.
	failOutbox error
}

func newMemStore() *memStore {
	return &memStore{
		slots:         make(map[string]domain.Slot),
		reservations:  make(map[string]domain.Reservation),
		notifications: make(map[string]domain.Notification),
		users:         make(map[string]domain.User),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	slots := maps.Clone(m.slots)
	reservations := maps.Clone(m.reservations)
	notifications := maps.Clone(m.notifications)
	outbox := slices.Clone(m.outbox)
	nextID := m.nextID
	m.mu.Unlock()

	if err := fn(ctx, m.repos()); err != nil {
		m.mu.Lock()
		m.slots, m.reservations, m.notifications, m.outbox, m.nextID = slots, reservations, notifications, outbox, nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) repos() domain.Repositories {
	return domain.Repositories{
		Slots:         &memSlotRepo{m},
		Reservations:  &memReservationRepo{m},
		Outbox:        &memOutboxRepo{m},
		Notifications: &memNotificationRepo{m},
	}
}

func (m *memStore) addUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) addSlot(s domain.Slot) *domain.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = m.id("slot")
	}
	m.slots[s.ID] = s
	return &s
}

func (m *memStore) addReservation(r domain.Reservation) *domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = m.id("res")
	}
	if r.Attachments == nil {
		r.Attachments = []string{}
	}
	m.reservations[r.ID] = r
	return &r
}

func (m *memStore) reservation(id string) domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[id]
}

func (m *memStore) outboxEvents() []domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.outbox)
}

func (m *memStore) countStatus(slotID string, statuses ...domain.ReservationStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reservations {
		if r.SlotID == slotID && slices.Contains(statuses, r.Status) {
			n++
		}
	}
	return n
}

type memSlotRepo struct{ m *memStore }

func (r *memSlotRepo) Create(ctx context.Context, s *domain.Slot) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s.ID = r.m.id("slot")
	r.m.slots[s.ID] = *s
	return nil
}

func (r *memSlotRepo) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.slots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memSlotRepo) GetForUpdate(ctx context.Context, id string) (*domain.Slot, error) {
	return r.GetByID(ctx, id)
}

func (r *memSlotRepo) ListPublic(ctx context.Context, filter domain.SlotFilter) iter.Seq2[*domain.Slot, error] {
	return func(yield func(*domain.Slot, error) bool) {
		r.m.mu.Lock()
		var out []domain.Slot
		for _, s := range r.m.slots {
			if !s.IsActive || !s.StartTime.After(filter.After) {
				continue
			}
			if filter.LecturerID != "" && s.LecturerID != filter.LecturerID {
				continue
			}
			out = append(out, s)
		}
		r.m.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
		for i := range out {
			if !yield(&out[i], nil) {
				return
			}
		}
	}
}

func (r *memSlotRepo) ListByLecturer(ctx context.Context, lecturerID string, page domain.PaginationParams) (domain.Page[*domain.Slot], error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Slot
	for _, s := range r.m.slots {
		if s.LecturerID == lecturerID {
			out = append(out, &s)
		}
	}
	return domain.Page[*domain.Slot]{Items: out, Total: len(out)}, nil
}

func (r *memSlotRepo) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.slots[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.IsActive = active
	s.UpdatedAt = updatedAt
	r.m.slots[id] = s
	return nil
}

func (r *memSlotRepo) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.slots[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.slots, id)
	for rid, res := range r.m.reservations {
		if res.SlotID == id {
			delete(r.m.reservations, rid)
		}
	}
	return nil
}

type memReservationRepo struct{ m *memStore }

func (r *memReservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.reservations {
		if other.SlotID == res.SlotID && other.StudentID == res.StudentID && other.Status.IsActive() {
			return domain.ErrDuplicateReservation
		}
	}
	res.ID = r.m.id("res")
	r.m.reservations[res.ID] = *res
	return nil
}

func (r *memReservationRepo) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	res, ok := r.m.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (r *memReservationRepo) GetForUpdate(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *memReservationRepo) Update(ctx context.Context, res *domain.Reservation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.reservations[res.ID]; !ok {
		return domain.ErrNotFound
	}
	r.m.reservations[res.ID] = *res
	return nil
}

func (r *memReservationRepo) CountBySlot(ctx context.Context, slotID string, statuses ...domain.ReservationStatus) (int, error) {
	return r.m.countStatus(slotID, statuses...), nil
}

func (r *memReservationRepo) FindActive(ctx context.Context, slotID, studentID string) (*domain.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, res := range r.m.reservations {
		if res.SlotID == slotID && res.StudentID == studentID && res.Status.IsActive() {
			return &res, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memReservationRepo) ListByStudent(ctx context.Context, studentID string) ([]*domain.Reservation, error) {
	return r.filter(func(res domain.Reservation) bool { return res.StudentID == studentID }), nil
}

func (r *memReservationRepo) ListByLecturer(ctx context.Context, lecturerID string, filter domain.ReservationFilter, page domain.PaginationParams) (domain.Page[*domain.Reservation], error) {
	r.m.mu.Lock()
	owned := make(map[string]bool)
	for _, s := range r.m.slots {
		if s.LecturerID == lecturerID {
			owned[s.ID] = true
		}
	}
	r.m.mu.Unlock()
	out := r.filter(func(res domain.Reservation) bool {
		return owned[res.SlotID] && (filter.Status == "" || res.Status == filter.Status)
	})
	return domain.Page[*domain.Reservation]{Items: out, Total: len(out)}, nil
}

func (r *memReservationRepo) ListActiveBySlot(ctx context.Context, slotID string) ([]*domain.Reservation, error) {
	return r.filter(func(res domain.Reservation) bool { return res.SlotID == slotID && res.Status.IsActive() }), nil
}

func (r *memReservationRepo) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error) {
	list := r.filter(func(res domain.Reservation) bool {
		return res.Status == domain.StatusPending && !res.CreatedAt.After(createdBefore)
	})
	var ids []string
	for _, res := range list {
		if len(ids) == limit {
			break
		}
		ids = append(ids, res.ID)
	}
	return ids, nil
}

func (r *memReservationRepo) filter(keep func(domain.Reservation) bool) []*domain.Reservation {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Reservation{}
	for _, res := range r.m.reservations {
		if keep(res) {
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type memOutboxRepo struct{ m *memStore }

func (r *memOutboxRepo) Append(ctx context.Context, e *domain.OutboxEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failOutbox != nil {
		return r.m.failOutbox
	}
	r.m.outbox = append(r.m.outbox, *e)
	return nil
}

func (r *memOutboxRepo) ClaimPending(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEvent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.OutboxEvent
	for i := range r.m.outbox {
		e := r.m.outbox[i]
		if e.Status == domain.OutboxPending && !e.NextAttemptAt.After(now) && len(out) < limit {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *memOutboxRepo) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		e.Status = domain.OutboxDispatched
		e.DispatchedAt = &at
		e.Attempts++
	})
}

func (r *memOutboxRepo) MarkFailed(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time, dead bool) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		e.Attempts++
		e.LastError = errMsg
		e.NextAttemptAt = nextAttemptAt
		if dead {
			e.Status = domain.OutboxFailed
		}
	})
}

func (r *memOutboxRepo) update(id string, fn func(e *domain.OutboxEvent)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.outbox {
		if r.m.outbox[i].ID == id {
			fn(&r.m.outbox[i])
			return nil
		}
	}
	return domain.ErrNotFound
}

type memNotificationRepo struct{ m *memStore }

func (r *memNotificationRepo) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.notifications {
		if n.EventID != "" && other.EventID == n.EventID && other.RecipientID == n.RecipientID && other.Category == n.Category {
			return false, nil
		}
	}
	n.ID = r.m.id("notif")
	r.m.notifications[n.ID] = *n
	return true, nil
}

func (r *memNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (r *memNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, page domain.PaginationParams) (domain.Page[*domain.Notification], error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Notification{}
	for _, n := range r.m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return domain.Page[*domain.Notification]{Items: out, Total: len(out)}, nil
}

func (r *memNotificationRepo) CountUnseen(ctx context.Context, recipientID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, notif := range r.m.notifications {
		if notif.RecipientID == recipientID && !notif.Seen {
			n++
		}
	}
	return n, nil
}

func (r *memNotificationRepo) MarkSeen(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Seen = true
	r.m.notifications[id] = n
	return nil
}

type memDirectory struct{ m *memStore }

func (d *memDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	u, ok := d.m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// recordingQueue captures published jobs.
type recordingQueue struct {
	mu     sync.Mutex
	jobs   []domain.Job
	delays []time.Duration
	err    error
}

func (q *recordingQueue) Publish(ctx context.Context, job domain.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	q.delays = append(q.delays, delay)
	return nil
}

type sentEmail struct {
	template string
	data     domain.ReservationEmailData
}

type fakeEmailService struct {
	sent []sentEmail
	err  error
}

func (f *fakeEmailService) SendReservationEmail(ctx context.Context, templateName string, data *domain.ReservationEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{template: templateName, data: *data})
	return nil
}

type fakeSMSSender struct {
	phones   []string
	messages []string
}

func (f *fakeSMSSender) Send(ctx context.Context, phone, message string) error {
	f.phones = append(f.phones, phone)
	f.messages = append(f.messages, message)
	return nil
}

// fixture wires a store with one lecturer, two students and a future slot.
type fixture struct {
	store    *memStore
	clock    *fakeClock
	lecturer domain.Identity
	student  domain.Identity
	other    domain.Identity
	slot     *domain.Slot
}

func newFixture(capacity int) *fixture {
	store := newMemStore()
	store.addUser(domain.User{ID: "lect-1", Email: "kowalski@uni.edu", FirstName: "Jan", LastName: "Kowalski", Phone: "600100200", Role: domain.RoleLecturer})
	store.addUser(domain.User{ID: "stu-1", Email: "anna@uni.edu", FirstName: "Anna", LastName: "Nowak", Phone: "+48600300400", Role: domain.RoleStudent})
	store.addUser(domain.User{ID: "stu-2", Email: "piotr@uni.edu", FirstName: "Piotr", LastName: "Zielinski", Role: domain.RoleStudent})
	slot := store.addSlot(domain.Slot{
		ID:         "slot-1",
		LecturerID: "lect-1",
		StartTime:  testNow.Add(48 * time.Hour),
		EndTime:    testNow.Add(49 * time.Hour),
		Location:   "B-101",
		Subject:    "Algebra",
		Capacity:   capacity,
		IsActive:   true,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	})
	return &fixture{
		store:    store,
		clock:    newFakeClock(testNow),
		lecturer: domain.Identity{UserID: "lect-1", Role: domain.RoleLecturer},
		student:  domain.Identity{UserID: "stu-1", Role: domain.RoleStudent},
		other:    domain.Identity{UserID: "stu-2", Role: domain.RoleStudent},
		slot:     slot,
	}
}

func (f *fixture) reservationService() domain.ReservationService {
	return NewReservationService(f.store, &memSlotRepo{f.store}, &memReservationRepo{f.store},
		f.clock, domain.DefaultLifecyclePolicy(), testLogger, 5*time.Second)
}

func (f *fixture) slotService() domain.SlotService {
	return NewSlotService(f.store, &memSlotRepo{f.store}, &memReservationRepo{f.store}, f.clock, 5*time.Second)
}
