package controllers

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"consultations/internal/delivery/http/helpers"
	"consultations/internal/delivery/http/middleware"
	"consultations/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	student  = domain.Identity{UserID: "stu-1", Role: domain.RoleStudent}
	lecturer = domain.Identity{UserID: "lect-1", Role: domain.RoleLecturer}
	slotTime = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
)

// serve sends a request routed through a ServeMux so PathValue works.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, method, target, body string, caller *domain.Identity) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, reader)
	if caller != nil {
		req = req.WithContext(middleware.SetIdentity(req.Context(), *caller))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	return envelope
}

// decodeData re-decodes envelope.Data into dest.
func decodeData(t *testing.T, envelope helpers.APIResponse, dest any) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

// fakeSlotService implements domain.SlotService for handler tests.
type fakeSlotService struct {
	created     *domain.Slot
	lastInput   domain.CreateSlotInput
	lastActor   domain.Identity
	lastLecture string
	slots       []*domain.Slot
	listErr     error
	page        domain.Page[*domain.Slot]
	lastPage    domain.PaginationParams
	remaining   int
	err         error
	deactivated []string
	deleted     []string
}

func (f *fakeSlotService) CreateSlot(_ context.Context, actor domain.Identity, in domain.CreateSlotInput) (*domain.Slot, error) {
	f.lastActor = actor
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func (f *fakeSlotService) GetSlot(_ context.Context, id string) (*domain.Slot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Slot{ID: id, LecturerID: "lect-1", Capacity: 1, IsActive: true}, nil
}

func (f *fakeSlotService) ListPublicSlots(_ context.Context, lecturerID string) iter.Seq2[*domain.Slot, error] {
	f.lastLecture = lecturerID
	return func(yield func(*domain.Slot, error) bool) {
		for _, s := range f.slots {
			if !yield(s, nil) {
				return
			}
		}
		if f.listErr != nil {
			yield(nil, f.listErr)
		}
	}
}

func (f *fakeSlotService) ListLecturerSlots(_ context.Context, actor domain.Identity, page domain.PaginationParams) (domain.Page[*domain.Slot], error) {
	f.lastActor = actor
	f.lastPage = page
	return f.page, f.err
}

func (f *fakeSlotService) Deactivate(_ context.Context, actor domain.Identity, slotID string) error {
	f.lastActor = actor
	if f.err != nil {
		return f.err
	}
	f.deactivated = append(f.deactivated, slotID)
	return nil
}

func (f *fakeSlotService) DeleteSlot(_ context.Context, actor domain.Identity, slotID string) error {
	f.lastActor = actor
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, slotID)
	return nil
}

func (f *fakeSlotService) RemainingCapacity(_ context.Context, _ string) (int, error) {
	return f.remaining, f.err
}

// fakeReservationService implements domain.ReservationService for handler tests.
type fakeReservationService struct {
	res        *domain.Reservation
	list       []*domain.Reservation
	page       domain.Page[*domain.Reservation]
	err        error
	lastActor  domain.Identity
	lastID     string
	lastSlotID string
	lastDraft  domain.ReservationDraft
	lastReason string
	lastStatus domain.ReservationStatus
	lastFilter domain.ReservationFilter
	lastPage   domain.PaginationParams
	calls      []string
}

func (f *fakeReservationService) record(call string, actor domain.Identity, id string) (*domain.Reservation, error) {
	f.calls = append(f.calls, call)
	f.lastActor = actor
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeReservationService) Create(_ context.Context, actor domain.Identity, slotID string, draft domain.ReservationDraft) (*domain.Reservation, error) {
	f.lastSlotID = slotID
	f.lastDraft = draft
	return f.record("create", actor, "")
}

func (f *fakeReservationService) Accept(_ context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	return f.record("accept", actor, id)
}

func (f *fakeReservationService) Reject(_ context.Context, actor domain.Identity, id, reason string) (*domain.Reservation, error) {
	f.lastReason = reason
	return f.record("reject", actor, id)
}

func (f *fakeReservationService) Cancel(_ context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	return f.record("cancel", actor, id)
}

func (f *fakeReservationService) MarkOutcome(_ context.Context, actor domain.Identity, id string, outcome domain.ReservationStatus) (*domain.Reservation, error) {
	f.lastStatus = outcome
	return f.record("outcome", actor, id)
}

func (f *fakeReservationService) AutoReject(_ context.Context, _ string) (domain.AutoRejectResult, error) {
	return domain.AutoRejectResult{}, nil
}

func (f *fakeReservationService) Get(_ context.Context, actor domain.Identity, id string) (*domain.Reservation, error) {
	return f.record("get", actor, id)
}

func (f *fakeReservationService) ListForStudent(_ context.Context, actor domain.Identity) ([]*domain.Reservation, error) {
	f.lastActor = actor
	return f.list, f.err
}

func (f *fakeReservationService) ListForLecturer(_ context.Context, actor domain.Identity, filter domain.ReservationFilter, page domain.PaginationParams) (domain.Page[*domain.Reservation], error) {
	f.lastActor = actor
	f.lastFilter = filter
	f.lastPage = page
	return f.page, f.err
}

// fakeNotificationService implements domain.NotificationService for handler tests.
type fakeNotificationService struct {
	page     domain.Page[*domain.Notification]
	unseen   int
	err      error
	lastPage domain.PaginationParams
	seen     []string
}

func (f *fakeNotificationService) List(_ context.Context, _ domain.Identity, page domain.PaginationParams) (domain.Page[*domain.Notification], error) {
	f.lastPage = page
	return f.page, f.err
}

func (f *fakeNotificationService) UnseenCount(_ context.Context, _ domain.Identity) (int, error) {
	return f.unseen, f.err
}

func (f *fakeNotificationService) MarkSeen(_ context.Context, _ domain.Identity, id string) error {
	if f.err != nil {
		return f.err
	}
	f.seen = append(f.seen, id)
	return nil
}
