package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"consultations/internal/domain"
)

const reservationColumns = `r.id, r.slot_id, r.student_id, r.status, r.topic, r.notes, r.attachments, r.rejection_reason, r.created_at, r.updated_at, r.accepted_at, r.accepted_by`

type reservationRepository struct {
	DB dbtx
}

func NewReservationRepository(db *sql.DB) domain.ReservationRepository {
	return &reservationRepository{DB: db}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var status string
	var acceptedAt sql.NullTime
	var acceptedBy sql.NullString
	err := row.Scan(&res.ID, &res.SlotID, &res.StudentID, &status, &res.Topic, &res.Notes,
		pq.Array(&res.Attachments), &res.RejectionReason, &res.CreatedAt, &res.UpdatedAt,
		&acceptedAt, &acceptedBy)
	if err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	if res.Attachments == nil {
		res.Attachments = []string{}
	}
	if acceptedAt.Valid {
		res.AcceptedAt = &acceptedAt.Time
	}
	if acceptedBy.Valid {
		res.AcceptedBy = &acceptedBy.String
	}
	return res, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (slot_id, student_id, status, topic, notes, attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, res.SlotID, res.StudentID, string(res.Status), res.Topic, res.Notes,
		pq.Array(res.Attachments), res.CreatedAt, res.UpdatedAt).Scan(&res.ID)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return domain.ErrDuplicateReservation
		}
		return err
	}
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1`, id)
}

func (r *reservationRepository) GetForUpdate(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1 FOR UPDATE`, id)
}

func (r *reservationRepository) get(ctx context.Context, query string, args ...any) (*domain.Reservation, error) {
	res, err := scanReservation(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $1, rejection_reason = $2, accepted_at = $3, accepted_by = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.DB.ExecContext(ctx, query, string(res.Status), res.RejectionReason,
		res.AcceptedAt, res.AcceptedBy, res.UpdatedAt, res.ID)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return domain.ErrDuplicateReservation
		}
		return err
	}
	return requireAffected(result)
}

func (r *reservationRepository) CountBySlot(ctx context.Context, slotID string, statuses ...domain.ReservationStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, fmt.Errorf("count reservations: no statuses given")
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE slot_id = $1 AND status = ANY($2)`,
		slotID, pq.Array(names)).Scan(&n)
	return n, err
}

func (r *reservationRepository) FindActive(ctx context.Context, slotID, studentID string) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations r
		WHERE r.slot_id = $1 AND r.student_id = $2 AND r.status IN ('pending', 'accepted')`, slotID, studentID)
}

func (r *reservationRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations r
		WHERE r.student_id = $1 ORDER BY r.created_at DESC`, studentID)
}

func (r *reservationRepository) ListByLecturer(ctx context.Context, lecturerID string, filter domain.ReservationFilter, page domain.PaginationParams) (domain.Page[*domain.Reservation], error) {
	where := `s.lecturer_id = $1 AND ($2 = '' OR r.status = $2)`
	var total int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations r JOIN slots s ON s.id = r.slot_id WHERE `+where,
		lecturerID, string(filter.Status)).Scan(&total)
	if err != nil {
		return domain.Page[*domain.Reservation]{}, err
	}
	items, err := r.list(ctx, `SELECT `+reservationColumns+`
		FROM reservations r JOIN slots s ON s.id = r.slot_id
		WHERE `+where+`
		ORDER BY s.start_time ASC, r.created_at ASC
		LIMIT $3 OFFSET $4`,
		lecturerID, string(filter.Status), limitArg(page), page.Offset())
	if err != nil {
		return domain.Page[*domain.Reservation]{}, err
	}
	return domain.Page[*domain.Reservation]{Items: items, Total: total}, nil
}

func (r *reservationRepository) ListActiveBySlot(ctx context.Context, slotID string) ([]*domain.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations r
		WHERE r.slot_id = $1 AND r.status IN ('pending', 'accepted') ORDER BY r.created_at ASC`, slotID)
}

func (r *reservationRepository) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM reservations
		WHERE status = 'pending' AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2`, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *reservationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
