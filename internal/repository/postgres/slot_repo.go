package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"consultations/internal/domain"
)

const slotColumns = `id, lecturer_id, start_time, end_time, location, subject, capacity, is_active, created_at, updated_at`

type slotRepository struct {
	DB dbtx
}

func NewSlotRepository(db *sql.DB) domain.SlotRepository {
	return &slotRepository{DB: db}
}

func scanSlot(row rowScanner) (*domain.Slot, error) {
	s := &domain.Slot{}
	err := row.Scan(&s.ID, &s.LecturerID, &s.StartTime, &s.EndTime, &s.Location, &s.Subject,
		&s.Capacity, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *slotRepository) Create(ctx context.Context, s *domain.Slot) error {
	query := `
		INSERT INTO slots (lecturer_id, start_time, end_time, location, subject, capacity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, s.LecturerID, s.StartTime, s.EndTime, s.Location, s.Subject,
		s.Capacity, s.IsActive, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
}

func (r *slotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	return r.get(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
}

func (r *slotRepository) GetForUpdate(ctx context.Context, id string) (*domain.Slot, error) {
	return r.get(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1 FOR UPDATE`, id)
}

func (r *slotRepository) get(ctx context.Context, query, id string) (*domain.Slot, error) {
	s, err := scanSlot(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *slotRepository) ListPublic(ctx context.Context, filter domain.SlotFilter) iter.Seq2[*domain.Slot, error] {
	var b strings.Builder
	b.WriteString(`SELECT ` + slotColumns + ` FROM slots WHERE is_active AND start_time > $1`)
	args := []any{filter.After}
	if filter.LecturerID != "" {
		args = append(args, filter.LecturerID)
		fmt.Fprintf(&b, ` AND lecturer_id = $%d`, len(args))
	}
	b.WriteString(` ORDER BY start_time ASC, id ASC`)
	query := b.String()

	return func(yield func(*domain.Slot, error) bool) {
		rows, err := r.DB.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			s, err := scanSlot(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(s, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (r *slotRepository) ListByLecturer(ctx context.Context, lecturerID string, page domain.PaginationParams) (domain.Page[*domain.Slot], error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots WHERE lecturer_id = $1`, lecturerID).Scan(&total); err != nil {
		return domain.Page[*domain.Slot]{}, err
	}
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE lecturer_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, lecturerID, limitArg(page), page.Offset())
	if err != nil {
		return domain.Page[*domain.Slot]{}, err
	}
	defer rows.Close()
	slots := []*domain.Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return domain.Page[*domain.Slot]{}, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[*domain.Slot]{}, err
	}
	return domain.Page[*domain.Slot]{Items: slots, Total: total}, nil
}

func (r *slotRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE slots SET is_active = $1, updated_at = $2 WHERE id = $3`, active, updatedAt, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *slotRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
