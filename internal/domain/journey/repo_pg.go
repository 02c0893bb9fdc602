package journey

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acolhida/acolhida/internal/platform/db"
)

type journeyRepoPG struct {
	pool *pgxpool.Pool
	caps db.Capabilities
}

func NewRepository(pool *pgxpool.Pool, caps db.Capabilities) Repository {
	return &journeyRepoPG{pool: pool, caps: caps}
}

func (r *journeyRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *journeyRepoPG) get(ctx context.Context, id uuid.UUID, lock bool) (*Patient, error) {
	q := `SELECT id, COALESCE(status_jornada, ''), updated_at FROM assistidos WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var p Patient
	var status string
	err := r.conn(ctx).QueryRow(ctx, q, id).Scan(&p.ID, &status, &p.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *journeyRepoPG) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.get(ctx, id, false)
}

func (r *journeyRepoPG) Lock(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.get(ctx, id, true)
}

func (r *journeyRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE assistidos SET status_jornada = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *journeyRepoPG) AppendHistory(ctx context.Context, h *HistoryRecord) error {
	withReason, err := r.caps.HasReasonColumn(ctx)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	var prev *string
	if h.StatusAnterior != nil {
		s := string(*h.StatusAnterior)
		prev = &s
	}
	if withReason {
		return r.conn(ctx).QueryRow(ctx, `
			INSERT INTO assistido_status_history (assistido_id, status_anterior, status_novo, changed_by, motivo)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, changed_at`,
			h.PatientID, prev, string(h.StatusNovo), h.ChangedBy, h.Motivo,
		).Scan(&h.ID, &h.ChangedAt)
	}
	h.Motivo = nil
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO assistido_status_history (assistido_id, status_anterior, status_novo, changed_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, changed_at`,
		h.PatientID, prev, string(h.StatusNovo), h.ChangedBy,
	).Scan(&h.ID, &h.ChangedAt)
}

func (r *journeyRepoPG) HasInitialHistory(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assistido_status_history
			WHERE assistido_id = $1 AND status_anterior IS NULL
		)`, id).Scan(&exists)
	return exists, err
}

func (r *journeyRepoPG) ListHistory(ctx context.Context, id uuid.UUID) ([]*HistoryRecord, error) {
	withReason, err := r.caps.HasReasonColumn(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	motivo := "NULL::text"
	if withReason {
		motivo = "motivo"
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, assistido_id, status_anterior, status_novo, changed_by, `+motivo+`, changed_at
		FROM assistido_status_history
		WHERE assistido_id = $1
		ORDER BY changed_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*HistoryRecord
	for rows.Next() {
		var h HistoryRecord
		var prev *string
		var next string
		if err := rows.Scan(&h.ID, &h.PatientID, &prev, &next, &h.ChangedBy, &h.Motivo, &h.ChangedAt); err != nil {
			return nil, err
		}
		if prev != nil {
			h.StatusAnterior = statusPtr(Status(*prev))
		}
		h.StatusNovo = Status(next)
		items = append(items, &h)
	}
	return items, rows.Err()
}
