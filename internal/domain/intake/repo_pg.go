package intake

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acolhida/acolhida/internal/platform/db"
)

type intakeRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &intakeRepoPG{pool: pool}
}

func (r *intakeRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *intakeRepoPG) CreateInterview(ctx context.Context, iv *Interview) error {
	iv.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO social_interviews (id, assistido_id, interview_date, observacoes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		iv.ID, iv.PatientID, iv.InterviewDate, iv.Observacoes, iv.CreatedBy,
	).Scan(&iv.CreatedAt, &iv.UpdatedAt)
}

func (r *intakeRepoPG) GetInterview(ctx context.Context, id uuid.UUID) (*Interview, error) {
	var iv Interview
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, assistido_id, interview_date, observacoes, created_by, created_at, updated_at
		FROM social_interviews WHERE id = $1`, id,
	).Scan(&iv.ID, &iv.PatientID, &iv.InterviewDate, &iv.Observacoes, &iv.CreatedBy, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrInterviewNotFound
		}
		return nil, err
	}
	return &iv, nil
}

func (r *intakeRepoPG) UpdateInterview(ctx context.Context, iv *Interview) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE social_interviews SET interview_date = $1, observacoes = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`,
		iv.InterviewDate, iv.Observacoes, iv.ID,
	).Scan(&iv.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrInterviewNotFound
	}
	return err
}

func (r *intakeRepoPG) CreateDecision(ctx context.Context, d *VagaDecision) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaga_decisions (id, assistido_id, decisao, justificativa, decided_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		d.ID, d.PatientID, d.Decisao, d.Justificativa, d.DecidedBy,
	).Scan(&d.CreatedAt)
}
