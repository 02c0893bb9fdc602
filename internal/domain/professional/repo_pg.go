package professional

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acolhida/acolhida/internal/platform/db"
)

type professionalRepoPG struct {
	pool *pgxpool.Pool
	caps db.Capabilities
}

func NewRepository(pool *pgxpool.Pool, caps db.Capabilities) Repository {
	return &professionalRepoPG{pool: pool, caps: caps}
}

func (r *professionalRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// linkCol returns the quoted professionals->users link column.
func (r *professionalRepoPG) linkCol(ctx context.Context) (string, error) {
	name, err := r.caps.LinkColumnName(ctx)
	if err != nil {
		return "", err
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

func (r *professionalRepoPG) LockProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	col, err := r.linkCol(ctx)
	if err != nil {
		return nil, err
	}
	var p Professional
	err = r.conn(ctx).QueryRow(ctx, fmt.Sprintf(`
		SELECT id, nome, email, status, %s::bigint, updated_at
		FROM professionals WHERE id = $1
		FOR UPDATE`, col), id,
	).Scan(&p.ID, &p.Nome, &p.Email, &p.Status, &p.UserID, &p.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *professionalRepoPG) getUser(ctx context.Context, id int64, lock bool) (*User, error) {
	q := `SELECT id, email, role, status FROM users WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var u User
	err := r.conn(ctx).QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Role, &u.Status)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *professionalRepoPG) LockUser(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, id, true)
}

func (r *professionalRepoPG) GetUser(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, id, false)
}

func (r *professionalRepoPG) LinkedProfessional(ctx context.Context, userID int64) (uuid.UUID, error) {
	col, err := r.linkCol(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err = r.conn(ctx).QueryRow(ctx, fmt.Sprintf(
		`SELECT id FROM professionals WHERE %s = $1 LIMIT 1`, col), userID,
	).Scan(&id)
	if db.IsNoRows(err) {
		return uuid.Nil, nil
	}
	return id, err
}

func (r *professionalRepoPG) SetLink(ctx context.Context, professionalID uuid.UUID, userID int64) (bool, error) {
	col, err := r.linkCol(ctx)
	if err != nil {
		return false, err
	}
	tag, err := r.conn(ctx).Exec(ctx, fmt.Sprintf(`
		UPDATE professionals SET %s = $1, updated_at = NOW()
		WHERE id = $2 AND %s IS NULL`, col, col), userID, professionalID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *professionalRepoPG) ClearLink(ctx context.Context, professionalID uuid.UUID) error {
	col, err := r.linkCol(ctx)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, fmt.Sprintf(
		`UPDATE professionals SET %s = NULL, updated_at = NOW() WHERE id = $1`, col), professionalID)
	return err
}

func (r *professionalRepoPG) FindUnlinkedByEmail(ctx context.Context, email string) ([]*Professional, error) {
	col, err := r.linkCol(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT id, nome, email, status, updated_at
		FROM professionals
		WHERE LOWER(email) = LOWER($1) AND status = $2 AND %s IS NULL
		ORDER BY id`, col), email, ProfessionalAtivo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.Nome, &p.Email, &p.Status, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

const linkRequestColumns = `id, user_id, professional_id, status, notes, decided_at, decided_by_user_id, created_at, updated_at`

func scanLinkRequest(row pgx.Row) (*LinkRequest, error) {
	var lr LinkRequest
	var status string
	err := row.Scan(&lr.ID, &lr.UserID, &lr.ProfessionalID, &status, &lr.Notes,
		&lr.DecidedAt, &lr.DecidedByUserID, &lr.CreatedAt, &lr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	lr.Status = RequestStatus(status)
	return &lr, nil
}

func (r *professionalRepoPG) CreateLinkRequest(ctx context.Context, lr *LinkRequest) error {
	lr.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO professional_link_requests (id, user_id, professional_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		lr.ID, lr.UserID, lr.ProfessionalID, string(lr.Status), lr.Notes,
	).Scan(&lr.CreatedAt, &lr.UpdatedAt)
}

func (r *professionalRepoPG) LockLinkRequest(ctx context.Context, id uuid.UUID) (*LinkRequest, error) {
	lr, err := scanLinkRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+linkRequestColumns+` FROM professional_link_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrLinkRequestNotFound
		}
		return nil, err
	}
	return lr, nil
}

func (r *professionalRepoPG) DecideLinkRequest(ctx context.Context, lr *LinkRequest) error {
	// The status guard keeps decided rows immutable even without the lock.
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE professional_link_requests
		SET status = $1, notes = COALESCE($2, notes), decided_at = NOW(),
			decided_by_user_id = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'pending'
		RETURNING notes, decided_at, updated_at`,
		string(lr.Status), lr.Notes, lr.DecidedByUserID, lr.ID,
	).Scan(&lr.Notes, &lr.DecidedAt, &lr.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrLinkRequestNotFound
	}
	return err
}

func (r *professionalRepoPG) ListLinkRequests(ctx context.Context, f ListFilter) ([]*LinkRequest, int, error) {
	where := ""
	args := []interface{}{}
	if f.Status != "" {
		where = " WHERE status = $1"
		args = append(args, string(f.Status))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM professional_link_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM professional_link_requests%s
		ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, linkRequestColumns, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*LinkRequest
	for rows.Next() {
		lr, err := scanLinkRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, lr)
	}
	return items, total, rows.Err()
}
