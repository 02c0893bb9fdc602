package access

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acolhida/acolhida/internal/platform/db"
)

type settingsRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &settingsRepoPG{pool: pool}
}

func (r *settingsRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const settingsColumns = `registration_mode, link_policy, allow_create_user_from_professional,
	block_duplicate_email, allow_public_registration, updated_at, updated_by`

func (r *settingsRepoPG) Get(ctx context.Context) (*Record, error) {
	var rec Record
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+settingsColumns+` FROM access_settings WHERE id = 1`).Scan(
		&rec.RegistrationMode, &rec.LinkPolicy, &rec.AllowCreateUserFromProfessional,
		&rec.BlockDuplicateEmail, &rec.AllowPublicRegistration, &rec.UpdatedAt, &rec.UpdatedBy,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotSeeded
		}
		return nil, err
	}
	return &rec, nil
}

func (r *settingsRepoPG) EnsureSingleton(ctx context.Context, d Settings) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO access_settings (
			id, registration_mode, link_policy, allow_create_user_from_professional,
			block_duplicate_email, allow_public_registration
		) VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		string(d.RegistrationMode), string(d.LinkPolicy), d.AllowCreateUserFromProfessional,
		d.BlockDuplicateEmail, d.AllowPublicRegistration,
	)
	return err
}

// Save upserts the singleton. The insert branch carries the patched
// defaults; the update branch only touches columns the patch sets.
func (r *settingsRepoPG) Save(ctx context.Context, p Patch, actorID int64) (*Record, error) {
	d := p.Apply(Defaults())
	var rec Record
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO access_settings (
			id, registration_mode, link_policy, allow_create_user_from_professional,
			block_duplicate_email, allow_public_registration, updated_at, updated_by
		) VALUES (1, $1, $2, $3, $4, $5, NOW(), $10)
		ON CONFLICT (id) DO UPDATE SET
			registration_mode = COALESCE($6::text, access_settings.registration_mode),
			link_policy = COALESCE($7::text, access_settings.link_policy),
			allow_create_user_from_professional = COALESCE($8::boolean, access_settings.allow_create_user_from_professional),
			block_duplicate_email = COALESCE($9::boolean, access_settings.block_duplicate_email),
			allow_public_registration =
				UPPER(TRIM(COALESCE($6::text, access_settings.registration_mode))) = 'PUBLIC_SIGNUP',
			updated_at = NOW(),
			updated_by = $10
		RETURNING `+settingsColumns,
		string(d.RegistrationMode), string(d.LinkPolicy), d.AllowCreateUserFromProfessional,
		d.BlockDuplicateEmail, d.AllowPublicRegistration,
		optString(p.RegistrationMode), optString(p.LinkPolicy),
		p.AllowCreateUserFromProfessional, p.BlockDuplicateEmail, actorID,
	).Scan(
		&rec.RegistrationMode, &rec.LinkPolicy, &rec.AllowCreateUserFromProfessional,
		&rec.BlockDuplicateEmail, &rec.AllowPublicRegistration, &rec.UpdatedAt, &rec.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func optString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
