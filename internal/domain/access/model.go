package access

import (
	"strings"
	"time"

	"github.com/acolhida/acolhida/internal/platform/apperr"
)


type RegistrationMode string

const (
	RegistrationAdminOnly    RegistrationMode = "ADMIN_ONLY"
	RegistrationPublicSignup RegistrationMode = "PUBLIC_SIGNUP"
	RegistrationInviteOnly   RegistrationMode = "INVITE_ONLY"
)

func (m RegistrationMode) Valid() bool {
	switch m {
	case RegistrationAdminOnly, RegistrationPublicSignup, RegistrationInviteOnly:
		return true
	}
	return false
}

// LinkPolicy selects which professional/account linking workflow is active.
type LinkPolicy string

const (
	LinkManualAdmin           LinkPolicy = "MANUAL_LINK_ADMIN"
	LinkAutoByEmail           LinkPolicy = "AUTO_LINK_BY_EMAIL"
	LinkSelfClaimWithApproval LinkPolicy = "SELF_CLAIM_WITH_APPROVAL"
)

func (p LinkPolicy) Valid() bool {
	switch p {
	case LinkManualAdmin, LinkAutoByEmail, LinkSelfClaimWithApproval:
		return true
	}
	return false
}

// Settings is the normalized installation-wide access policy.
type Settings struct {
	RegistrationMode                RegistrationMode `json:"registration_mode"`
	LinkPolicy                      LinkPolicy       `json:"link_policy"`
	AllowCreateUserFromProfessional bool             `json:"allow_create_user_from_professional"`
	BlockDuplicateEmail             bool             `json:"block_duplicate_email"`
	AllowPublicRegistration         bool             `json:"allow_public_registration"`
	UpdatedAt                       *time.Time       `json:"updated_at,omitempty"`
	UpdatedBy                       *int64           `json:"updated_by,omitempty"`
}

// Defaults are served whenever the stored row is missing a value or cannot
// be read because the schema lags behind.
func Defaults() Settings {
	return Settings{
		RegistrationMode:                RegistrationAdminOnly,
		LinkPolicy:                      LinkManualAdmin,
		AllowCreateUserFromProfessional: true,
		BlockDuplicateEmail:             true,
		AllowPublicRegistration:         false,
	}
}

// Record is the raw singleton row; nil fields were NULL.
type Record struct {
	RegistrationMode                *string
	LinkPolicy                      *string
	AllowCreateUserFromProfessional *bool
	BlockDuplicateEmail             *bool
	AllowPublicRegistration         *bool
	UpdatedAt                       *time.Time
	UpdatedBy                       *int64
}

// Normalize fills every missing or unknown value with its default.
// AllowPublicRegistration is always recomputed from RegistrationMode; the
// stored flag is ignored.
func (r Record) Normalize() Settings {
	s := Defaults()
	if r.RegistrationMode != nil {
		if m := RegistrationMode(strings.ToUpper(strings.TrimSpace(*r.RegistrationMode))); m.Valid() {
			s.RegistrationMode = m
		}
	}
	if r.LinkPolicy != nil {
		if p := LinkPolicy(strings.ToUpper(strings.TrimSpace(*r.LinkPolicy))); p.Valid() {
			s.LinkPolicy = p
		}
	}
	if r.AllowCreateUserFromProfessional != nil {
		s.AllowCreateUserFromProfessional = *r.AllowCreateUserFromProfessional
	}
	if r.BlockDuplicateEmail != nil {
		s.BlockDuplicateEmail = *r.BlockDuplicateEmail
	}
	s.UpdatedAt = r.UpdatedAt
	s.UpdatedBy = r.UpdatedBy
	return s.normalized()
}

func (s Settings) normalized() Settings {
	if !s.RegistrationMode.Valid() {
		s.RegistrationMode = RegistrationAdminOnly
	}
	if !s.LinkPolicy.Valid() {
		s.LinkPolicy = LinkManualAdmin
	}
	s.AllowPublicRegistration = s.RegistrationMode == RegistrationPublicSignup
	return s
}

// UpdateInput is a partial update; nil fields keep their current value.
type UpdateInput struct {
	RegistrationMode                *string `json:"registration_mode"`
	LinkPolicy                      *string `json:"link_policy"`
	AllowCreateUserFromProfessional *bool   `json:"allow_create_user_from_professional"`
	BlockDuplicateEmail             *bool   `json:"block_duplicate_email"`
}

// Patch is a validated UpdateInput. The repository merges it into the stored
// row in one statement, so fields it leaves nil are never rewritten.
type Patch struct {
	RegistrationMode                *RegistrationMode
	LinkPolicy                      *LinkPolicy
	AllowCreateUserFromProfessional *bool
	BlockDuplicateEmail             *bool
}

// ToPatch validates the requested values.
func (in UpdateInput) ToPatch() (Patch, error) {
	var p Patch
	if in.RegistrationMode != nil {
		m := RegistrationMode(strings.ToUpper(strings.TrimSpace(*in.RegistrationMode)))
		if !m.Valid() {
			return Patch{}, apperr.Validation(apperr.CodeInvalidInput,
				"registration_mode must be one of ADMIN_ONLY, PUBLIC_SIGNUP, INVITE_ONLY")
		}
		p.RegistrationMode = &m
	}
	if in.LinkPolicy != nil {
		lp := LinkPolicy(strings.ToUpper(strings.TrimSpace(*in.LinkPolicy)))
		if !lp.Valid() {
			return Patch{}, apperr.Validation(apperr.CodeInvalidInput,
				"link_policy must be one of MANUAL_LINK_ADMIN, AUTO_LINK_BY_EMAIL, SELF_CLAIM_WITH_APPROVAL")
		}
		p.LinkPolicy = &lp
	}
	p.AllowCreateUserFromProfessional = in.AllowCreateUserFromProfessional
	p.BlockDuplicateEmail = in.BlockDuplicateEmail
	return p, nil
}

// Apply returns s with the patched fields replaced.
func (p Patch) Apply(s Settings) Settings {
	if p.RegistrationMode != nil {
		s.RegistrationMode = *p.RegistrationMode
	}
	if p.LinkPolicy != nil {
		s.LinkPolicy = *p.LinkPolicy
	}
	if p.AllowCreateUserFromProfessional != nil {
		s.AllowCreateUserFromProfessional = *p.AllowCreateUserFromProfessional
	}
	if p.BlockDuplicateEmail != nil {
		s.BlockDuplicateEmail = *p.BlockDuplicateEmail
	}
	return s.normalized()
}
