package professional

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/domain/access"
	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/auth"
	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/internal/platform/metrics"
)

// PolicySource supplies the active access settings; *access.Service
// satisfies it.
type PolicySource interface {
	Get(ctx context.Context) (access.Settings, error)
}

// Service adjudicates links between professionals and login accounts.
type Service struct {
	repo    Repository
	tx      db.Transactor
	policy  PolicySource
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, policy PolicySource) *Service {
	return &Service{repo: repo, tx: tx, policy: policy, logger: zerolog.Nop()}
}

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

var (
	errNotAdmin = apperr.Forbidden(apperr.CodeForbiddenNotAdmin, "administrator role required")

	errLinkedElsewhere = apperr.Conflict(apperr.CodeAlreadyLinkedElsewhere, "professional already linked to another account")
	errUserElsewhere   = apperr.Conflict(apperr.CodeAlreadyLinkedElsewhere, "user already linked to another professional")
	errLostRace        = apperr.Conflict(apperr.CodeConcurrentLinkLostRace, "professional was linked by a concurrent request")
)

func policyDisabled(p access.LinkPolicy) error {
	return apperr.Forbidden(apperr.CodePolicyDisabled, "operation not available under link policy "+string(p))
}

func (s *Service) linkPolicy(ctx context.Context) (access.LinkPolicy, error) {
	st, err := s.policy.Get(ctx)
	if err != nil {
		return "", err
	}
	return st.LinkPolicy, nil
}

// requireDirectLinkAllowed gates direct link/unlink: admins always, other
// callers only when accounts link themselves by email.
func (s *Service) requireDirectLinkAllowed(ctx context.Context, actor auth.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	policy, err := s.linkPolicy(ctx)
	if err != nil {
		return err
	}
	if policy == access.LinkAutoByEmail {
		return nil
	}
	return errNotAdmin
}

// requireAdjudication gates listing and deciding requests.
func (s *Service) requireAdjudication(ctx context.Context, actor auth.Actor) error {
	if !actor.IsAdmin() {
		return errNotAdmin
	}
	return s.requirePolicy(ctx, access.LinkSelfClaimWithApproval)
}

func (s *Service) requirePolicy(ctx context.Context, want access.LinkPolicy) error {
	policy, err := s.linkPolicy(ctx)
	if err != nil {
		return err
	}
	if policy != want {
		return policyDisabled(policy)
	}
	return nil
}

func (s *Service) lockProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	p, err := s.repo.LockProfessional(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, apperr.NotFound(apperr.CodeNotFound, "professional not found")
		}
		return nil, apperr.Internal("failed to lock professional", err)
	}
	return p, nil
}

func (s *Service) lockUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.LockUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound(apperr.CodeNotFound, "user not found")
		}
		return nil, apperr.Internal("failed to lock user", err)
	}
	return u, nil
}

func (s *Service) lockRequest(ctx context.Context, id uuid.UUID) (*LinkRequest, error) {
	lr, err := s.repo.LockLinkRequest(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLinkRequestNotFound) {
			return nil, apperr.NotFound(apperr.CodeNotFound, "link request not found")
		}
		return nil, apperr.Internal("failed to lock link request", err)
	}
	return lr, nil
}

// checkUserFree fails when userID is linked to a professional other than
// professionalID.
func (s *Service) checkUserFree(ctx context.Context, userID int64, professionalID uuid.UUID) error {
	linked, err := s.repo.LinkedProfessional(ctx, userID)
	if err != nil {
		return apperr.Internal("failed to check user link", err)
	}
	if linked != uuid.Nil && linked != professionalID {
		return errUserElsewhere
	}
	return nil
}

// link sets the link on an unlinked professional. Losing the IS NULL guard
// to a concurrent writer is reported as a conflict.
func (s *Service) link(ctx context.Context, professionalID uuid.UUID, userID int64) error {
	ok, err := s.repo.SetLink(ctx, professionalID, userID)
	if err != nil {
		return classifyWriteError(err, "failed to link professional")
	}
	if !ok {
		return errLostRace
	}
	return nil
}

func (s *Service) record(op string, err error) {
	result := "ok"
	if err != nil {
		result = apperr.CodeOf(err)
	}
	s.metrics.IncLinkOutcome(op, result)
}

// DirectLink links a professional to a user account. Linking the same pair
// again is a no-op.
func (s *Service) DirectLink(ctx context.Context, professionalID uuid.UUID, userID int64, actor auth.Actor) (res *LinkResult, err error) {
	defer func() { s.record("direct_link", err) }()
	if userID <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "user_id must be a positive integer")
	}
	if err := s.requireDirectLinkAllowed(ctx, actor); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.lockProfessional(ctx, professionalID)
		if err != nil {
			return err
		}
		if _, err := s.lockUser(ctx, userID); err != nil {
			return err
		}
		if p.UserID != nil {
			if *p.UserID != userID {
				return errLinkedElsewhere
			}
			res = &LinkResult{ProfessionalID: professionalID, UserID: p.UserID}
			return nil
		}
		if err := s.checkUserFree(ctx, userID, professionalID); err != nil {
			return err
		}
		if err := s.link(ctx, professionalID, userID); err != nil {
			return err
		}
		res = &LinkResult{ProfessionalID: professionalID, UserID: &userID, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.logger.Info().Str("professional_id", professionalID.String()).Int64("user_id", userID).Int64("actor", actor.UserID).Msg("professional linked")
	}
	return res, nil
}

// DirectUnlink clears the professional's link. Unlinking an unlinked
// professional succeeds without changes.
func (s *Service) DirectUnlink(ctx context.Context, professionalID uuid.UUID, actor auth.Actor) (res *LinkResult, err error) {
	defer func() { s.record("direct_unlink", err) }()
	if err := s.requireDirectLinkAllowed(ctx, actor); err != nil {
		return nil, err
	}

	var previous *int64
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.lockProfessional(ctx, professionalID)
		if err != nil {
			return err
		}
		res = &LinkResult{ProfessionalID: professionalID}
		if p.UserID == nil {
			return nil
		}
		previous = p.UserID
		if err := s.repo.ClearLink(ctx, professionalID); err != nil {
			return apperr.Internal("failed to unlink professional", err)
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != nil {
		s.logger.Info().Str("professional_id", professionalID.String()).Int64("user_id", *previous).Int64("actor", actor.UserID).Msg("professional unlinked")
	}
	return res, nil
}

// CreateLinkRequest files a pending claim by the actor on a professional.
func (s *Service) CreateLinkRequest(ctx context.Context, professionalID uuid.UUID, actor auth.Actor, notes string) (lr *LinkRequest, err error) {
	defer func() { s.record("create_request", err) }()
	if actor.UserID <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidActor, "actor must be a positive user id")
	}
	if err := s.requirePolicy(ctx, access.LinkSelfClaimWithApproval); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.lockProfessional(ctx, professionalID)
		if err != nil {
			return err
		}
		if _, err := s.lockUser(ctx, actor.UserID); err != nil {
			return err
		}
		if p.UserID != nil {
			if *p.UserID == actor.UserID {
				return apperr.Conflict(apperr.CodeAlreadyLinked, "professional is already linked to your account")
			}
			return errLinkedElsewhere
		}
		if err := s.checkUserFree(ctx, actor.UserID, professionalID); err != nil {
			return err
		}

		lr = &LinkRequest{
			UserID:         actor.UserID,
			ProfessionalID: professionalID,
			Status:         RequestPending,
			Notes:          notesPtr(notes),
		}
		if err := s.repo.CreateLinkRequest(ctx, lr); err != nil {
			return classifyWriteError(err, "failed to create link request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("request_id", lr.ID.String()).Str("professional_id", professionalID.String()).Int64("user_id", actor.UserID).Msg("link request created")
	return lr, nil
}

// ListLinkRequests lists requests for adjudication, newest first.
func (s *Service) ListLinkRequests(ctx context.Context, f ListFilter, actor auth.Actor) ([]*LinkRequest, int, error) {
	if err := s.requireAdjudication(ctx, actor); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListLinkRequests(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal("failed to list link requests", err)
	}
	if items == nil {
		items = []*LinkRequest{}
	}
	return items, total, nil
}

// ApproveLinkRequest approves a pending request and links the pair. The
// link rules are re-checked because state may have changed since filing.
func (s *Service) ApproveLinkRequest(ctx context.Context, requestID uuid.UUID, actor auth.Actor, notes string) (lr *LinkRequest, err error) {
	defer func() { s.record("approve", err) }()
	if err := s.requireAdjudication(ctx, actor); err != nil {
		return nil, err
	}
	defer s.metrics.ObserveWorkflow("approve_link_request", time.Now())

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if lr, err = s.lockRequest(ctx, requestID); err != nil {
			return err
		}
		if lr.Status != RequestPending {
			return apperr.Conflict(apperr.CodeAlreadyDecided, "link request already "+string(lr.Status))
		}
		p, err := s.lockProfessional(ctx, lr.ProfessionalID)
		if err != nil {
			return err
		}
		if _, err := s.lockUser(ctx, lr.UserID); err != nil {
			return err
		}
		if p.UserID != nil && *p.UserID != lr.UserID {
			return errLinkedElsewhere
		}
		if err := s.checkUserFree(ctx, lr.UserID, lr.ProfessionalID); err != nil {
			return err
		}
		if p.UserID == nil {
			if err := s.link(ctx, lr.ProfessionalID, lr.UserID); err != nil {
				return err
			}
		}
		return s.decide(ctx, lr, RequestApproved, actor.UserID, notes)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("request_id", requestID.String()).Str("professional_id", lr.ProfessionalID.String()).
		Int64("user_id", lr.UserID).Str("decision", string(RequestApproved)).Int64("actor", actor.UserID).Msg("link request decided")
	return lr, nil
}

// RejectLinkRequest rejects a pending request without touching links.
func (s *Service) RejectLinkRequest(ctx context.Context, requestID uuid.UUID, actor auth.Actor, notes string) (lr *LinkRequest, err error) {
	defer func() { s.record("reject", err) }()
	if err := s.requireAdjudication(ctx, actor); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if lr, err = s.lockRequest(ctx, requestID); err != nil {
			return err
		}
		if lr.Status != RequestPending {
			return apperr.Conflict(apperr.CodeAlreadyDecided, "link request already "+string(lr.Status))
		}
		return s.decide(ctx, lr, RequestRejected, actor.UserID, notes)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("request_id", requestID.String()).Str("professional_id", lr.ProfessionalID.String()).
		Int64("user_id", lr.UserID).Str("decision", string(RequestRejected)).Int64("actor", actor.UserID).Msg("link request decided")
	return lr, nil
}

func (s *Service) decide(ctx context.Context, lr *LinkRequest, status RequestStatus, adminID int64, notes string) error {
	lr.Status = status
	lr.DecidedByUserID = &adminID
	if n := notesPtr(notes); n != nil {
		lr.Notes = n
	}
	if err := s.repo.DecideLinkRequest(ctx, lr); err != nil {
		if errors.Is(err, ErrLinkRequestNotFound) {
			return apperr.Conflict(apperr.CodeAlreadyDecided, "link request already decided")
		}
		return apperr.Internal("failed to decide link request", err)
	}
	return nil
}

// LinkByEmail links the actor's account to the single active, unlinked
// professional sharing its email. It only runs under AUTO_LINK_BY_EMAIL.
func (s *Service) LinkByEmail(ctx context.Context, actor auth.Actor) (res *LinkResult, err error) {
	defer func() { s.record("link_by_email", err) }()
	if actor.UserID <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidActor, "actor must be a positive user id")
	}
	if err := s.requirePolicy(ctx, access.LinkAutoByEmail); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		linked, err := s.repo.LinkedProfessional(ctx, actor.UserID)
		if err != nil {
			return apperr.Internal("failed to check user link", err)
		}
		if linked != uuid.Nil {
			uid := actor.UserID
			res = &LinkResult{ProfessionalID: linked, UserID: &uid}
			return nil
		}

		// Read without locks to find the candidate, then lock in the usual
		// professional, user order and re-check.
		u, err := s.repo.GetUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return apperr.NotFound(apperr.CodeNotFound, "user not found")
			}
			return apperr.Internal("failed to load user", err)
		}
		if u.Email == nil || strings.TrimSpace(*u.Email) == "" {
			return apperr.Validation(apperr.CodeInvalidInput, "your account has no email to match")
		}
		candidates, err := s.repo.FindUnlinkedByEmail(ctx, strings.TrimSpace(*u.Email))
		if err != nil {
			return apperr.Internal("failed to search professionals", err)
		}
		switch len(candidates) {
		case 0:
			return apperr.NotFound(apperr.CodeNotFound, "no unlinked professional matches your email")
		case 1:
		default:
			return apperr.Conflict(apperr.CodeAmbiguousEmailMatch, "more than one professional matches your email")
		}

		target := candidates[0].ID
		p, err := s.lockProfessional(ctx, target)
		if err != nil {
			return err
		}
		if p.UserID != nil {
			return errLostRace
		}
		if _, err := s.lockUser(ctx, actor.UserID); err != nil {
			return err
		}
		if err := s.checkUserFree(ctx, actor.UserID, target); err != nil {
			return err
		}
		if err := s.link(ctx, target, actor.UserID); err != nil {
			return err
		}
		uid := actor.UserID
		res = &LinkResult{ProfessionalID: target, UserID: &uid, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.logger.Info().Str("professional_id", res.ProfessionalID.String()).Int64("user_id", actor.UserID).Msg("professional linked by email")
	}
	return res, nil
}
