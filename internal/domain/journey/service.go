package journey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/internal/platform/metrics"
)

// Service is the journey state machine. Any status may move to any other;
// which caller may request which target is decided by the endpoints.
type Service struct {
	repo    Repository
	tx      db.Transactor
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx, logger: zerolog.Nop()}
}

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

func validateActor(actorID int64) error {
	if actorID <= 0 {
		return apperr.Validation(apperr.CodeInvalidActor, "actor must be a positive user id")
	}
	return nil
}

func validatePatient(id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.Validation(apperr.CodeInvalidInput, "patient id is required")
	}
	return nil
}

func (s *Service) lock(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.NotFound(apperr.CodePatientNotFound, "patient not found")
		}
		return nil, apperr.Internal("failed to lock patient", err)
	}
	return p, nil
}

// TransitionStatus moves the patient to rawStatus and appends one history
// row. Repeating the current status is a no-op reported as Changed=false.
// When ctx carries a transaction the transition joins it.
func (s *Service) TransitionStatus(ctx context.Context, patientID uuid.UUID, rawStatus string, actorID int64, reason string) (*TransitionResult, error) {
	next, ok := ParseStatus(rawStatus)
	if !ok {
		return nil, apperr.Validation(apperr.CodeInvalidStatus, "unknown journey status: "+rawStatus)
	}
	if err := validatePatient(patientID); err != nil {
		return nil, err
	}
	if err := validateActor(actorID); err != nil {
		return nil, err
	}
	defer s.metrics.ObserveWorkflow("transition_status", time.Now())

	var result *TransitionResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.lock(ctx, patientID)
		if err != nil {
			return err
		}
		result = &TransitionResult{PatientID: patientID, PreviousStatus: statusPtr(p.Status), NewStatus: next}
		if p.Status == next {
			return nil
		}

		if err := s.repo.UpdateStatus(ctx, patientID, next); err != nil {
			return apperr.Internal("failed to update patient status", err)
		}
		h := &HistoryRecord{
			PatientID:      patientID,
			StatusAnterior: statusPtr(p.Status),
			StatusNovo:     next,
			ChangedBy:      actorID,
			Motivo:         reasonPtr(reason),
		}
		if err := s.repo.AppendHistory(ctx, h); err != nil {
			return apperr.Internal("failed to append status history", err)
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(next), result.Changed)
	if result.Changed {
		ev := s.logger.Info().
			Str("patient_id", patientID.String()).
			Str("to", string(next)).
			Int64("actor", actorID)
		if result.PreviousStatus != nil {
			ev = ev.Str("from", string(*result.PreviousStatus))
		}
		ev.Msg("journey status changed")
	}
	return result, nil
}

// CreateInitialHistory writes the birth row (status_anterior NULL) for a
// patient unless one already exists. It reports whether a row was written.
// A patient without a stored status is seeded as em_fila_espera.
func (s *Service) CreateInitialHistory(ctx context.Context, patientID uuid.UUID, actorID int64, reason string) (bool, error) {
	if err := validatePatient(patientID); err != nil {
		return false, err
	}
	if err := validateActor(actorID); err != nil {
		return false, err
	}

	created := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.lock(ctx, patientID)
		if err != nil {
			return err
		}
		exists, err := s.repo.HasInitialHistory(ctx, patientID)
		if err != nil {
			return apperr.Internal("failed to check initial history", err)
		}
		if exists {
			return nil
		}

		status := p.Status
		if status == "" {
			status = StatusEmFilaEspera
			if err := s.repo.UpdateStatus(ctx, patientID, status); err != nil {
				return apperr.Internal("failed to update patient status", err)
			}
		}
		h := &HistoryRecord{
			PatientID:  patientID,
			StatusNovo: status,
			ChangedBy:  actorID,
			Motivo:     reasonPtr(reason),
		}
		if err := s.repo.AppendHistory(ctx, h); err != nil {
			return apperr.Internal("failed to append status history", err)
		}
		created = true
		return nil
	})
	return created, err
}

// History returns the patient's history oldest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*HistoryRecord, error) {
	if _, err := s.repo.Get(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.NotFound(apperr.CodePatientNotFound, "patient not found")
		}
		return nil, apperr.Internal("failed to load patient", err)
	}
	items, err := s.repo.ListHistory(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("failed to list status history", err)
	}
	if items == nil {
		items = []*HistoryRecord{}
	}
	return items, nil
}
