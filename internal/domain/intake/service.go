package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/domain/journey"
	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/internal/platform/metrics"
)

// Service records interviews and placement decisions. Each write runs in one
// transaction together with the journey transition it drives.
type Service struct {
	repo    Repository
	tx      db.Transactor
	journey *journey.Service
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, js *journey.Service) *Service {
	return &Service{repo: repo, tx: tx, journey: js, logger: zerolog.Nop()}
}

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

func parsePatientID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperr.Validation(apperr.CodeInvalidInput, "a valid patient id is required")
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidInput, "interview_date must be YYYY-MM-DD")
	}
	return d, nil
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// CreateInterview stores the interview and moves the patient to
// entrevista_realizada, seeding the history first when needed.
func (s *Service) CreateInterview(ctx context.Context, in CreateInterviewInput, actorID int64) (*InterviewResult, error) {
	patientID, err := parsePatientID(in.PatientID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(in.InterviewDate)
	if err != nil {
		return nil, err
	}
	defer s.metrics.ObserveWorkflow("create_interview", time.Now())

	iv := &Interview{PatientID: patientID, InterviewDate: date, Observacoes: trimmedPtr(in.Observacoes), CreatedBy: actorID}
	var tr *journey.TransitionResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.journey.CreateInitialHistory(ctx, patientID, actorID, ""); err != nil {
			return err
		}
		if err := s.repo.CreateInterview(ctx, iv); err != nil {
			return apperr.Internal("failed to create interview", err)
		}
		var err error
		tr, err = s.journey.TransitionStatus(ctx, patientID, string(journey.StatusEntrevistaRealizada), actorID, "entrevista social realizada")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("interview_id", iv.ID.String()).Str("patient_id", patientID.String()).Int64("actor", actorID).Msg("social interview created")
	return &InterviewResult{Interview: iv, Transition: tr}, nil
}

// UpdateInterview edits the interview and re-applies the transition, which is
// a no-op when the patient is already at entrevista_realizada.
func (s *Service) UpdateInterview(ctx context.Context, id uuid.UUID, in UpdateInterviewInput, actorID int64) (*InterviewResult, error) {
	var date *time.Time
	if in.InterviewDate != nil {
		d, err := parseDate(*in.InterviewDate)
		if err != nil {
			return nil, err
		}
		date = &d
	}

	var iv *Interview
	var tr *journey.TransitionResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		iv, err = s.repo.GetInterview(ctx, id)
		if err != nil {
			if errors.Is(err, ErrInterviewNotFound) {
				return apperr.NotFound(apperr.CodeNotFound, "interview not found")
			}
			return apperr.Internal("failed to load interview", err)
		}
		if date != nil {
			iv.InterviewDate = *date
		}
		if in.Observacoes != nil {
			iv.Observacoes = trimmedPtr(in.Observacoes)
		}
		if err := s.repo.UpdateInterview(ctx, iv); err != nil {
			return apperr.Internal("failed to update interview", err)
		}
		tr, err = s.journey.TransitionStatus(ctx, iv.PatientID, string(journey.StatusEntrevistaRealizada), actorID, "entrevista social atualizada")
		return err
	})
	if err != nil {
		return nil, err
	}
	return &InterviewResult{Interview: iv, Transition: tr}, nil
}

// RecordVagaDecision stores the decision and moves the patient to the
// decided status with the justification as the history reason.
func (s *Service) RecordVagaDecision(ctx context.Context, in VagaDecisionInput, actorID int64) (*DecisionResult, error) {
	patientID, err := parsePatientID(in.PatientID)
	if err != nil {
		return nil, err
	}
	decisao := strings.ToLower(strings.TrimSpace(in.Decisao))
	target, ok := decisionStatuses[decisao]
	if !ok {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "decisao must be aprovado or encaminhado")
	}
	justificativa := strings.TrimSpace(in.Justificativa)
	if justificativa == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "justificativa is required")
	}
	defer s.metrics.ObserveWorkflow("vaga_decision", time.Now())

	d := &VagaDecision{PatientID: patientID, Decisao: decisao, Justificativa: justificativa, DecidedBy: actorID}
	var tr *journey.TransitionResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.journey.CreateInitialHistory(ctx, patientID, actorID, ""); err != nil {
			return err
		}
		if err := s.repo.CreateDecision(ctx, d); err != nil {
			return apperr.Internal("failed to record vaga decision", err)
		}
		var err error
		tr, err = s.journey.TransitionStatus(ctx, patientID, string(target), actorID, justificativa)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("decision_id", d.ID.String()).Str("patient_id", patientID.String()).Str("decisao", decisao).Int64("actor", actorID).Msg("vaga decision recorded")
	return &DecisionResult{Decision: d, Transition: tr}, nil
}
