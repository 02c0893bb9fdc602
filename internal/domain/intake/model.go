package intake

import (
	"time"

	"github.com/google/uuid"

	"github.com/acolhida/acolhida/internal/domain/journey"
)

const dateLayout = "2006-01-02"

// Interview is a social interview held with a patient.
type Interview struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	InterviewDate time.Time `json:"interview_date"`
	Observacoes   *string   `json:"observacoes,omitempty"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateInterviewInput struct {
	PatientID     string  `json:"patient_id"`
	InterviewDate string  `json:"interview_date"`
	Observacoes   *string `json:"observacoes"`
}

type UpdateInterviewInput struct {
	InterviewDate *string `json:"interview_date"`
	Observacoes   *string `json:"observacoes"`
}

// Decision values accepted by RecordVagaDecision; each is also the journey
// status the patient moves to.
var decisionStatuses = map[string]journey.Status{
	"aprovado":    journey.StatusAprovado,
	"encaminhado": journey.StatusEncaminhado,
}

// VagaDecision records the placement decision for a patient.
type VagaDecision struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"assistido_id"`
	Decisao       string    `json:"decisao"`
	Justificativa string    `json:"justificativa"`
	DecidedBy     int64     `json:"decided_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type VagaDecisionInput struct {
	PatientID     string `json:"assistido_id"`
	Decisao       string `json:"decisao"`
	Justificativa string `json:"justificativa"`
}

// InterviewResult is an interview together with the journey transition it
// caused.
type InterviewResult struct {
	Interview  *Interview
	Transition *journey.TransitionResult
}

type DecisionResult struct {
	Decision   *VagaDecision
	Transition *journey.TransitionResult
}
