package journey

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a patient's stage in the intake-to-enrollment pipeline.
type Status string

const (
	StatusEmFilaEspera        Status = "em_fila_espera"
	StatusEntrevistaRealizada Status = "entrevista_realizada"
	StatusEmAvaliacao         Status = "em_avaliacao"
	StatusEmAnaliseVaga       Status = "em_analise_vaga"
	StatusAprovado            Status = "aprovado"
	StatusEncaminhado         Status = "encaminhado"
	StatusMatriculado         Status = "matriculado"
	StatusAtivo               Status = "ativo"
	StatusInativoAssistencial Status = "inativo_assistencial"
	StatusDesligado           Status = "desligado"
)

// Statuses lists every journey status in pipeline order.
var Statuses = []Status{
	StatusEmFilaEspera,
	StatusEntrevistaRealizada,
	StatusEmAvaliacao,
	StatusEmAnaliseVaga,
	StatusAprovado,
	StatusEncaminhado,
	StatusMatriculado,
	StatusAtivo,
	StatusInativoAssistencial,
	StatusDesligado,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus trims and lower-cases raw and reports whether the result is a
// known status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Patient is the slice of the assistido record owned by the journey.
// Status is empty when the stored column is NULL.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	Status    Status    `json:"status_jornada"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryRecord is one append-only row of assistido_status_history.
type HistoryRecord struct {
	ID             int64     `json:"id"`
	PatientID      uuid.UUID `json:"assistido_id"`
	StatusAnterior *Status   `json:"status_anterior"`
	StatusNovo     Status    `json:"status_novo"`
	ChangedBy      int64     `json:"changed_by"`
	Motivo         *string   `json:"motivo"`
	ChangedAt      time.Time `json:"changed_at"`
}

// TransitionResult reports the outcome of TransitionStatus.
type TransitionResult struct {
	PatientID      uuid.UUID `json:"assistido_id"`
	PreviousStatus *Status   `json:"status_anterior"`
	NewStatus      Status    `json:"status_novo"`
	Changed        bool      `json:"changed"`
}

func statusPtr(s Status) *Status {
	if s == "" {
		return nil
	}
	return &s
}

func reasonPtr(reason string) *string {
	r := strings.TrimSpace(reason)
	if r == "" {
		return nil
	}
	return &r
}
