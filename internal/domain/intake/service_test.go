package intake

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolhida/acolhida/internal/domain/journey"
	"github.com/acolhida/acolhida/internal/platform/apperr"
	"github.com/acolhida/acolhida/internal/platform/db"
)

type fixture struct {
	svc      *Service
	repo     *InMemoryRepository
	patients *journey.InMemoryRepository
}

func newFixture() *fixture {
	patients := journey.NewInMemoryRepository()
	repo := NewInMemoryRepository()
	tx := db.NewMemoryTx(patients, repo)
	js := journey.NewService(patients, tx)
	return &fixture{svc: NewService(repo, tx, js), repo: repo, patients: patients}
}

func (f *fixture) history(t *testing.T, id uuid.UUID) []*journey.HistoryRecord {
	t.Helper()
	items, err := f.patients.ListHistory(context.Background(), id)
	require.NoError(t, err)
	return items
}

func (f *fixture) status(t *testing.T, id uuid.UUID) journey.Status {
	t.Helper()
	p, err := f.patients.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func TestInterviewThenDecision(t *testing.T) {
	f := newFixture()
	p1 := uuid.New()
	f.patients.AddPatient(p1, journey.StatusEmFilaEspera)
	ctx := context.Background()

	ivRes, err := f.svc.CreateInterview(ctx, CreateInterviewInput{PatientID: p1.String(), InterviewDate: "2024-03-01"}, 10)
	require.NoError(t, err)
	assert.Equal(t, journey.StatusEntrevistaRealizada, ivRes.Transition.NewStatus)
	assert.Equal(t, journey.StatusEntrevistaRealizada, f.status(t, p1))
	require.Len(t, f.history(t, p1), 2)

	decRes, err := f.svc.RecordVagaDecision(ctx, VagaDecisionInput{PatientID: p1.String(), Decisao: "aprovado", Justificativa: "ok"}, 10)
	require.NoError(t, err)
	assert.Equal(t, journey.StatusAprovado, decRes.Transition.NewStatus)
	assert.Equal(t, journey.StatusAprovado, f.status(t, p1))

	history := f.history(t, p1)
	require.Len(t, history, 3)
	assert.Nil(t, history[0].StatusAnterior)
	assert.Equal(t, journey.StatusEmFilaEspera, history[0].StatusNovo)
	require.NotNil(t, history[2].Motivo)
	assert.Equal(t, "ok", *history[2].Motivo)
	assert.Len(t, f.repo.Decisions(p1), 1)
}

func TestUpdateInterview_ReappliesTransitionIdempotently(t *testing.T) {
	f := newFixture()
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEmFilaEspera)
	ctx := context.Background()

	created, err := f.svc.CreateInterview(ctx, CreateInterviewInput{PatientID: p.String(), InterviewDate: "2024-03-01"}, 1)
	require.NoError(t, err)

	date := "2024-03-05"
	notes := "  familia presente "
	updated, err := f.svc.UpdateInterview(ctx, created.Interview.ID, UpdateInterviewInput{InterviewDate: &date, Observacoes: &notes}, 1)
	require.NoError(t, err)
	assert.False(t, updated.Transition.Changed)
	assert.Equal(t, 5, updated.Interview.InterviewDate.Day())
	require.NotNil(t, updated.Interview.Observacoes)
	assert.Equal(t, "familia presente", *updated.Interview.Observacoes)
	assert.Len(t, f.history(t, p), 2)
}

func TestUpdateInterview_MovesPatientBack(t *testing.T) {
	f := newFixture()
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEmFilaEspera)
	ctx := context.Background()

	created, err := f.svc.CreateInterview(ctx, CreateInterviewInput{PatientID: p.String(), InterviewDate: "2024-03-01"}, 1)
	require.NoError(t, err)
	_, err = f.svc.RecordVagaDecision(ctx, VagaDecisionInput{PatientID: p.String(), Decisao: "encaminhado", Justificativa: "rede"}, 1)
	require.NoError(t, err)

	res, err := f.svc.UpdateInterview(ctx, created.Interview.ID, UpdateInterviewInput{}, 1)
	require.NoError(t, err)
	assert.True(t, res.Transition.Changed)
	assert.Equal(t, journey.StatusEntrevistaRealizada, f.status(t, p))
}

func TestUpdateInterview_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateInterview(context.Background(), uuid.New(), UpdateInterviewInput{}, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateInterview_Validation(t *testing.T) {
	f := newFixture()
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEmFilaEspera)

	tests := []struct {
		name string
		in   CreateInterviewInput
		kind apperr.Kind
	}{
		{"bad patient id", CreateInterviewInput{PatientID: "P1", InterviewDate: "2024-03-01"}, apperr.KindValidation},
		{"bad date", CreateInterviewInput{PatientID: p.String(), InterviewDate: "01/03/2024"}, apperr.KindValidation},
		{"unknown patient", CreateInterviewInput{PatientID: uuid.NewString(), InterviewDate: "2024-03-01"}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateInterview(context.Background(), tt.in, 1)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Empty(t, f.history(t, p))
	assert.Equal(t, journey.StatusEmFilaEspera, f.status(t, p))
}

func TestCreateInterview_InvalidActorRollsBack(t *testing.T) {
	f := newFixture()
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEmFilaEspera)

	_, err := f.svc.CreateInterview(context.Background(), CreateInterviewInput{PatientID: p.String(), InterviewDate: "2024-03-01"}, 0)
	assert.Equal(t, apperr.CodeInvalidActor, apperr.CodeOf(err))
	assert.Empty(t, f.history(t, p))
}

func TestRecordVagaDecision_Validation(t *testing.T) {
	f := newFixture()
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEntrevistaRealizada)

	_, err := f.svc.RecordVagaDecision(context.Background(), VagaDecisionInput{PatientID: p.String(), Decisao: "matriculado", Justificativa: "x"}, 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.RecordVagaDecision(context.Background(), VagaDecisionInput{PatientID: p.String(), Decisao: "aprovado", Justificativa: "   "}, 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Empty(t, f.repo.Decisions(p))
	assert.Equal(t, journey.StatusEntrevistaRealizada, f.status(t, p))
}

func TestRecordVagaDecision_NormalizesDecision(t *testing.T) {
	f := newFixture()
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEmAnaliseVaga)

	res, err := f.svc.RecordVagaDecision(context.Background(), VagaDecisionInput{PatientID: p.String(), Decisao: " Encaminhado ", Justificativa: "rede parceira"}, 4)
	require.NoError(t, err)
	assert.Equal(t, "encaminhado", res.Decision.Decisao)
	assert.Equal(t, journey.StatusEncaminhado, f.status(t, p))
}
