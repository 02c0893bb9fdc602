package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/domain/journey"
	"github.com/acolhida/acolhida/internal/platform/auth"
	"github.com/acolhida/acolhida/internal/platform/middleware"
)

func newTestServer(f *fixture) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(zerolog.Nop())
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func send(e *echo.Echo, method, path, body string, actor *auth.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if actor != nil {
		req = req.WithContext(auth.WithActor(context.Background(), *actor))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success            bool            `json:"success"`
	Message            string          `json:"message"`
	Data               json.RawMessage `json:"data"`
	StatusJornadaAtual string          `json:"status_jornada_atual"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHandler_InterviewAndDecisionFlow(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	p1 := uuid.New()
	f.patients.AddPatient(p1, journey.StatusEmFilaEspera)
	staff := auth.NewActor(10, "usuario", nil)
	coord := auth.NewActor(11, "Coordenador Geral", nil)

	rec := send(e, http.MethodPost, "/api/v1/social-interviews",
		`{"patient_id":"`+p1.String()+`","interview_date":"2024-03-01"}`, &staff)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decode(t, rec); !env.Success || env.StatusJornadaAtual != "entrevista_realizada" {
		t.Errorf("unexpected interview response: %+v", env)
	}

	rec = send(e, http.MethodPost, "/api/v1/vaga-decisions",
		`{"assistido_id":"`+p1.String()+`","decisao":"aprovado","justificativa":"ok"}`, &coord)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decode(t, rec); env.StatusJornadaAtual != "aprovado" {
		t.Errorf("expected status_jornada_atual aprovado, got %+v", env)
	}

	if n := len(f.history(t, p1)); n != 3 {
		t.Errorf("expected 3 history rows, got %d", n)
	}
}

func TestHandler_VagaDecisionGate(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	p := uuid.New()
	f.patients.AddPatient(p, journey.StatusEntrevistaRealizada)
	body := `{"assistido_id":"` + p.String() + `","decisao":"aprovado","justificativa":"ok"}`

	// USUARIO only views profissionais.
	staff := auth.NewActor(10, "usuario", nil)
	if rec := send(e, http.MethodPost, "/api/v1/vaga-decisions", body, &staff); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}

	narrow := auth.NewActor(10, "usuario", []auth.Scope{auth.NewScope("profissionais", "edit")})
	if rec := send(e, http.MethodPost, "/api/v1/vaga-decisions", body, &narrow); rec.Code != http.StatusForbidden {
		t.Errorf("expected a single action not to satisfy profissionais:*, got %d", rec.Code)
	}

	wide := auth.NewActor(10, "usuario", []auth.Scope{auth.NewScope("profissionais", "*")})
	if rec := send(e, http.MethodPost, "/api/v1/vaga-decisions", body, &wide); rec.Code != http.StatusCreated {
		t.Errorf("expected 201 with profissionais:*, got %d: %s", rec.Code, rec.Body.String())
	}

	decider := auth.NewActor(12, "usuario", []auth.Scope{auth.NewScope("vagas", "decide")})
	if rec := send(e, http.MethodPost, "/api/v1/vaga-decisions", body, &decider); rec.Code != http.StatusCreated {
		t.Errorf("expected 201 with vagas:decide, got %d", rec.Code)
	}

	if rec := send(e, http.MethodPost, "/api/v1/vaga-decisions", body, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_InterviewErrors(t *testing.T) {
	f := newFixture()
	e := newTestServer(f)
	staff := auth.NewActor(10, "usuario", nil)

	rec := send(e, http.MethodPost, "/api/v1/social-interviews", `{"patient_id":"`+uuid.NewString()+`","interview_date":"2024-03-01"}`, &staff)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown patient, got %d", rec.Code)
	}
	if env := decode(t, rec); env.Success || env.Message == "" {
		t.Errorf("expected failure envelope with message, got %+v", env)
	}

	rec = send(e, http.MethodPut, "/api/v1/social-interviews/nope", `{}`, &staff)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}

	rec = send(e, http.MethodPut, "/api/v1/social-interviews/"+uuid.NewString(), `{}`, &staff)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown interview, got %d", rec.Code)
	}
}
