package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/acolhida/acolhida/internal/config"
	"github.com/acolhida/acolhida/internal/domain/access"
	"github.com/acolhida/acolhida/internal/domain/intake"
	"github.com/acolhida/acolhida/internal/domain/journey"
	"github.com/acolhida/acolhida/internal/domain/professional"
	"github.com/acolhida/acolhida/internal/platform/auth"
	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/internal/platform/metrics"
	"github.com/acolhida/acolhida/internal/platform/middleware"
	"github.com/acolhida/acolhida/migrations"
)

type testApp struct {
	e             *echo.Echo
	patients      *journey.InMemoryRepository
	professionals *professional.InMemoryRepository
}

func newTestApp(t *testing.T, authMode string) *testApp {
	t.Helper()
	cfg := &config.Config{
		Env:            "test",
		AuthMode:       authMode,
		AuthSigningKey: strings.Repeat("k", 32),
		CORSOrigins:    []string{"http://localhost:3000"},
		PolicyCacheTTL: time.Minute,
	}

	patients := journey.NewInMemoryRepository()
	interviews := intake.NewInMemoryRepository()
	professionals := professional.NewInMemoryRepository()
	tx := db.NewMemoryTx(patients, interviews, professionals)

	svc := newServices(tx, access.NewInMemoryRepository(), patients, interviews, professionals, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	svc.instrument(m, zerolog.Nop())

	return &testApp{
		e:             newServer(cfg, zerolog.Nop(), svc, m, nil),
		patients:      patients,
		professionals: professionals,
	}
}

type devIdentity struct {
	userID      string
	role        string
	permissions string
}

func (a *testApp) do(method, path, body string, id *devIdentity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if id != nil {
		req.Header.Set(auth.DevUserIDHeader, id.userID)
		req.Header.Set(auth.DevRoleHeader, id.role)
		req.Header.Set(auth.DevPermissionsHeader, id.permissions)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	app := newTestApp(t, config.AuthModeJWT)

	rec := app.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}

	rec = app.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics to be public, got %d", rec.Code)
	}
}

func TestAPIRequiresTokenInJWTMode(t *testing.T) {
	app := newTestApp(t, config.AuthModeJWT)

	rec := app.do(http.MethodGet, "/api/v1/access-settings", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDevModeRunsAsAdminByDefault(t *testing.T) {
	app := newTestApp(t, config.AuthModeDevelopment)

	rec := app.do(http.MethodPut, "/api/v1/access-settings", `{"registration_mode":"PUBLIC_SIGNUP"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data access.Settings `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Data.AllowPublicRegistration {
		t.Error("expected derived public registration flag")
	}
}

func TestSelfClaimAcrossWiredServices(t *testing.T) {
	app := newTestApp(t, config.AuthModeDevelopment)
	pr := uuid.New()
	app.professionals.AddProfessional(professional.Professional{ID: pr, Nome: "Ana"})
	app.professionals.AddUser(professional.User{ID: 7, Role: "USUARIO", Status: "ATIVO"})
	user := &devIdentity{userID: "7", role: "usuario", permissions: "profissionais:view"}

	rec := app.do(http.MethodPost, "/api/v1/profissionais/"+pr.String()+"/link-requests", `{}`, user)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected policy gate before enabling self-claim, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodPut, "/api/v1/access-settings", `{"link_policy":"SELF_CLAIM_WITH_APPROVAL"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("enable self-claim: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodPost, "/api/v1/profissionais/"+pr.String()+"/link-requests", `{"notes":"sou eu"}`, user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create request: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data professional.LinkRequest `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = app.do(http.MethodPatch, "/api/v1/profissionais/link-requests/"+created.Data.ID.String()+"/approve", `{}`, user)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected non-admin approval to be rejected, got %d", rec.Code)
	}

	rec = app.do(http.MethodPatch, "/api/v1/profissionais/link-requests/"+created.Data.ID.String()+"/approve", `{}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}
	p, _ := app.professionals.Professional(pr)
	if p.UserID == nil || *p.UserID != 7 {
		t.Errorf("expected professional linked to user 7, got %v", p.UserID)
	}
}

func TestInterviewMovesJourney(t *testing.T) {
	app := newTestApp(t, config.AuthModeDevelopment)
	p1 := uuid.New()
	app.patients.AddPatient(p1, journey.StatusEmFilaEspera)

	rec := app.do(http.MethodPost, "/api/v1/social-interviews",
		`{"patient_id":"`+p1.String()+`","interview_date":"2026-03-01"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create interview: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodGet, "/api/v1/assistidos/"+p1.String()+"/status-history", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []journey.HistoryRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected initial row plus transition, got %d", len(body.Data))
	}
}

func TestMigrationFiles(t *testing.T) {
	if migrationFiles("") != migrations.FS {
		t.Error("expected embedded migrations by default")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_core.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatal(err)
	}
	found, err := db.NewMigrator(nil, migrationFiles(dir), "").LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(found) != 1 || found[0].Name != "001_core.sql" {
		t.Errorf("expected migrations read from %s, got %+v", dir, found)
	}
}

type columnsOf map[string]string

func (c columnsOf) Columns(_ context.Context, table string) (map[string]string, error) {
	if table != "professionals" {
		return nil, nil
	}
	if c == nil {
		return nil, errors.New("relation does not exist")
	}
	return c, nil
}

func TestCheckLinkColumn(t *testing.T) {
	tests := []struct {
		name    string
		columns columnsOf
		wantErr bool
	}{
		{"integer column", columnsOf{"user_id_int": "bigint"}, false},
		{"uuid column", columnsOf{"user_id": "uuid"}, true},
		{"table not migrated", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := db.NewSchemaProbeWithLister(tt.columns)
			err := checkLinkColumn(context.Background(), probe, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkLinkColumn() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, db.ErrUnsupportedLinkColumn) {
				t.Errorf("expected ErrUnsupportedLinkColumn, got %v", err)
			}
		})
	}
}
