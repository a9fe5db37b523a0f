package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"teleconsult/internal/config"
	"teleconsult/internal/db"
	"teleconsult/internal/domain"
	"teleconsult/internal/engine"
	"teleconsult/internal/mailer"
	"teleconsult/internal/migrate"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("Test Clinic")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg, mailer.Noop{})
	if err := e.Repo.SeedSpecialities(context.Background(), cfg.Specialities.Catalog); err != nil {
		t.Fatalf("seed specialities: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testJWTSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// registerAndLogin registers a user through the open endpoints and returns a
// bearer token for it.
func registerAndLogin(t *testing.T, srv *testServer, body map[string]any) (string, UserResponse) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/users", body, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/users/login", map[string]any{
		"email":    body["email"],
		"password": body["password"],
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}
	var login LoginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	return login.Token, login.User
}

func cardiologyID(t *testing.T, srv *testServer) int64 {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/specialities", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("specialities status %d: %s", res.StatusCode, string(data))
	}
	var items []SpecialityResponse
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("unmarshal specialities: %v", err)
	}
	for _, s := range items {
		if s.Name == "Cardiología" {
			return s.ID
		}
	}
	t.Fatal("seed catalog is missing Cardiología")
	return 0
}

func patientBody(userName string) map[string]any {
	return map[string]any{
		"first_name": "Ana",
		"email":      userName + "@example.com",
		"password":   "secret-pass",
		"user_type":  domain.UserTypePatient,
		"user_name":  userName,
	}
}

func doctorBody(userName string, specialityID int64) map[string]any {
	return map[string]any{
		"first_name":     "Luis",
		"email":          userName + "@example.com",
		"password":       "secret-pass",
		"user_type":      domain.UserTypeDoctor,
		"user_name":      userName,
		"speciality_ids": []int64{specialityID},
		"doctor_code":    "1234",
	}
}

func TestRequestsWithoutCredentialsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/consultations", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", envelope.Error.Code)
	}
}

func TestConsultationLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	cardio := cardiologyID(t, srv)
	patientToken, _ := registerAndLogin(t, srv, patientBody("ana"))
	doctorToken, _ := registerAndLogin(t, srv, doctorBody("drluis", cardio))
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/consultations", map[string]any{
		"date":          "2026-02-01T10:00:00Z",
		"title":         "Chest pain",
		"severity":      "high",
		"speciality_id": cardio,
	}, bearer(patientToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create consultation %d: %s", res.StatusCode, string(data))
	}
	var created ConsultationResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal consultation: %v", err)
	}
	base := fmt.Sprintf("%s/v1/consultations/%d", srv.URL, created.ID)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/consultations/unassigned", nil, bearer(doctorToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unassigned %d: %s", res.StatusCode, string(data))
	}
	var pool []UnassignedConsultationResponse
	if err := json.Unmarshal(data, &pool); err != nil {
		t.Fatalf("unmarshal pool: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != created.ID {
		t.Fatalf("expected consultation %d in pool, got %+v", created.ID, pool)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/assign", nil, bearer(doctorToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("assign %d: %s", res.StatusCode, string(data))
	}

	// The pool is now empty and reads as not found.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/consultations/unassigned", nil, bearer(doctorToken))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for empty pool, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/responses", map[string]any{
		"content": "Rest and schedule an ECG.",
	}, bearer(doctorToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("respond %d: %s", res.StatusCode, string(data))
	}
	var resp ResponseResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	res, data = doJSON(t, client, http.MethodGet, base, nil, bearer(patientToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("detail %d: %s", res.StatusCode, string(data))
	}
	var detail ConsultationViewResponse
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if detail.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", detail.Status)
	}

	rateURL := fmt.Sprintf("%s/v1/responses/%d/rating", srv.URL, resp.ID)
	res, data = doJSON(t, client, http.MethodPost, rateURL, map[string]any{"rating": 4}, bearer(patientToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("rate %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, rateURL, map[string]any{"rating": 2}, bearer(patientToken))
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second rating, got %d: %s", res.StatusCode, string(data))
	}
}

func TestRoleEnforcement(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	cardio := cardiologyID(t, srv)
	patientToken, _ := registerAndLogin(t, srv, patientBody("ana"))
	doctorToken, _ := registerAndLogin(t, srv, doctorBody("drluis", cardio))
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/consultations", map[string]any{
		"date":          "2026-02-01T10:00:00Z",
		"title":         "Chest pain",
		"speciality_id": cardio,
	}, bearer(doctorToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("doctor creating a consultation: expected 403, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/consultations/unassigned", nil, bearer(patientToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("patient browsing the pool: expected 403, got %d: %s", res.StatusCode, string(data))
	}
}

func TestValidationMapsToBadRequest(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	cardio := cardiologyID(t, srv)
	patientToken, _ := registerAndLogin(t, srv, patientBody("ana"))

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/consultations", map[string]any{
		"date":          "not-a-date",
		"title":         "Chest pain",
		"speciality_id": cardio,
	}, bearer(patientToken))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d: %s", res.StatusCode, string(data))
	}
}

func TestDoctorRegistrationCodeRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	cardio := cardiologyID(t, srv)

	body := doctorBody("drluis", cardio)
	body["doctor_code"] = "wrong"
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/users", body, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for bad doctor code, got %d: %s", res.StatusCode, string(data))
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	registerAndLogin(t, srv, patientBody("ana"))

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/users/login", map[string]any{
		"email":    "ana@example.com",
		"password": "wrong-pass",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
}

func TestForeignConsultationReadsAsNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	cardio := cardiologyID(t, srv)
	anaToken, _ := registerAndLogin(t, srv, patientBody("ana"))
	bobToken, _ := registerAndLogin(t, srv, patientBody("bob"))
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/consultations", map[string]any{
		"date":          "2026-02-01T10:00:00Z",
		"title":         "Chest pain",
		"speciality_id": cardio,
	}, bearer(anaToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create %d: %s", res.StatusCode, string(data))
	}
	var created ConsultationResponse
	_ = json.Unmarshal(data, &created)

	res, data = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/v1/consultations/%d", srv.URL, created.ID), nil, bearer(bobToken))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign consultation, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	_, user := registerAndLogin(t, srv, patientBody("ana"))

	// Keys are minted out of band, CLI-style.
	raw, _, err := srv.Engine.CreateAPIKey(context.Background(), user.ID, "test key")
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{"X-Api-Key": raw})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me with api key %d: %s", res.StatusCode, string(data))
	}
	var me UserResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, me.ID)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{"X-Api-Key": "tc_bogus"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d: %s", res.StatusCode, string(data))
	}
}
