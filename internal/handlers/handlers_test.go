package handlers

import (
	"bptracker/config"
	"bptracker/internal/app"
	. "bptracker/internal/models"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t     *testing.T
	fiber *fiber.App
	app   *app.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	a, err := app.NewWithConfig(config.Config{
		GeneralVersion:       "test-version",
		Environment:          "test",
		ServerRequestTimeout: 5,
		DatabaseDriver:       config.DriverSQLite,
		DatabaseDbPath:       filepath.Join(t.TempDir(), "handlers.db"),
		SecurityJwtSecret:    "test-secret",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	server := fiber.New()
	require.NoError(t, Router(server, a))

	return &testServer{t: t, fiber: server, app: a}
}

func (s *testServer) do(method, path, token, body string) (*http.Response, string) {
	s.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.fiber.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, string(raw)
}

// login registers login and returns its bearer token.
func (s *testServer) login(login string) string {
	s.t.Helper()

	body := `{"login":"` + login + `","password":"Password123"}`
	resp, _ := s.do(fiber.MethodPost, "/api/users/register", "", body)
	require.Equal(s.t, fiber.StatusCreated, resp.StatusCode)

	resp, raw := s.do(fiber.MethodPost, "/api/users/login", "", body)
	require.Equal(s.t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal([]byte(raw), &payload))
	require.NotEmpty(s.t, payload.Token)
	return payload.Token
}

func (s *testServer) create(token, body string) int {
	s.t.Helper()
	resp, raw := s.do(fiber.MethodPost, "/api/measurements", token, body)
	require.Equal(s.t, fiber.StatusCreated, resp.StatusCode, raw)

	var payload struct {
		ID int `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal([]byte(raw), &payload))
	return payload.ID
}

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal([]byte(raw), &value), raw)
	return value
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, raw := s.do(fiber.MethodGet, "/api/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, raw)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
}

func TestEndpointsRequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{fiber.MethodGet, "/api/measurements"},
		{fiber.MethodGet, "/api/measurements/export"},
		{fiber.MethodGet, "/api/measurements/1"},
		{fiber.MethodPost, "/api/measurements"},
		{fiber.MethodPut, "/api/measurements/1"},
		{fiber.MethodDelete, "/api/measurements/1"},
		{fiber.MethodGet, "/api/postures"},
		{fiber.MethodGet, "/bp/api/trend"},
		{fiber.MethodGet, "/bp/api/categories"},
		{fiber.MethodGet, "/api/users"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			resp, raw := s.do(p.method, p.path, "", "")
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.JSONEq(t, `{"message":"unauthorized"}`, raw)

			resp, _ = s.do(p.method, p.path, "not-a-token", "")
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	resp, raw := s.do(fiber.MethodGet, "/api/users", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, raw, `"login":"alice"`)
	assert.NotContains(t, raw, "password")

	resp, _ = s.do(fiber.MethodPost, "/api/users/register", "", `{"login":"alice","password":"Password123"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, raw = s.do(fiber.MethodPost, "/api/users/register", "", `{"login":"bob","password":"short"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, raw, `"password":"must be at least 8 characters"`)

	resp, _ = s.do(fiber.MethodPost, "/api/users/login", "", `{"login":"alice","password":"wrong-password"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(fiber.MethodPost, "/api/users/logout", token, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderSetCookie), "session=")
}

func TestMeasurementScenario(t *testing.T) {
	s := newTestServer(t)
	token := s.login("u1")

	id := s.create(token, `{"systolic":181,"diastolic":110,"dateOfMeasurement":"2024-01-01"}`)
	assert.Equal(t, 1, id)

	resp, raw := s.do(fiber.MethodGet, "/api/measurements", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	page := decode[PagedResult[MeasurementListItem]](t, raw)
	require.Len(t, page.Items, 1)
	assert.Equal(t, CategoryHypertensiveCrisis, page.Items[0].Category)
	assert.Equal(t, "bg-dark", page.Items[0].CategoryClass)
	assert.Equal(t, int64(1), page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)

	resp, raw = s.do(fiber.MethodGet, "/bp/api/categories", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"Hypertensive Crisis":1}`, raw)
}

func TestMeasurementCrud(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice")
	bob := s.login("bob")

	id := s.create(alice, `{"systolic":132,"diastolic":79,"dateOfMeasurement":"2024-03-05T07:30:00Z","pulse":70,"notes":"after coffee","postureId":2}`)

	resp, raw := s.do(fiber.MethodGet, "/api/measurements/"+itoa(id), alice, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	item := decode[MeasurementListItem](t, raw)
	assert.Equal(t, CategoryStage1, item.Category)
	require.NotNil(t, item.Posture)
	assert.Equal(t, "Standing", *item.Posture)

	resp, _ = s.do(fiber.MethodGet, "/api/measurements/"+itoa(id), bob, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	update := `{"systolic":145,"diastolic":92,"dateOfMeasurement":"2024-03-06"}`
	resp, _ = s.do(fiber.MethodPut, "/api/measurements/"+itoa(id), bob, update)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(fiber.MethodPut, "/api/measurements/"+itoa(id), alice, update)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, raw = s.do(fiber.MethodGet, "/api/measurements/"+itoa(id), alice, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	item = decode[MeasurementListItem](t, raw)
	assert.Equal(t, CategoryStage2, item.Category)
	assert.NotNil(t, item.UpdatedAt)

	resp, _ = s.do(fiber.MethodDelete, "/api/measurements/"+itoa(id), bob, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(fiber.MethodDelete, "/api/measurements/"+itoa(id), alice, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(fiber.MethodDelete, "/api/measurements/"+itoa(id), alice, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(fiber.MethodPut, "/api/measurements/"+itoa(id), alice, update)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(fiber.MethodGet, "/api/measurements/not-a-number", alice, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateMeasurementValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing systolic", `{"diastolic":80,"dateOfMeasurement":"2024-01-01"}`, "systolic"},
		{"systolic too low", `{"systolic":19,"diastolic":80,"dateOfMeasurement":"2024-01-01"}`, "systolic"},
		{"systolic too high", `{"systolic":401,"diastolic":80,"dateOfMeasurement":"2024-01-01"}`, "systolic"},
		{"diastolic too low", `{"systolic":120,"diastolic":9,"dateOfMeasurement":"2024-01-01"}`, "diastolic"},
		{"diastolic too high", `{"systolic":120,"diastolic":301,"dateOfMeasurement":"2024-01-01"}`, "diastolic"},
		{"missing date", `{"systolic":120,"diastolic":80}`, "dateOfMeasurement"},
		{"bad date", `{"systolic":120,"diastolic":80,"dateOfMeasurement":"01/02/2024"}`, "dateOfMeasurement"},
		{"notes too long", `{"systolic":120,"diastolic":80,"dateOfMeasurement":"2024-01-01","notes":"` + strings.Repeat("x", 513) + `"}`, "notes"},
		{"unknown posture", `{"systolic":120,"diastolic":80,"dateOfMeasurement":"2024-01-01","postureId":99}`, "postureId"},
		{"malformed json", `{"systolic":`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := s.do(fiber.MethodPost, "/api/measurements", token, tt.body)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, raw)

			body := decode[struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}](t, raw)
			assert.Equal(t, "validation failed", body.Message)
			assert.Contains(t, body.Errors, tt.field)
		})
	}

	resp, raw := s.do(fiber.MethodGet, "/api/measurements", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[PagedResult[MeasurementListItem]](t, raw).TotalCount)
}

func TestListMeasurementsQuery(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	readings := []string{
		`{"systolic":110,"diastolic":70,"dateOfMeasurement":"2024-01-01T08:00:00Z"}`,
		`{"systolic":125,"diastolic":75,"dateOfMeasurement":"2024-01-02T08:00:00Z"}`,
		`{"systolic":132,"diastolic":82,"dateOfMeasurement":"2024-01-03T08:00:00Z"}`,
		`{"systolic":145,"diastolic":95,"dateOfMeasurement":"2024-01-04T08:00:00Z"}`,
		`{"systolic":185,"diastolic":121,"dateOfMeasurement":"2024-01-05T08:00:00Z"}`,
	}
	for _, body := range readings {
		s.create(token, body)
	}

	tests := []struct {
		name       string
		query      string
		systolics  []int
		totalCount int64
	}{
		{"default newest first", "", []int{185, 145, 132, 125, 110}, 5},
		{"ascending", "?desc=false", []int{110, 125, 132, 145, 185}, 5},
		{"by systolic", "?sortBy=SYSTOLIC&desc=false", []int{110, 125, 132, 145, 185}, 5},
		{"unknown sort falls back to date", "?sortBy=pulse", []int{185, 145, 132, 125, 110}, 5},
		{"date only to covers the day", "?from=2024-01-02&to=2024-01-04", []int{145, 132, 125}, 3},
		{"systolic range", "?minSys=120&maxSys=140", []int{132, 125}, 2},
		{"diastolic range", "?minDia=90", []int{185, 145}, 2},
		{"category", "?category=stage%202", []int{145}, 1},
		{"unknown category", "?category=severe", []int{}, 0},
		{"paged", "?pageSize=2&page=2", []int{132, 125}, 5},
		{"past the end", "?pageSize=2&page=9", []int{}, 5},
		{"largest page", "?page=9223372036854775807", []int{}, 5},
		{"largest page with size", "?pageSize=100&page=9223372036854775807", []int{}, 5},
		{"page size at the limit", "?pageSize=100&desc=false", []int{110, 125, 132, 145, 185}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := s.do(fiber.MethodGet, "/api/measurements"+tt.query, token, "")
			require.Equal(t, fiber.StatusOK, resp.StatusCode, raw)

			page := decode[PagedResult[MeasurementListItem]](t, raw)
			systolics := make([]int, 0, len(page.Items))
			for _, item := range page.Items {
				systolics = append(systolics, item.Systolic)
			}
			assert.Equal(t, tt.systolics, systolics)
			assert.Equal(t, tt.totalCount, page.TotalCount)
		})
	}
}

func TestListMeasurementsRejectsMalformedQuery(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	resp, raw := s.do(fiber.MethodGet, "/api/measurements?minSys=abc&from=tomorrow&desc=maybe&page=x", token, "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, raw)
	assert.Equal(t, "must be an integer", body.Errors["minSys"])
	assert.Contains(t, body.Errors, "from")
	assert.Contains(t, body.Errors, "desc")
	assert.Contains(t, body.Errors, "page")
}

func TestListMeasurementsRejectsOversizedPage(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	resp, raw := s.do(fiber.MethodGet, "/api/measurements?pageSize=500", token, "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, raw)
	assert.Equal(t, "must be at most 100", body.Errors["pageSize"])
}

func TestDashboardEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	s.create(token, `{"systolic":150,"diastolic":95,"dateOfMeasurement":"2024-02-03"}`)
	s.create(token, `{"systolic":110,"diastolic":70,"dateOfMeasurement":"2024-02-01"}`)
	s.create(token, `{"systolic":112,"diastolic":72,"dateOfMeasurement":"2024-02-02"}`)

	resp, raw := s.do(fiber.MethodGet, "/bp/api/trend", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	points := decode[[]TrendPoint](t, raw)
	require.Len(t, points, 3)
	assert.Equal(t, []int{110, 112, 150}, []int{points[0].Systolic, points[1].Systolic, points[2].Systolic})

	resp, raw = s.do(fiber.MethodGet, "/bp/api/categories?from=2024-02-02", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"Normal":1,"Stage 2":1}`, raw)

	resp, _ = s.do(fiber.MethodGet, "/bp/api/trend?to=never", token, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPostures(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	resp, raw := s.do(fiber.MethodGet, "/api/postures", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":3,"name":"Lying"},{"id":1,"name":"Sitting"},{"id":2,"name":"Standing"}]`, raw)
}

func TestExportMeasurements(t *testing.T) {
	s := newTestServer(t)
	token := s.login("alice")

	s.create(token, `{"systolic":120,"diastolic":75,"dateOfMeasurement":"2024-01-01T08:00:00Z","notes":"a, b","postureId":1}`)
	s.create(token, `{"systolic":150,"diastolic":95,"dateOfMeasurement":"2024-01-02T08:00:00Z"}`)

	resp, raw := s.do(fiber.MethodGet, "/api/measurements/export?desc=false", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "measurements.csv")

	lines := strings.Split(strings.TrimSpace(raw), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(exportHeaders, ","), lines[0])
	assert.Contains(t, lines[1], `Elevated,Sitting,"a, b"`)
	assert.Contains(t, lines[2], "Stage 2")
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
