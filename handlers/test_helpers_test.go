package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"writ_docket_go/config"
	"writ_docket_go/db"
	"writ_docket_go/services"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

var (
	owner = services.Caller{Email: "clerk@example.com", Role: "USER", Branch: "Ludhiana"}
	admin = services.Caller{Email: "admin@example.com", Role: services.RoleAdmin}
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(testDB))
	return testDB
}

// testServer is the full echo stack over an in-memory database
type testServer struct {
	e         *echo.Echo
	db        *gorm.DB
	api       *API
	audit     *services.DBAuditRecorder
	uploadDir string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	testDB := setupTestDB(t)

	uploadDir := t.TempDir()
	previous := services.Storage
	services.Storage = services.NewLocalStorage(uploadDir)
	t.Cleanup(func() { services.Storage = previous })

	branches, err := services.BranchesFromYAML([]byte("branches:\n  - name: Ludhiana\n    code: LDH\n  - name: Amritsar\n    code: ASR\n"))
	require.NoError(t, err)

	audit := services.NewDBAuditRecorder(testDB)
	t.Cleanup(audit.Wait)
	deps := &services.Deps{
		Locker:   services.NewLocalCaseLocker(),
		Audit:    audit,
		Branches: branches,
	}

	api := NewAPI(testDB, deps, &config.Config{Environment: "test", JWTSecret: testSecret})
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	api.RegisterRoutes(e)

	return &testServer{e: e, db: testDB, api: api, audit: audit, uploadDir: uploadDir}
}

// uploads lists the attachment files held by the test storage
func (s *testServer) uploads(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(s.uploadDir, "proceedings", "*"))
	require.NoError(t, err)
	return matches
}

func tokenFor(t *testing.T, caller services.Caller) string {
	t.Helper()
	token, err := services.IssueAccessToken(testSecret, caller, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request as caller; a zero caller sends no token
func (s *testServer) do(t *testing.T, caller services.Caller, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if caller.Email != "" {
		req.Header.Set("x-access-token", tokenFor(t, caller))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, caller services.Caller, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	return s.do(t, caller, method, path, reader, echo.MIMEApplicationJSON)
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// caseBody is a valid case payload for caseNumber
func caseBody(caseNumber string) string {
	return `{"caseNumber":"` + caseNumber + `","caseDate":"2024-03-01","branchName":"ludhiana",
		"writNumber":"CRWP-77","writType":"BAIL","writSubType":"REGULAR","writYear":2024,
		"underSection":"302","act":"IPC","policeStation":"Division No. 5",
		"investigatingOfficers":[{"name":"Balwinder Kaur","rank":"SI","posting":"PS 5","contact":9876543210}],
		"petitionerName":"Harjit Singh","petitionerFatherName":"Gurdev Singh",
		"petitionerAddress":"Model Town","petitionerPrayer":"Grant bail",
		"respondents":[{"name":"State of Punjab"}]}`
}

// createCase creates a case through the API and returns its id
func (s *testServer) createCase(t *testing.T, caller services.Caller, caseNumber string) string {
	t.Helper()
	rec := s.doJSON(t, caller, http.MethodPost, "/api/v1/cases", caseBody(caseNumber))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[map[string]interface{}](t, rec)
	return created["id"].(string)
}

func argumentBody(caseID string, draft bool) string {
	d := "false"
	if draft {
		d = "true"
	}
	return `{"case":"` + caseID + `","type":"ARGUMENT","draft":` + d + `,
		"hearingDetails":{"dateOfHearing":"2024-05-02","judgeName":"J. Sharma","courtNumber":"12"},
		"argumentDetails":{"argumentBy":"AAG","argumentWith":"Counsel","nextDateOfHearing":"2024-06-01"}}`
}
