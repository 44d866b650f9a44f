package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/dukex/gradflow/pkg/directory"
	"github.com/dukex/gradflow/pkg/mocks"
	"github.com/dukex/gradflow/pkg/persistence/file"
	"github.com/dukex/gradflow/pkg/rules"
	"github.com/dukex/gradflow/pkg/web"
	"github.com/dukex/gradflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	adminID        = 1
	studentID      = 10
	otherStudentID = 11
	teacherID      = 20
)

const endpoint = "/api/wf_graduatedesign"

func testDirectory(t *testing.T) directory.Directory {
	t.Helper()

	dir, err := directory.NewStatic([]directory.Entry{
		{ID: adminID, Username: "admin", RealName: "Administrator", UserType: 1000},
		{ID: studentID, Username: "lilei", RealName: "Li Lei", UserType: 2000},
		{ID: otherStudentID, Username: "hanmeimei", RealName: "Han Meimei", UserType: 2000},
		{ID: teacherID, Username: "wang", RealName: "Prof. Wang", UserType: 3000},
	})
	require.NoError(t, err)

	return dir
}

func setupTestApp(t *testing.T, dir directory.Directory) *fiber.App {
	t.Helper()

	table, err := rules.Default()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := workflow.NewEngine(table, file.NewPersistence(t.TempDir()), workflow.WithLogger(logger))
	handlers := web.NewAPIHandlers(engine, validator.New(validator.WithRequiredStructEnabled()), logger)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api", web.Identity(dir, "X-User-ID", logger))
	api.Get("/wf_graduatedesign", handlers.GraduateDesign)
	api.Post("/wf_graduatedesign", handlers.GraduateDesign)
	api.Get("/wf_graduatedesign/rules", handlers.Rules)

	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request, userID int64) (int, map[string]any) {
	t.Helper()

	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), string(body))

	return resp.StatusCode, decoded
}

func post(t *testing.T, app *fiber.App, userID int64, payload any) (int, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return do(t, app, req, userID)
}

func get(t *testing.T, app *fiber.App, userID int64, query url.Values) (int, map[string]any) {
	t.Helper()

	return do(t, app, httptest.NewRequest(http.MethodGet, endpoint+"?"+query.Encode(), nil), userID)
}

func createTopic(t *testing.T, app *fiber.App, userID int64, title string) int64 {
	t.Helper()

	status, body := post(t, app, userID, map[string]any{
		"action": "stepaction",
		"key":    "create_topic",
		"wf_id":  -1,
		"submitdata": []map[string]any{
			{"name": "Graduate Design Title", "value": title},
			{"name": "Topic Description", "value": "A study of low power sensor networks."},
		},
	})
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 0, body["ret"], 0, body["msg"])

	return int64(body["wf_id"].(float64))
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a number", "lilei"},
		{"negative id", "-3"},
		{"unknown user", "999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, endpoint+"?action=listbypage", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}

			status, body := do(t, app, req, 0)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "unauthenticated", body["type"])
		})
	}
}

func TestIdentity_DirectoryFailure(t *testing.T) {
	t.Parallel()

	dir := &mocks.MockDirectory{}
	dir.On("UserByID", mock.Anything, int64(studentID)).Return(nil, errors.New("redis: connection refused"))

	app := setupTestApp(t, dir)

	status, body := get(t, app, studentID, url.Values{"action": {"listbypage"}})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", body["type"])
	dir.AssertExpectations(t)
}

func TestGraduateDesign_TransportErrors(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	status, body := get(t, app, studentID, url.Values{"action": {"deleteall"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "unknown_action", body["type"])

	status, body = get(t, app, studentID, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "unknown_action", body["type"])

	req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(`{"action": "listbypage"`))
	req.Header.Set("Content-Type", "application/json")
	status, body = do(t, app, req, studentID)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body["type"])

	status, body = get(t, app, studentID, url.Values{"action": {"getone"}})
	assert.Equal(t, http.StatusBadRequest, status, "wf_id is required")
	assert.Equal(t, "validation_error", body["type"])

	status, _ = get(t, app, studentID, url.Values{"action": {"getone"}, "wf_id": {"abc"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, app, studentID, url.Values{"action": {"listbypage"}, "pagesize": {"-5"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = post(t, app, studentID, map[string]any{"action": "stepaction", "wf_id": -1})
	assert.Equal(t, http.StatusBadRequest, status, "key is required")

	status, _ = post(t, app, studentID, map[string]any{"action": "stepaction", "key": "create_topic", "submitdata": "title"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = post(t, app, studentID, map[string]any{
		"action": "stepaction", "key": "create_topic",
		"submitdata": []map[string]any{{"value": "nameless"}},
	})
	assert.Equal(t, http.StatusBadRequest, status, "submitted fields need a name")

	status, _ = get(t, app, studentID, url.Values{"action": {"getstepactiondata"}, "step_id": {"0"}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGraduateDesign_Scenario(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	id := createTopic(t, app, studentID, "Sensor Network Topic")
	assert.Equal(t, int64(1), id)

	status, body := post(t, app, teacherID, map[string]any{
		"action":     "stepaction",
		"key":        "reject_topic",
		"wf_id":      id,
		"submitdata": []map[string]any{{"name": "Rejection Reason", "value": "Too broad"}},
	})
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 0, body["ret"], 0)

	status, body = get(t, app, studentID, url.Values{
		"action":         {"getone"},
		"wf_id":          {strconv.FormatInt(id, 10)},
		"withwhatcanido": {"TRUE"},
	})
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 0, body["ret"], 0)

	rec := body["rec"].(map[string]any)
	assert.Equal(t, "Sensor Network Topic", rec["title"])
	assert.Equal(t, "Topic Rejected", rec["currentstate"])
	assert.Equal(t, "Li Lei", rec["creatorname"])
	assert.NotEmpty(t, rec["createdate"])

	steps := rec["steps"].([]any)
	require.Len(t, steps, 2)
	assert.Equal(t, "Create Topic", steps[0].(map[string]any)["actionname"])
	assert.Equal(t, "Prof. Wang", steps[1].(map[string]any)["operator__realname"])
	assert.Equal(t, "Topic Rejected", steps[1].(map[string]any)["nextstate"])

	whatICanDo := body["whaticando"].([]any)
	require.Len(t, whatICanDo, 1)

	modify := whatICanDo[0].(map[string]any)
	assert.Equal(t, "modify_topic", modify["key"])
	assert.Equal(t, "Sensor Network Topic", modify["submitdata"].([]any)[0].(map[string]any)["value"])

	status, body = post(t, app, studentID, map[string]any{
		"action": "stepaction",
		"key":    "modify_topic",
		"wf_id":  strconv.FormatInt(id, 10),
		"submitdata": []map[string]any{
			{"name": "Graduate Design Title", "value": "Focused Sensor Topic"},
			{"name": "Topic Description", "value": "A narrower study of low power sensor networks."},
		},
	})
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 0, body["ret"], 0, body["msg"])

	status, body = post(t, app, teacherID, map[string]any{"action": "getone", "wf_id": id, "withwhatcanido": false})
	require.Equal(t, http.StatusOK, status)

	rec = body["rec"].(map[string]any)
	assert.Equal(t, "Focused Sensor Topic", rec["title"])
	assert.Equal(t, "Topic Created", rec["currentstate"])
	assert.NotContains(t, body, "whaticando")

	stepID := int64(rec["steps"].([]any)[2].(map[string]any)["id"].(float64))

	status, body = get(t, app, teacherID, url.Values{"action": {"getstepactiondata"}, "step_id": {strconv.FormatInt(stepID, 10)}})
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 0, body["ret"], 0)
	assert.Equal(t, []any{
		map[string]any{"name": "Graduate Design Title", "value": "Focused Sensor Topic"},
		map[string]any{"name": "Topic Description", "value": "A narrower study of low power sensor networks."},
	}, body["data"])
}

func TestGraduateDesign_NewRecordPlaceholder(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	status, body := get(t, app, studentID, url.Values{"action": {"getone"}, "wf_id": {"-1"}, "withwhatcanido": {"true"}})
	require.Equal(t, http.StatusOK, status)

	rec := body["rec"].(map[string]any)
	assert.InDelta(t, -1, rec["id"], 0)
	assert.Equal(t, "Start", rec["currentstate"])
	assert.Empty(t, rec["createdate"])
	assert.Empty(t, rec["steps"])

	whatICanDo := body["whaticando"].([]any)
	require.Len(t, whatICanDo, 1)
	assert.Equal(t, "create_topic", whatICanDo[0].(map[string]any)["key"])

	_, body = get(t, app, teacherID, url.Values{"action": {"getone"}, "wf_id": {"-1"}, "withwhatcanido": {"true"}})
	assert.Equal(t, []any{}, body["whaticando"], "teachers cannot create topics")
}

func TestGraduateDesign_NonPositiveIDIsPlaceholder(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	for _, id := range []string{"0", "-7"} {
		status, body := get(t, app, studentID, url.Values{"action": {"getone"}, "wf_id": {id}})
		require.Equal(t, http.StatusOK, status)
		assert.InDelta(t, 0, body["ret"], 0, id)

		rec := body["rec"].(map[string]any)
		assert.InDelta(t, -1, rec["id"], 0, id)
		assert.Equal(t, "Start", rec["currentstate"], id)
	}
}

func TestGraduateDesign_Envelope(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))
	id := createTopic(t, app, studentID, "Sensor Network Topic")

	tests := []struct {
		name    string
		userID  int64
		payload map[string]any
		ret     float64
		msg     string
	}{
		{
			name:    "missing record",
			userID:  teacherID,
			payload: map[string]any{"action": "stepaction", "key": "approve_topic", "wf_id": 999},
			ret:     1,
			msg:     "workflow record does not exist",
		},
		{
			name:    "missing record on getone",
			userID:  studentID,
			payload: map[string]any{"action": "getone", "wf_id": 999},
			ret:     1,
		},
		{
			name:    "missing step",
			userID:  studentID,
			payload: map[string]any{"action": "getstepactiondata", "step_id": 999},
			ret:     1,
		},
		{
			name:    "undeclared key",
			userID:  teacherID,
			payload: map[string]any{"action": "stepaction", "key": "score_design", "wf_id": id},
			ret:     2,
			msg:     "is not supported",
		},
		{
			name:    "creator cannot approve",
			userID:  studentID,
			payload: map[string]any{"action": "stepaction", "key": "approve_topic", "wf_id": id},
			ret:     2,
			msg:     "permission",
		},
		{
			name:    "teacher cannot create",
			userID:  teacherID,
			payload: map[string]any{"action": "stepaction", "key": "create_topic", "wf_id": -1},
			ret:     2,
			msg:     "permission",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, app, tt.userID, tt.payload)
			assert.Equal(t, http.StatusOK, status)
			assert.InDelta(t, tt.ret, body["ret"], 0)
			assert.NotEmpty(t, body["msg"])

			if tt.msg != "" {
				assert.Contains(t, body["msg"], tt.msg)
			}
		})
	}
}

func TestGraduateDesign_ValidationFailure(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	status, body := post(t, app, studentID, map[string]any{
		"action": "stepaction",
		"key":    "create_topic",
		"wf_id":  -1,
		"submitdata": []map[string]any{
			{"name": "Graduate Design Title", "value": strings.Repeat("a", 51)},
		},
	})
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 2, body["ret"], 0)

	fields := body["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "Graduate Design Title", fields[0].(map[string]any)["field"])

	_, body = get(t, app, studentID, url.Values{"action": {"listbypage"}})
	assert.InDelta(t, 0, body["total"], 0, "rejected actions write nothing")
}

func TestGraduateDesign_ListByPage(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	createTopic(t, app, studentID, "Sensor Network Topic")
	createTopic(t, app, otherStudentID, "Compiler Topic")
	createTopic(t, app, studentID, "Network Security Topic")

	_, body := get(t, app, studentID, url.Values{"action": {"listbypage"}})
	assert.InDelta(t, 2, body["total"], 0, "students see their own records")

	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "Network Security Topic", items[0].(map[string]any)["title"])
	assert.Equal(t, "Li Lei", items[0].(map[string]any)["creator_realname"])
	assert.InDelta(t, studentID, items[0].(map[string]any)["creator"], 0)

	_, body = post(t, app, adminID, map[string]any{"action": "listbypage", "pagenum": 1, "pagesize": 2})
	assert.InDelta(t, 3, body["total"], 0)
	assert.Len(t, body["items"], 2)

	_, body = post(t, app, adminID, map[string]any{"action": "listbypage", "pagenum": "2", "pagesize": "2"})
	assert.Len(t, body["items"], 1)

	_, body = get(t, app, teacherID, url.Values{"action": {"listbypage"}, "pagenum": {"9"}})
	assert.InDelta(t, 0, body["ret"], 0)
	assert.Equal(t, []any{}, body["items"])
	assert.InDelta(t, 3, body["total"], 0)

	_, body = get(t, app, teacherID, url.Values{"action": {"listbypage"}, "keywords": {"network li"}})
	assert.InDelta(t, 2, body["total"], 0)
	assert.Equal(t, "network li", body["keywords"])
}

func TestRulesAndHealth(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, testDirectory(t))

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, endpoint+"/rules", nil), teacherID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Start", body["initial"])
	assert.Len(t, body["states"], 6)

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), 0)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}
