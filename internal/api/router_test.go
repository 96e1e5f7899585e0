package api_test

import (
	"bytes"
	"complaintdesk/backend/internal/api"
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t       *testing.T
	router  http.Handler
	mem     *storage.Memory
	tokens  *auth.Tokens
	clientA *models.User
	clientB *models.User
	admin   *models.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := storage.NewMemoryStorage()
	tokens := auth.NewTokens("router-test-secret-123", "complaintdesk-test", time.Hour)
	hub := eventhub.NewManagerService(mem)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	h := handler.NewHandler(complaint.NewService(mem), mem, tokens, hub)
	a := &testAPI{t: t, router: api.NewRouter(config.Config{}, h), mem: mem, tokens: tokens}

	a.clientA = a.user("client_a", models.RoleClient)
	a.clientB = a.user("client_b", models.RoleClient)
	a.admin = a.user("admin", models.RoleAdmin)
	return a
}

func (a *testAPI) user(username string, role models.Role) *models.User {
	u := &models.User{Username: username, Role: role}
	require.NoError(a.t, a.mem.SaveUser(context.Background(), u))
	return u
}

func (a *testAPI) token(u *models.User) string {
	tok, err := a.tokens.Generate(u.ID)
	require.NoError(a.t, err)
	return tok
}

func (a *testAPI) do(method, path string, u *models.User, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(u))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) submit(u *models.User, text string) uint {
	w := a.do(http.MethodPost, "/api/complaints", u, map[string]any{"text": text})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Complaint](a.t, w).ID
}

func TestRouter_Health(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Authentication(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/complaints", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost := a.user("ghost", models.RoleClient)
	tok := a.token(ghost)
	require.NoError(t, a.mem.DeleteUser(context.Background(), ghost.ID))
	req = httptest.NewRequest(http.MethodGet, "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SubmitAndHistory(t *testing.T) {
	a := newTestAPI(t)

	id := a.submit(a.clientA, "Parcel arrived damaged")

	w := a.do(http.MethodGet, fmt.Sprintf("/api/complaints/%d/history", id), a.clientA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]map[string]any](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "CREATED", items[0]["action"])
	assert.Nil(t, items[0]["old_status"])
	assert.Equal(t, "NEW", items[0]["new_status"])
	assert.Equal(t, a.clientA.ID, items[0]["user"])
	assert.Equal(t, "CLIENT", items[0]["user_role"])
	assert.EqualValues(t, id, items[0]["complaint"])
}

func TestRouter_SubmitValidation(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/complaints", a.clientA, map[string]any{"text": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Contains(t, body["fields"], "text")

	w = a.do(http.MethodPost, "/api/complaints", a.clientA, "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/complaints", a.clientA, map[string]any{"text": "x", "category": 99})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Isolation(t *testing.T) {
	a := newTestAPI(t)
	id := a.submit(a.clientA, "Private matter")

	w := a.do(http.MethodGet, fmt.Sprintf("/api/complaints/%d/history", id), a.clientB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"not permitted"}`, w.Body.String())

	w = a.do(http.MethodGet, fmt.Sprintf("/api/complaints/%d", id), a.clientB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/complaints", a.clientB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, w)["count"])

	w = a.do(http.MethodGet, "/api/complaints/999/history", a.clientA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodGet, "/api/complaints/abc/history", a.clientA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminWorkflow(t *testing.T) {
	a := newTestAPI(t)
	id := a.submit(a.clientA, "Wrong item shipped")
	statusPath := fmt.Sprintf("/api/admin/complaints/%d/status", id)

	w := a.do(http.MethodPatch, statusPath, a.clientA, map[string]any{"status": "CLOSED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPatch, statusPath, a.admin, map[string]any{"status": "DONE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPatch, statusPath, a.admin, map[string]any{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusInProgress, decode[models.Complaint](t, w).Status)

	w = a.do(http.MethodPut, statusPath, a.admin, map[string]any{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/api/admin/responses", a.admin, map[string]any{"complaint_id": id, "response_text": "Replacement sent"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodPost, "/api/feedback", a.clientA, map[string]any{"complaint_id": id, "comment": "Thanks", "is_accepted": true})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["is_accepted"])

	w = a.do(http.MethodGet, fmt.Sprintf("/api/complaints/%d/history", id), a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]map[string]any](t, w)
	actions := make([]string, 0, len(items))
	for _, it := range items {
		actions = append(actions, it["action"].(string))
	}
	assert.Equal(t, []string{"CREATED", "STATUS_CHANGED", "ADMIN_RESPONSE", "FEEDBACK"}, actions)
	assert.Equal(t, "Replacement sent", items[2]["comment"])
	assert.Equal(t, "ADMIN", items[2]["user_role"])

	w = a.do(http.MethodGet, fmt.Sprintf("/api/complaints/%d", id), a.clientA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[map[string]any](t, w)
	assert.Len(t, detail["responses"], 1)
	assert.Len(t, detail["feedback"], 1)
}

func TestRouter_AdminEndpoints(t *testing.T) {
	a := newTestAPI(t)
	a.submit(a.clientA, "late delivery")
	a.submit(a.clientB, "broken box")

	w := a.do(http.MethodHead, "/api/admin/complaints", a.clientA, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodHead, "/api/admin/complaints", a.admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/api/admin/complaints?search=late", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

	w = a.do(http.MethodGet, "/api/admin/stats", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["total"])

	w = a.do(http.MethodPost, "/api/admin/categories", a.admin, map[string]any{"title": "Delivery"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = a.do(http.MethodPost, "/api/admin/categories", a.clientA, map[string]any{"title": "Hack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/categories", a.clientA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	categories := decode[[]models.Category](t, w)
	require.Len(t, categories, 1)
	assert.Equal(t, "Delivery", categories[0].Title)
}

func TestRouter_Profile(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/profile", a.clientA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[models.User](t, w)
	assert.Equal(t, a.clientA.ID, profile.ID)
	assert.Equal(t, "client_a", profile.Username)
	assert.Equal(t, models.RoleClient, profile.Role)

	w = a.do(http.MethodGet, "/api/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_HugePageIsNotAnError(t *testing.T) {
	a := newTestAPI(t)
	a.submit(a.clientA, "late")

	w := a.do(http.MethodGet, "/api/complaints?page=184467440737095517&page_size=100", a.clientA, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Nil(t, body["next"])
	assert.Empty(t, body["results"])
}

func TestRouter_EventStream(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events?token=" + a.token(a.clientA)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(100 * time.Millisecond)

	a.submit(a.clientB, "not for client A")
	id := a.submit(a.clientA, "mine")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.ComplaintEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, id, event.ComplaintID)
	assert.Equal(t, models.ActionCreated, event.Action)
	assert.Equal(t, a.clientA.ID, event.OwnerID)
}
