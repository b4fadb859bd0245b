package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deployboard/application/auth"
	"deployboard/application/commands/bus"
	"deployboard/application/commands/handlers"
	"deployboard/application/configs"
	"deployboard/application/ports"
	"deployboard/application/workspace"
	"deployboard/infrastructure/persistence/expiring"
	"deployboard/infrastructure/persistence/kv"
	"deployboard/infrastructure/persistence/localstore"
	"deployboard/interfaces/http/rest/api"
)

type testServer struct {
	handler http.Handler
	ws      *workspace.Workspace
}

func newTestServer(t *testing.T, mount bool) *testServer {
	t.Helper()
	store := localstore.New(expiring.New(kv.NewMemoryStore()), nil)
	ws := workspace.New(workspace.Dependencies{Store: store})
	if mount {
		_, err := ws.Mount(context.Background())
		require.NoError(t, err)
	}

	tokens, err := auth.NewTokens(auth.TokenConfig{Secret: "test-secret", Issuer: "deployboard", TTL: time.Hour})
	require.NoError(t, err)
	svc := auth.NewService(store, ports.Credentials{Username: "admin", Password: "admin"}, tokens, ws.Notices(), nil)
	registry := configs.NewRegistry(ws.Notices(), nil)

	b := bus.NewCommandBus()
	require.NoError(t, handlers.Register(b, ws, registry, svc, nil))

	router := NewRouter(Dependencies{
		Commands:   b,
		Workspace:  ws,
		Sessions:   svc,
		Configs:    registry,
		Authorizer: svc,
		Ready:      ws.Ready,
	})
	return &testServer{handler: router.Setup(), ws: ws}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"username": "admin", "password": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	unmounted := newTestServer(t, false)
	assert.Equal(t, http.StatusOK, unmounted.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, unmounted.do(t, http.MethodGet, "/ready", "", nil).Code)

	mounted := newTestServer(t, true)
	assert.Equal(t, http.StatusOK, mounted.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		name  string
		token string
	}{
		{name: "no token"},
		{name: "garbage token", token: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/api/v1/sections", tt.token, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body api.ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, api.LoginPath, body.Redirect)
		})
	}

	t.Run("token after logout", func(t *testing.T) {
		token := srv.login(t)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/sections", token, nil).Code)
		assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
		assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/sections", token, nil).Code)
	})
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t, true)
	rec := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"username": "admin", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body api.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "BAD_CREDENTIALS", body.Code)

	var session auth.SessionState
	decode(t, srv.do(t, http.MethodGet, "/api/v1/auth/session", "", nil), &session)
	assert.False(t, session.Authenticated)
}

func TestDropFlow(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.login(t)

	var payload struct {
		Payload string `json:"payload"`
	}
	rec := srv.do(t, http.MethodGet, "/api/v1/catalog/database/items/mysql/payload", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &payload)
	require.NotEmpty(t, payload.Payload)

	tests := []struct {
		name       string
		section    string
		payload    string
		wantStatus int
		wantCode   string
	}{
		{name: "accepted", section: "database", payload: payload.Payload, wantStatus: http.StatusCreated},
		{name: "duplicate", section: "database", payload: payload.Payload, wantStatus: http.StatusConflict, wantCode: "DUPLICATE_MODULE"},
		{name: "wrong section", section: "messaging", payload: payload.Payload, wantStatus: http.StatusBadRequest, wantCode: "WRONG_SECTION"},
		{name: "unreadable payload is ignored", section: "database", payload: "{not json", wantStatus: http.StatusOK},
		{name: "unknown section", section: "nowhere", payload: payload.Payload, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/v1/sections/"+tt.section+"/drop", token, map[string]interface{}{
				"payload":  tt.payload,
				"position": map[string]float64{"x": 10, "y": 20},
			})
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				var body api.ErrorResponse
				decode(t, rec, &body)
				assert.Equal(t, tt.wantCode, body.Code)
			}
		})
	}

	var section workspace.SectionView
	decode(t, srv.do(t, http.MethodGet, "/api/v1/sections/database", token, nil), &section)
	require.Len(t, section.Modules, 1)
	assert.Equal(t, "mysql", section.Modules[0].ID)

	var g struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	decode(t, srv.do(t, http.MethodGet, "/api/v1/graph", token, nil), &g)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestSelectionPanel(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.login(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/catalog/database/items/redis/click", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sel SelectionCheck
	decode(t, srv.do(t, http.MethodGet, "/api/v1/selection", token, nil), &sel)
	assert.False(t, sel.Selected, "click-to-place does not select")

	decode(t, srv.do(t, http.MethodPost, "/api/v1/sections/database/modules/redis/select", token, nil), &sel)
	assert.True(t, sel.Selected)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/api/v1/selection", token, nil).Code)
	decode(t, srv.do(t, http.MethodGet, "/api/v1/selection", token, nil), &sel)
	assert.False(t, sel.Selected)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/api/v1/sections/database/modules/redis", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, "/api/v1/sections/database/modules/redis/select", token, nil).Code)
}

// SelectionCheck reads only the flag of a selection response.
type SelectionCheck struct {
	Selected bool `json:"selected"`
}

func TestCatalogToggleAndSearch(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.login(t)

	var toggled struct {
		Expanded bool `json:"expanded"`
	}
	decode(t, srv.do(t, http.MethodPost, "/api/v1/catalog/database/toggle", token, nil), &toggled)
	assert.False(t, toggled.Expanded)
	decode(t, srv.do(t, http.MethodPost, "/api/v1/catalog/database/toggle", token, nil), &toggled)
	assert.True(t, toggled.Expanded)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, "/api/v1/catalog/nope/toggle", token, nil).Code)

	var found struct {
		Categories []struct {
			ID string `json:"id"`
		} `json:"categories"`
	}
	decode(t, srv.do(t, http.MethodGet, "/api/v1/catalog/search?q=MYSQL", token, nil), &found)
	require.Len(t, found.Categories, 1)
	assert.Equal(t, "database", found.Categories[0].ID)
}

func TestCreateConfig(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.login(t)
	srv.ws.DrainNotices()

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantError  string
	}{
		{name: "missing name", body: map[string]string{"version": "1.0", "platform": "v2.0"}, wantStatus: http.StatusBadRequest, wantError: "配置名称不能为空"},
		{name: "bad platform", body: map[string]string{"name": "a", "version": "1.0", "platform": "v9"}, wantStatus: http.StatusBadRequest, wantError: "请选择所属平台版本"},
		{name: "valid", body: map[string]string{"name": "prod", "version": "1.0", "platform": "v3.0"}, wantStatus: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/v1/configs", token, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				var body api.ErrorResponse
				decode(t, rec, &body)
				assert.Equal(t, tt.wantError, body.Error)
			}
		})
	}

	var list struct {
		Configs []configs.Draft `json:"configs"`
	}
	decode(t, srv.do(t, http.MethodGet, "/api/v1/configs", token, nil), &list)
	require.Len(t, list.Configs, 1)
	assert.Equal(t, "prod", list.Configs[0].Name)

	var notices struct {
		Notices []ports.Notice `json:"notices"`
	}
	decode(t, srv.do(t, http.MethodGet, "/api/v1/notifications", token, nil), &notices)
	require.NotEmpty(t, notices.Notices)
	assert.Equal(t, "配置创建成功", notices.Notices[len(notices.Notices)-1].Message)
}
