package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/cryptox"
	"github.com/dmitrijs2005/gophbook/internal/jsonstore"
	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
	"github.com/dmitrijs2005/gophbook/internal/server/records"
	"github.com/dmitrijs2005/gophbook/internal/server/session"
	"github.com/dmitrijs2005/gophbook/internal/server/users"
)

var testParams = cryptox.Params{Time: 1, MemoryKiB: 64, Parallelism: 1, KeyLen: 16, SaltLen: 8}

type response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	server *Server
	token  string
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	dir := t.TempDir()

	us := users.NewService(jsonstore.New[models.User](filepath.Join(dir, "users.json")), testParams, nil)
	rs := records.NewService(jsonstore.New[models.Record](filepath.Join(dir, "data.json")), nil)
	sm := session.NewManager("test-secret", time.Hour)

	if opts.AuthRateLimit == 0 {
		opts.AuthRateLimit = 1000
		opts.AuthRateBurst = 1000
	}
	return &testServer{t: t, server: NewServer(":0", logging.Discard(), us, rs, sm, opts)}
}

// call posts body as JSON to /api?action=name, carrying the current token.
func (ts *testServer) call(name string, body any) (*httptest.ResponseRecorder, response) {
	ts.t.Helper()

	target := "/api"
	if name != "" {
		target += "?action=" + name
	}

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(http.MethodGet, target, nil)
	} else {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		req = httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(b)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if ts.token != "" {
		req.Header.Set(common.SessionHeaderName, ts.token)
	}

	return ts.do(req)
}

func (ts *testServer) do(req *http.Request) (*httptest.ResponseRecorder, response) {
	ts.t.Helper()

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	var resp response
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (ts *testServer) register(name, email, password string) {
	ts.t.Helper()
	rec, resp := ts.call("register", map[string]string{"nombre": name, "email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, rec.Code, resp.Error)
	ts.token = rec.Header().Get(common.SessionHeaderName)
	require.NotEmpty(ts.t, ts.token)
}

func decodeRecords(t *testing.T, raw json.RawMessage) []models.Record {
	t.Helper()
	var out []models.Record
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec, resp := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))
}

func TestServer_RegisterSetsSession(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec, resp := ts.call("register", map[string]string{"nombre": "Ana", "email": "ANA@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"nombre":"Ana","email":"ana@x.com"}`, string(resp.Data))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, common.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(common.SessionHeaderName))

	// the cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api?action=auth", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: cookies[0].Value})
	rec, resp = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nombre":"Ana","email":"ana@x.com"}`, string(resp.Data))

	// and so does a bearer header
	req = httptest.NewRequest(http.MethodGet, "/api?action=auth", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+cookies[0].Value)
	rec, _ = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ProtectedActionsNeedSession(t *testing.T) {
	ts := newTestServer(t, Options{})

	for _, name := range []string{"auth", "list", "create", "update", "delete", ""} {
		t.Run("action="+name, func(t *testing.T) {
			rec, resp := ts.call(name, map[string]any{"nombre": "A", "email": "a@x.com", "index": 0})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, resp.OK)
			assert.Equal(t, "unauthorized", resp.Error)
		})
	}

	ts.token = "forged.token.value"
	rec, _ := ts.call("list", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RecordScenario(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.register("Ana", "ana@x.com", "pw")

	// missing action lists
	rec, resp := ts.call("", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	_, resp = ts.call("create", map[string]string{"nombre": "Ana", "email": "ana@x.com"})
	require.True(t, resp.OK, resp.Error)
	_, resp = ts.call("create", map[string]string{"nombre": "Bea", "email": "bea@x.com"})
	require.True(t, resp.OK, resp.Error)
	list := decodeRecords(t, resp.Data)
	require.Len(t, list, 2)
	beaID := list[1].ID

	_, resp = ts.call("delete", map[string]any{"index": 0})
	require.True(t, resp.OK, resp.Error)
	list = decodeRecords(t, resp.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "Bea", list[0].Name)

	_, resp = ts.call("update", map[string]any{"index": "0", "nombre": "Bea L.", "email": "beal@x.com"})
	require.True(t, resp.OK, resp.Error)
	list = decodeRecords(t, resp.Data)
	assert.Equal(t, []models.Record{{ID: beaID, Name: "Bea L.", Email: "beal@x.com"}}, list)

	_, resp = ts.call("create", map[string]string{"nombre": "Ana", "email": "ANA@X.COM"})
	require.True(t, resp.OK, resp.Error)

	_, resp = ts.call("delete", map[string]any{"id": beaID})
	require.True(t, resp.OK, resp.Error)
	list = decodeRecords(t, resp.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "ana@x.com", list[0].Email)

	_, resp = ts.call("list", nil)
	assert.Equal(t, list, decodeRecords(t, resp.Data))
}

func TestServer_ErrorStatuses(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.register("Ana", "ana@x.com", "pw")

	_, resp := ts.call("create", map[string]string{"nombre": "Ana", "email": "ana@x.com"})
	require.True(t, resp.OK)

	tests := []struct {
		name   string
		action string
		body   any
		status int
	}{
		{"create missing fields", "create", map[string]string{"nombre": "A"}, http.StatusUnprocessableEntity},
		{"create duplicate", "create", map[string]string{"nombre": "B", "email": "Ana@X.com"}, http.StatusConflict},
		{"update missing index", "update", map[string]string{"nombre": "B", "email": "b@x.com"}, http.StatusNotFound},
		{"update out of range before validation", "update", map[string]any{"index": 5}, http.StatusNotFound},
		{"update invalid", "update", map[string]any{"index": 0, "nombre": "", "email": "b@x.com"}, http.StatusUnprocessableEntity},
		{"delete unknown id", "delete", map[string]any{"id": "nope"}, http.StatusNotFound},
		{"delete bad index", "delete", map[string]any{"index": "first"}, http.StatusBadRequest},
		{"unsupported", "frobnicate", map[string]string{}, http.StatusBadRequest},
		{"register duplicate", "register", map[string]string{"nombre": "X", "email": "ANA@x.com", "password": "p"}, http.StatusConflict},
		{"register empty", "register", map[string]string{"nombre": "X"}, http.StatusUnprocessableEntity},
		{"login empty", "login", map[string]string{"email": "ana@x.com"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := ts.call(tt.action, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.OK)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_LoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.register("Ana", "ana@x.com", "pw")
	ts.token = ""

	recWrong, respWrong := ts.call("login", map[string]string{"email": "ana@x.com", "password": "nope"})
	recUnknown, respUnknown := ts.call("login", map[string]string{"email": "bea@x.com", "password": "pw"})

	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
	assert.Equal(t, recWrong.Code, recUnknown.Code)
	assert.Equal(t, respWrong, respUnknown)
	assert.Empty(t, recWrong.Result().Cookies())

	rec, resp := ts.call("login", map[string]string{"email": " ANA@x.com", "password": "pw"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nombre":"Ana","email":"ana@x.com"}`, string(resp.Data))
}

func TestServer_LogoutRevokes(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.register("Ana", "ana@x.com", "pw")

	rec, resp := ts.call("logout", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	rec, _ = ts.call("auth", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// logout without a session still succeeds
	ts.token = ""
	rec, _ = ts.call("logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_FormBody(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.register("Ana", "ana@x.com", "pw")

	form := url.Values{"action": {"create"}, "nombre": {"Bea"}, "email": {"bea@x.com"}}
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(common.SessionHeaderName, ts.token)

	rec, resp := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	list := decodeRecords(t, resp.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "Bea", list[0].Name)
	assert.Equal(t, "bea@x.com", list[0].Email)

	form = url.Values{"action": {"delete"}, "index": {"0"}}
	req = httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(common.SessionHeaderName, ts.token)

	rec, resp = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestServer_MalformedBody(t *testing.T) {
	ts := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api?action=register", strings.NewReader(`{"nombre": `))
	rec, resp := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.OK)
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec, resp := ts.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.OK)

	rec, _ = ts.do(httptest.NewRequest(http.MethodDelete, "/api", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_AuthRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{AuthRateLimit: 0.001, AuthRateBurst: 2})

	body := map[string]string{"email": "ana@x.com", "password": "pw"}
	for i := 0; i < 2; i++ {
		rec, _ := ts.call("login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, resp := ts.call("login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", resp.Error)

	// other actions are not limited
	rec, _ = ts.call("auth", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubRecords struct {
	err   error
	panic bool
}

func (s stubRecords) List(context.Context) ([]models.Record, error) {
	if s.panic {
		panic("boom")
	}
	return nil, s.err
}

func (s stubRecords) Create(context.Context, string, string) ([]models.Record, error) {
	return nil, s.err
}

func (s stubRecords) Update(context.Context, records.Locator, string, string) ([]models.Record, error) {
	return nil, s.err
}

func (s stubRecords) Delete(context.Context, records.Locator) ([]models.Record, error) {
	return nil, s.err
}

func TestServer_InfrastructureErrors(t *testing.T) {
	tests := []struct {
		name   string
		stub   stubRecords
		status int
		msg    string
	}{
		{"busy", stubRecords{err: common.ErrorBusy}, http.StatusServiceUnavailable, "storage busy, retry later"},
		{"io", stubRecords{err: errors.New("disk on fire: /secret/path")}, http.StatusInternalServerError, "internal error"},
		{"panic", stubRecords{panic: true}, http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Options{})
			ts.register("Ana", "ana@x.com", "pw")
			ts.server.records = tt.stub

			rec, resp := ts.call("list", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.OK)
			assert.Equal(t, tt.msg, resp.Error)
		})
	}
}

func TestServer_Run(t *testing.T) {
	ts := newTestServer(t, Options{ShutdownTimeout: time.Second})
	ts.server.address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.server.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ts.server.echo.ListenerAddr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + ts.server.echo.ListenerAddr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
