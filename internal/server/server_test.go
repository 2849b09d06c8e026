package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zabbix_input/internal/api"
	"zabbix_input/internal/apivalidator"
	"zabbix_input/internal/fields"
	"zabbix_input/internal/session"
	"zabbix_input/internal/stats"
	"zabbix_input/pkg/zabbix"
)

type testEnv struct {
	srv      *Server
	counters *stats.Counters
	sessions *session.Store
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	pages, err := fields.DefaultPages()
	require.NoError(t, err)

	sessions := session.NewStore(time.Hour, logger)
	counters := &stats.Counters{}
	svc := api.NewService(sessions, logger)

	if opts.Language == "" {
		opts.Language = "en_GB"
	}
	srv := New(opts, Deps{
		Checker:    fields.NewChecker(logger),
		Pages:      pages,
		Sessions:   sessions,
		Service:    svc,
		Dispatcher: api.NewDispatcher(svc, sessions, apivalidator.New(logger), counters, logger),
		Counters:   counters,
	}, logger)

	return &testEnv{srv: srv, counters: counters, sessions: sessions}
}

func (e *testEnv) post(path string, form url.Values, cookie *http.Cookie, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rec := e.post("/index.php", url.Values{"name": {"Admin"}, "password": {"zabbix"}, "enter": {"Sign in"}}, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp pageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.SID, 16)
	assert.NotContains(t, resp.Fields, "password")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	return cookies[0], resp.SID
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pageResponse {
	t.Helper()
	var resp pageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.login(t)
	assert.Equal(t, 1, env.sessions.Len())

	rec := env.post("/index.php", url.Values{"name": {"Admin"}, "password": {"nope"}, "enter": {"1"}}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login name or password is incorrect.")

	rec = env.post("/index.php", url.Values{"enter": {"1"}}, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodePage(t, rec)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, `Field "Username" is mandatory.`, resp.Messages[0].Message)
}

func TestLoginPageHidesPassword(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.post("/index.php", url.Values{"name": {""}, "password": {"s3cret"}, "enter": {"1"}}, nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cret")

	resp := decodePage(t, rec)
	assert.NotContains(t, resp.Fields, "password")
	assert.Contains(t, resp.Fields, "name")
}

func TestPagePostOverridesQuery(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie, _ := env.login(t)

	rec := env.post("/hosts.php?host=fromquery&status=1", url.Values{"host": {"frompost"}}, cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodePage(t, rec)
	assert.Equal(t, "frompost", resp.Fields["host"])
	assert.Equal(t, "1", resp.Fields["status"], "query-only fields are kept")
}

func TestPageRequiresSession(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.post("/hosts.php", url.Values{"host": {"web01"}}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, uint64(1), env.counters.Unauthorized.Load())

	rec = env.post("/nosuchpage.php", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageValid(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie, sid := env.login(t)

	form := url.Values{
		"host":     {"  web01 "},
		"port":     {"10050"},
		"save":     {"1"},
		"sid":      {sid},
		"groups[]": {"4", "5"},
		"junk":     {"x"},
	}
	rec := env.post("/hosts.php", form, cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodePage(t, rec)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Messages)
	assert.Equal(t, "web01", resp.Fields["host"])
	assert.Equal(t, map[string]any{"0": "4", "1": "5"}, resp.Fields["groups"])
	assert.NotContains(t, resp.Fields, "junk")
	assert.Equal(t, sid, resp.SID)
}

func TestPageWarning(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie, sid := env.login(t)

	rec := env.post("/hosts.php", url.Values{"port": {"70000"}, "save": {"1"}, "sid": {sid}}, cookie, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodePage(t, rec)
	assert.False(t, resp.Valid)
	assert.NotContains(t, resp.Fields, "save")
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, `Field "Host name" is mandatory.`, resp.Messages[0].Message)
	assert.Equal(t, `Incorrect value "70000" for "Port" field: must be between 0 and 65535.`, resp.Messages[1].Message)
	assert.Equal(t, uint64(1), env.counters.PageWarnings.Load())

	rec = env.post("/hosts.php", url.Values{"save": {"1"}, "sid": {sid}}, cookie, map[string]string{"Accept-Language": "ru-RU,ru;q=0.9"})
	resp = decodePage(t, rec)
	require.NotEmpty(t, resp.Messages)
	assert.Equal(t, `Поле "Host name" обязательно.`, resp.Messages[0].Message)
}

func TestPageAbort(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie, _ := env.login(t)

	rec := env.post("/hosts.php", url.Values{"host": {"web01"}, "port": {"1"}, "save": {"1"}}, cookie, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Zabbix has received an incorrect request.")
	assert.Contains(t, body, "Operation cannot be performed due to unauthorized request.")
	assert.Equal(t, uint64(1), env.counters.PageErrors.Load())

	rec = env.post("/hosts.php", url.Values{"sortorder": {"<script>"}}, cookie, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestAPIEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})

	call := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api_jsonrpc.php", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json-rpc")
		rec := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := call(`{"jsonrpc":"2.0","method":"apiinfo.version","params":{},"id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp zabbix.JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `"`+api.Version+`"`, string(resp.Result))

	rec = call(`{"jsonrpc":"2.0",`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, zabbix.CodeParseError, resp.Error.Code)

	rec = call(`[{"jsonrpc":"2.0","method":"apiinfo.version","id":1},{"jsonrpc":"2.0","method":"hostgroup.get","id":2}]`)
	var batch []zabbix.JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch, 2)
	assert.Nil(t, batch[0].Error)
	require.NotNil(t, batch[1].Error)
	assert.Equal(t, "Not authorised.", batch[1].Error.Data)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	status := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(status, req)
	var snap statusResponse
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &snap))
	assert.Equal(t, uint64(3), snap.APICalls)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimit: 1, RateBurst: 2})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.srv.now = func() time.Time { return now }

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, env.post("/hosts.php", nil, nil, nil).Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
	assert.Equal(t, uint64(1), env.counters.RateLimited.Load())

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusUnauthorized, env.post("/hosts.php", nil, nil, nil).Code)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, env.srv.limiter.cleanup(now))
}
