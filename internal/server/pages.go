package server

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"zabbix_input/internal/fields"
	"zabbix_input/internal/request"
	"zabbix_input/internal/session"
	"zabbix_input/internal/verr"
	"zabbix_input/pkg/zabbix"
)

const loginPage = "index"

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{- if .Messages}}
<ul>
{{- range .Messages}}
<li class="{{.Severity}}">{{.Message}}</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

type errorPageData struct {
	Title    string
	Messages verr.List
}

// pageResponse результат проверки полей страницы
type pageResponse struct {
	Page     string         `json:"page"`
	Valid    bool           `json:"valid"`
	Fields   map[string]any `json:"fields"`
	Messages verr.List      `json:"messages"`
	SID      string         `json:"sid,omitempty"`
}

// htmlAborter отдает страницу фатальной ошибки
type htmlAborter struct {
	w      http.ResponseWriter
	logger *zap.Logger
}

func (a *htmlAborter) Abort(msg string, messages verr.List) {
	a.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	a.w.WriteHeader(http.StatusBadRequest)
	if err := errorPage.Execute(a.w, errorPageData{Title: msg, Messages: messages}); err != nil {
		a.logger.Error("Failed to render error page", zap.Error(err))
	}
}

// requestLanguage язык из Accept-Language или язык сервера
func (s *Server) requestLanguage(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return s.opts.Language
	}
	return tags[0].String()
}

func (s *Server) currentSession(r *http.Request) (session.Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return session.Session{}, false
	}
	return s.deps.Sessions.Get(c.Value)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page := strings.TrimSuffix(r.PathValue("page"), ".php")
	table, ok := s.deps.Pages[page]
	if !ok {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, loggedIn := s.currentSession(r)
	if !loggedIn && page != loginPage {
		s.deps.Counters.Unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "You are not logged in."})
		return
	}

	req := request.FromForm(r.URL.Query(), r.PostForm)
	aborter := &htmlAborter{w: w, logger: s.logger}
	opts := []fields.PassOption{
		fields.WithAborter(aborter),
		fields.WithPassLanguage(s.requestLanguage(r)),
	}
	if loggedIn {
		opts = append(opts, fields.WithTokens(sess.Token()))
	}

	res := s.deps.Checker.CheckFields(req, table, opts...)
	s.deps.Counters.PagesChecked.Add(1)
	switch {
	case res.Fatal():
		s.deps.Counters.PageErrors.Add(1)
	case !res.Valid():
		s.deps.Counters.PageWarnings.Add(1)
	}

	s.logger.Debug("Page request checked",
		zap.String("page", page),
		zap.Stringer("outcome", res.Outcome),
		zap.Int("messages", len(res.Messages)))

	if res.Aborted {
		return
	}

	resp := pageResponse{
		Page:     page,
		Valid:    res.Valid(),
		Fields:   req.Map(),
		Messages: res.Messages,
	}
	if resp.Messages == nil {
		resp.Messages = verr.List{}
	}
	if page == loginPage {
		delete(resp.Fields, "password")
	}
	if loggedIn {
		resp.SID = sess.Token().SID()
	}

	if !res.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	if page == loginPage && req.Has("enter") {
		s.login(w, req, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// login открывает сессию по проверенным полям name и password
func (s *Server) login(w http.ResponseWriter, req *request.Request, resp pageResponse) {
	name, _ := req.Get("name")
	password, _ := req.Get("password")

	sess, err := s.deps.Service.Authenticate(name.Str(), password.Str())
	if err != nil {
		msg := err.Error()
		var rpcErr *zabbix.JSONRPCError
		if errors.As(err, &rpcErr) {
			msg = rpcErr.Data
		}
		s.deps.Counters.Unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	resp.SID = sess.Token().SID()
	writeJSON(w, http.StatusOK, resp)
}
