package fields

import (
	"crypto/subtle"

	"zabbix_input/internal/request"
)

// SIDField поле запроса с CSRF токеном
const SIDField = "sid"

// TokenVerifier проверяет CSRF токен запроса для полей с FlagAction
type TokenVerifier interface {
	VerifyToken(req *request.Request) bool
}

// SessionToken проверяет, что sid совпадает с символами 16..32
// идентификатора сессии
type SessionToken string

// SID токен, который страница должна передавать в поле sid
func (s SessionToken) SID() string {
	if len(s) < 32 {
		return ""
	}
	return string(s[16:32])
}

// VerifyToken реализует TokenVerifier
func (s SessionToken) VerifyToken(req *request.Request) bool {
	expected := s.SID()
	if expected == "" {
		return false
	}
	v, ok := req.Get(SIDField)
	if !ok || v.IsArray() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.Str()), []byte(expected)) == 1
}
