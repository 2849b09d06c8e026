// Package verr общий формат ошибок проверки входных данных. Проверка полей
// страницы собирает все ошибки, проверка параметров API останавливается на
// первой; обе возвращают List.
package verr

import "strings"

// Severity серьезность нарушения
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// FieldError нарушение, привязанное к полю или пути в дереве параметров
type FieldError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"-"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// List набор нарушений, реализует error
type List []*FieldError

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// First первое нарушение или nil
func (l List) First() *FieldError {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Err возвращает nil для пустого списка
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// HasErrors есть ли нарушения с SeverityError
func (l List) HasErrors() bool {
	for _, e := range l {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// New возвращает список из одного фатального нарушения
func New(field, message string) List {
	return List{{Field: field, Message: message, Severity: SeverityError}}
}
