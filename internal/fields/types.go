// Package fields проверяет поля HTTP запроса по декларативной таблице
// правил: тип, обязательность, флаги, ограничение и условие-исключение.
package fields

import (
	"fmt"
	"strings"

	"zabbix_input/internal/expr"
)

// Type тип значения поля
type Type int

const (
	TypeStr Type = iota
	TypeInt
	TypeDbl
	TypeDblBig
	TypeDblStr
	TypeIP
	TypeIPRange
	TypeIntRange
	TypeColor
	TypePortList
)

var typeNames = map[Type]string{
	TypeStr:      "str",
	TypeInt:      "int",
	TypeDbl:      "dbl",
	TypeDblBig:   "dbl_big",
	TypeDblStr:   "dbl_str",
	TypeIP:       "ip",
	TypeIPRange:  "ip_range",
	TypeIntRange: "int_range",
	TypeColor:    "clr",
	TypePortList: "port_list",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType разбирает имя типа из файла правил
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.ToUpper(s), "T_ZBX_"))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// Optionality обязательность поля
type Optionality int

const (
	Mandatory Optionality = iota
	Optional
	Forbidden
)

func (o Optionality) String() string {
	switch o {
	case Mandatory:
		return "mandatory"
	case Optional:
		return "optional"
	case Forbidden:
		return "forbidden"
	}
	return fmt.Sprintf("optionality(%d)", int(o))
}

// Flip переход при выполненном исключении:
// обязательное становится запрещенным, необязательное и запрещенное обязательными
func (o Optionality) Flip() Optionality {
	switch o {
	case Mandatory:
		return Forbidden
	case Optional, Forbidden:
		return Mandatory
	}
	return o
}

// ParseOptionality разбирает O_MAND / O_OPT / O_NO
func ParseOptionality(s string) (Optionality, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.ToUpper(s), "O_")) {
	case "mand", "mandatory":
		return Mandatory, nil
	case "opt", "optional":
		return Optional, nil
	case "no", "forbidden":
		return Forbidden, nil
	}
	return 0, fmt.Errorf("unknown optionality %q", s)
}

// Flag флаги поля
type Flag uint

const (
	// FlagSystem любая ошибка поля фатальна для запроса
	FlagSystem Flag = 1 << iota
	// FlagUnsetEmpty пустая строка удаляется до проверки
	FlagUnsetEmpty
	// FlagAction поле изменяет состояние и требует CSRF токен
	FlagAction
	// FlagNonZero поле со значением 0 удаляется после проверки
	FlagNonZero
	// FlagNoTrim значение не обрезается
	FlagNoTrim
)

var flagNames = map[string]Flag{
	"sys":         FlagSystem,
	"unset_empty": FlagUnsetEmpty,
	"act":         FlagAction,
	"nzero":       FlagNonZero,
	"no_trim":     FlagNoTrim,
}

// Has проверяет установленный флаг
func (f Flag) Has(flag Flag) bool {
	return f&flag != 0
}

// ParseFlags разбирает "P_SYS|P_ACT"
func ParseFlags(s string) (Flag, error) {
	var f Flag
	for _, part := range strings.Split(s, "|") {
		part = strings.ToLower(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(part)), "P_"))
		if part == "" || part == "null" {
			continue
		}
		flag, ok := flagNames[part]
		if !ok {
			return 0, fmt.Errorf("unknown field flag %q", part)
		}
		f |= flag
	}
	return f, nil
}

// Rule правило проверки одного поля
type Rule struct {
	Type       Type
	Opt        Optionality
	Flags      Flag
	Constraint expr.Node
	Exception  expr.Node
	Caption    string
}

// Table упорядоченная таблица правил страницы
type Table struct {
	order []string
	rules map[string]Rule
}

// NewTable создает пустую таблицу
func NewTable() *Table {
	return &Table{rules: make(map[string]Rule)}
}

// Add добавляет или заменяет правило
func (t *Table) Add(name string, r Rule) *Table {
	if _, ok := t.rules[name]; !ok {
		t.order = append(t.order, name)
	}
	t.rules[name] = r
	return t
}

// Get возвращает правило поля
func (t *Table) Get(name string) (Rule, bool) {
	r, ok := t.rules[name]
	return r, ok
}

// Has объявлено ли поле
func (t *Table) Has(name string) bool {
	_, ok := t.rules[name]
	return ok
}

// Names имена полей в порядке объявления
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Len количество правил
func (t *Table) Len() int {
	return len(t.order)
}

// Outcome результат проверки; результаты полей объединяются через OR
type Outcome int

const (
	OK      Outcome = 0
	Error   Outcome = 1
	Warning Outcome = 2
)

func (o Outcome) String() string {
	switch {
	case o == OK:
		return "ok"
	case o&Error != 0:
		return "error"
	default:
		return "warning"
	}
}
