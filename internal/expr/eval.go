package expr

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"zabbix_input/internal/request"
	"zabbix_input/internal/validate"
)

// MaxDBID наибольший идентификатор записи
const MaxDBID = "9223372036854775807"

var elementKeyRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Env источник значений для {name} и {}
type Env interface {
	Lookup(name string) (request.Value, bool)
	Current() (request.Value, bool)
}

// RequestEnv окружение поверх запроса. Known ограничивает {name}
// объявленными полями; nil разрешает любые.
type RequestEnv struct {
	Request *request.Request
	Known   func(name string) bool
	Field   string
}

// Lookup возвращает значение объявленного поля
func (e *RequestEnv) Lookup(name string) (request.Value, bool) {
	if e.Known != nil && !e.Known(name) {
		return request.Value{}, false
	}
	return e.Request.Get(name)
}

// Current возвращает значение проверяемого поля
func (e *RequestEnv) Current() (request.Value, bool) {
	if e.Field == "" {
		return request.Value{}, false
	}
	return e.Request.Get(e.Field)
}

// scoped подменяет {} элементом массива
type scoped struct {
	Env
	cur request.Value
}

func (s scoped) Current() (request.Value, bool) {
	return s.cur, true
}

// Eval вычисляет выражение как логическое значение
func Eval(n Node, env Env) bool {
	return n.value(env).truthy()
}

// EvalField вычисляет выражение для поля field. Если выражение ссылается
// на {}, оно явно квантифицируется через ForAll: отсутствующее поле дает
// false, массив проверяется поэлементно.
func EvalField(n Node, env Env, field string) bool {
	if UsesCurrent(n) {
		n = &ForAll{Field: field, Inner: n}
	}
	return Eval(n, env)
}

type opKind int

const (
	opNull opKind = iota
	opString
	opNumber
	opBool
	opArray
)

type operand struct {
	kind opKind
	s    string
	b    bool
	arr  request.Value
}

func fromValue(v request.Value, ok bool) operand {
	switch {
	case !ok:
		return operand{kind: opNull}
	case v.IsArray():
		return operand{kind: opArray, arr: v}
	default:
		return operand{kind: opString, s: v.Str()}
	}
}

func boolean(b bool) operand {
	return operand{kind: opBool, b: b}
}

// truthy повторяет приведение к bool в PHP
func (o operand) truthy() bool {
	switch o.kind {
	case opBool:
		return o.b
	case opString:
		return o.s != "" && o.s != "0"
	case opNumber:
		f, err := strconv.ParseFloat(o.s, 64)
		return err == nil && f != 0
	case opArray:
		return o.arr.Len() > 0
	}
	return false
}

// scalar строковое представление для сравнения
func (o operand) scalar() string {
	switch o.kind {
	case opBool:
		if o.b {
			return "1"
		}
		return ""
	case opString, opNumber:
		return o.s
	}
	return ""
}

func (o operand) numeric() bool {
	return (o.kind == opNumber || o.kind == opString) && validate.Numeric(o.s)
}

func (n *Literal) value(Env) operand {
	if n.Numeric {
		return operand{kind: opNumber, s: n.Text}
	}
	return operand{kind: opString, s: n.Text}
}

func (n *FieldRef) value(env Env) operand {
	return fromValue(env.Lookup(n.Name))
}

func (n *Current) value(env Env) operand {
	return fromValue(env.Current())
}

func (n *Isset) value(env Env) operand {
	return boolean(n.Arg.value(env).kind != opNull)
}

func (n *Not) value(env Env) operand {
	return boolean(!n.X.value(env).truthy())
}

func (n *And) value(env Env) operand {
	return boolean(n.Left.value(env).truthy() && n.Right.value(env).truthy())
}

func (n *Or) value(env Env) operand {
	return boolean(n.Left.value(env).truthy() || n.Right.value(env).truthy())
}

func (n *Compare) value(env Env) operand {
	l, r := n.Left.value(env), n.Right.value(env)

	switch n.Op {
	case "===":
		return boolean(strictEqual(l, r))
	case "!==":
		return boolean(!strictEqual(l, r))
	case "==":
		return boolean(looseEqual(l, r))
	case "!=":
		return boolean(!looseEqual(l, r))
	}

	c, ok := compare(l, r)
	if !ok {
		return boolean(false)
	}
	switch n.Op {
	case "<":
		return boolean(c < 0)
	case "<=":
		return boolean(c <= 0)
	case ">":
		return boolean(c > 0)
	case ">=":
		return boolean(c >= 0)
	}
	return boolean(false)
}

func (n *InList) value(env Env) operand {
	v := n.Arg.value(env)
	if v.kind == opNull || v.kind == opArray {
		return boolean(false)
	}
	for _, item := range n.Items {
		if item.value(env).scalar() == v.scalar() {
			return boolean(true)
		}
	}
	return boolean(false)
}

func (n *Match) value(env Env) operand {
	v := n.Arg.value(env)
	if v.kind == opNull || v.kind == opArray {
		return boolean(false)
	}
	return boolean(n.Pattern.MatchString(v.scalar()))
}

func (n *DBID) value(env Env) operand {
	v := n.Arg.value(env)
	if v.kind != opString && v.kind != opNumber {
		return boolean(false)
	}
	return boolean(IsDBID(v.s))
}

func (n *UnixTime) value(env Env) operand {
	v := n.Arg.value(env)
	if v.kind != opString && v.kind != opNumber {
		return boolean(false)
	}
	return boolean(validate.UnixTime(v.s))
}

func (n *Between) value(env Env) operand {
	v := n.Arg.value(env)
	if !v.numeric() {
		return boolean(false)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
	if err != nil {
		return boolean(false)
	}
	return boolean(f >= float64(n.Min) && f <= float64(n.Max))
}

func (n *NotEmpty) value(env Env) operand {
	v := n.Arg.value(env)
	if v.kind == opArray {
		return boolean(true)
	}
	return boolean(v.scalar() != "")
}

func (n *ForAll) value(env Env) operand {
	v, ok := env.Lookup(n.Field)
	if !ok {
		// поле может быть не объявлено в окружении, но оно проверяемое
		v, ok = env.Current()
	}
	if !ok {
		return boolean(false)
	}
	if !v.IsArray() {
		return boolean(n.Inner.value(scoped{Env: env, cur: v}).truthy())
	}
	for _, e := range v.Entries() {
		if !elementKeyRe.MatchString(e.Key) {
			return boolean(false)
		}
		if !n.Inner.value(scoped{Env: env, cur: e.Value}).truthy() {
			return boolean(false)
		}
	}
	return boolean(true)
}

// IsDBID проверяет строку цифр в диапазоне [0, MaxDBID]
func IsDBID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return false
	}
	max, _ := new(big.Int).SetString(MaxDBID, 10)
	return n.Cmp(max) <= 0
}

func strictEqual(l, r operand) bool {
	if l.kind == opArray || r.kind == opArray {
		return l.kind == r.kind && l.arr.Equal(r.arr)
	}
	if l.kind != r.kind {
		return false
	}
	return l.scalar() == r.scalar() && l.b == r.b
}

// looseEqual сравнение == по правилам PHP 8
func looseEqual(l, r operand) bool {
	if l.kind == opArray || r.kind == opArray {
		if l.kind == opArray && r.kind == opArray {
			return l.arr.Equal(r.arr)
		}
		other := l
		if l.kind == opArray {
			other = r
		}
		if other.kind == opNull || other.kind == opBool {
			arr := l
			if r.kind == opArray {
				arr = r
			}
			return arr.truthy() == other.truthy()
		}
		return false
	}
	if l.kind == opBool || r.kind == opBool || l.kind == opNull || r.kind == opNull {
		if l.kind == opNull && r.kind == opNull {
			return true
		}
		if (l.kind == opNull && r.kind == opString) || (r.kind == opNull && l.kind == opString) {
			return l.scalar() == r.scalar()
		}
		return l.truthy() == r.truthy()
	}
	c, ok := compare(l, r)
	return ok && c == 0
}

// compare возвращает -1, 0, 1; для массивов сравнение не определено
func compare(l, r operand) (int, bool) {
	if l.kind == opArray || r.kind == opArray {
		return 0, false
	}
	if l.numeric() && r.numeric() {
		a, err1 := strconv.ParseFloat(strings.TrimSpace(l.s), 64)
		b, err2 := strconv.ParseFloat(strings.TrimSpace(r.s), 64)
		if err1 == nil && err2 == nil {
			switch {
			case a < b:
				return -1, true
			case a > b:
				return 1, true
			}
			return 0, true
		}
	}
	if l.kind == opNull && r.numeric() {
		l = operand{kind: opNumber, s: "0"}
		return compare(l, r)
	}
	if r.kind == opNull && l.numeric() {
		r = operand{kind: opNumber, s: "0"}
		return compare(l, r)
	}
	return strings.Compare(l.scalar(), r.scalar()), true
}
