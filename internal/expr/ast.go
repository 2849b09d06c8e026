// Package expr реализует условные выражения правил проверки полей:
// дерево разбора, разбор шаблонов вида "isset({save})&&{type}==1" и
// интерпретатор поверх значений запроса.
package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Node узел дерева выражения
type Node interface {
	value(env Env) operand
	children() []Node
	String() string
}

// Literal строковая или числовая константа
type Literal struct {
	Text    string
	Numeric bool
}

// FieldRef ссылка {name} на объявленное поле запроса
type FieldRef struct {
	Name string
}

// Current ссылка {} на проверяемое поле (или элемент массива)
type Current struct{}

// Isset проверка наличия поля
type Isset struct {
	Arg Node
}

// Not логическое отрицание
type Not struct {
	X Node
}

// And логическое И
type And struct {
	Left, Right Node
}

// Or логическое ИЛИ
type Or struct {
	Left, Right Node
}

// Compare сравнение: == != === !== < <= > >=
type Compare struct {
	Op          string
	Left, Right Node
}

// InList принадлежность значения списку, str_in_array()
type InList struct {
	Arg   Node
	Items []Node
}

// Match проверка регулярным выражением, preg_match()
type Match struct {
	Pattern *regexp.Regexp
	Source  string
	Arg     Node
}

// DBID значение является идентификатором записи: 0 <= id <= 2^63-1
type DBID struct {
	Arg Node
}

// UnixTime метка времени в интервале (0, 2147464800]
type UnixTime struct {
	Arg Node
}

// Between числовой интервал [Min, Max]; границы нужны для текста ошибки
type Between struct {
	Arg      Node
	Min, Max int64
}

// NotEmpty значение не пустая строка
type NotEmpty struct {
	Arg Node
}

// ForAll применяет Inner к значению поля Field; для массива к каждому
// элементу, и результат истинен только если истинны все элементы
type ForAll struct {
	Field string
	Inner Node
}

func (n *Literal) children() []Node  { return nil }
func (n *FieldRef) children() []Node { return nil }
func (n *Current) children() []Node  { return nil }
func (n *Isset) children() []Node    { return []Node{n.Arg} }
func (n *Not) children() []Node      { return []Node{n.X} }
func (n *And) children() []Node      { return []Node{n.Left, n.Right} }
func (n *Or) children() []Node       { return []Node{n.Left, n.Right} }
func (n *Compare) children() []Node  { return []Node{n.Left, n.Right} }
func (n *Match) children() []Node    { return []Node{n.Arg} }
func (n *DBID) children() []Node     { return []Node{n.Arg} }
func (n *UnixTime) children() []Node { return []Node{n.Arg} }
func (n *Between) children() []Node  { return []Node{n.Arg} }
func (n *NotEmpty) children() []Node { return []Node{n.Arg} }
func (n *ForAll) children() []Node   { return []Node{n.Inner} }

func (n *InList) children() []Node {
	return append([]Node{n.Arg}, n.Items...)
}

func (n *Literal) String() string {
	if n.Numeric {
		return n.Text
	}
	return "'" + strings.ReplaceAll(n.Text, "'", `\'`) + "'"
}

func (n *FieldRef) String() string { return "{" + n.Name + "}" }
func (n *Current) String() string  { return "{}" }
func (n *Isset) String() string    { return "isset(" + n.Arg.String() + ")" }
func (n *Not) String() string      { return "!" + n.X.String() }
func (n *And) String() string      { return "(" + n.Left.String() + "&&" + n.Right.String() + ")" }
func (n *Or) String() string       { return "(" + n.Left.String() + "||" + n.Right.String() + ")" }
func (n *Compare) String() string  { return n.Left.String() + n.Op + n.Right.String() }
func (n *DBID) String() string     { return "db_id(" + n.Arg.String() + ")" }
func (n *UnixTime) String() string { return "unix_time(" + n.Arg.String() + ")" }
func (n *NotEmpty) String() string { return "(" + n.Arg.String() + "!='')" }

func (n *InList) String() string {
	items := make([]string, len(n.Items))
	for i, item := range n.Items {
		items[i] = item.String()
	}
	return "str_in_array(" + n.Arg.String() + ",array(" + strings.Join(items, ",") + "))"
}

func (n *Match) String() string {
	return "preg_match(" + strconv.Quote("/"+n.Source+"/") + "," + n.Arg.String() + ")"
}

func (n *Between) String() string {
	a := n.Arg.String()
	return fmt.Sprintf("(%s>=%d&&%s<=%d)", a, n.Min, a, n.Max)
}

func (n *ForAll) String() string {
	return "forall(" + n.Field + "," + n.Inner.String() + ")"
}

// Walk обходит дерево в глубину; fn возвращает false, чтобы не спускаться ниже
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.children() {
		Walk(c, fn)
	}
}

// UsesCurrent сообщает, ссылается ли выражение на {}
func UsesCurrent(n Node) bool {
	found := false
	Walk(n, func(x Node) bool {
		if _, ok := x.(*Current); ok {
			found = true
		}
		return !found
	})
	return found
}

// FindBetween возвращает первый интервал в выражении
func FindBetween(n Node) (*Between, bool) {
	var b *Between
	Walk(n, func(x Node) bool {
		if v, ok := x.(*Between); ok && b == nil {
			b = v
		}
		return b == nil
	})
	return b, b != nil
}
