package expr

import (
	"regexp"
	"strconv"
)

var hexRe = regexp.MustCompile(`^([a-zA-Z0-9]+)$`)

// NotEmptyValue проверяемое поле не пустая строка
func NotEmptyValue() Node {
	return &NotEmpty{Arg: &Current{}}
}

// NotZero проверяемое поле не равно нулю
func NotZero() Node {
	return &Compare{Op: "!=", Left: &Current{}, Right: &Literal{Text: "0", Numeric: true}}
}

// ValidID проверяемое поле является идентификатором записи
func ValidID() Node {
	return &DBID{Arg: &Current{}}
}

// ValidUnixTime проверяемое поле является меткой времени до 2038-01-18
func ValidUnixTime() Node {
	return &UnixTime{Arg: &Current{}}
}

// InRange проверяемое поле в интервале [min, max]
func InRange(min, max int64) Node {
	return &Between{Arg: &Current{}, Min: min, Max: max}
}

// OneOf проверяемое поле равно одному из значений
func OneOf(values ...string) Node {
	items := make([]Node, len(values))
	for i, v := range values {
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			items[i] = &Literal{Text: v, Numeric: true}
		} else {
			items[i] = &Literal{Text: v}
		}
	}
	return &InList{Arg: &Current{}, Items: items}
}

// Hex проверяемое поле состоит из латинских букв и цифр
func Hex() Node {
	return &Match{Pattern: hexRe, Source: hexRe.String(), Arg: &Current{}}
}

// IsSet поле name присутствует в запросе
func IsSet(name string) Node {
	return &Isset{Arg: &FieldRef{Name: name}}
}

// Equals поле name равно value
func Equals(name, value string) Node {
	return &Compare{Op: "==", Left: &FieldRef{Name: name}, Right: &Literal{Text: value}}
}

// Negate логическое отрицание
func Negate(n Node) Node {
	return &Not{X: n}
}

// All объединяет условия через И
func All(nodes ...Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = &And{Left: out, Right: n}
	}
	return out
}

// Any объединяет условия через ИЛИ
func Any(nodes ...Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = &Or{Left: out, Right: n}
	}
	return out
}
