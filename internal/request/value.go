// Package request содержит изменяемую карту значений запроса, с которой
// работает движок проверки полей.
package request

import "strings"

// Kind тип значения поля
type Kind int

const (
	KindScalar Kind = iota
	KindArray
)

// Entry элемент массива: ключ и значение, порядок сохраняется
type Entry struct {
	Key   string
	Value Value
}

// Value представляет значение поля запроса: строку или упорядоченный массив
type Value struct {
	kind    Kind
	str     string
	entries []Entry
}

// String создает скалярное значение
func String(s string) Value {
	return Value{kind: KindScalar, str: s}
}

// Array создает массив из пар ключ-значение
func Array(entries ...Entry) Value {
	return Value{kind: KindArray, entries: entries}
}

// List создает массив строк с ключами 0..n-1
func List(items ...string) Value {
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		entries = append(entries, Entry{Key: itoa(i), Value: String(item)})
	}
	return Array(entries...)
}

// IsArray сообщает, является ли значение массивом
func (v Value) IsArray() bool {
	return v.kind == KindArray
}

// Str возвращает строковое значение; для массива пустая строка
func (v Value) Str() string {
	return v.str
}

// Entries возвращает элементы массива
func (v Value) Entries() []Entry {
	return v.entries
}

// Len возвращает число элементов массива или длину строки
func (v Value) Len() int {
	if v.kind == KindArray {
		return len(v.entries)
	}
	return len(v.str)
}

// Get ищет элемент массива по ключу
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Set заменяет или добавляет элемент массива
func (v *Value) Set(key string, val Value) {
	v.kind = KindArray
	for i := range v.entries {
		if v.entries[i].Key == key {
			v.entries[i].Value = val
			return
		}
	}
	v.entries = append(v.entries, Entry{Key: key, Value: val})
}

// Append добавляет элемент со следующим числовым ключом, как $a[] = ...
func (v *Value) Append(val Value) {
	v.kind = KindArray
	next := 0
	for _, e := range v.entries {
		if n, ok := atoi(e.Key); ok && n >= next {
			next = n + 1
		}
	}
	v.entries = append(v.entries, Entry{Key: itoa(next), Value: val})
}

// Clone возвращает глубокую копию
func (v Value) Clone() Value {
	if v.kind != KindArray {
		return v
	}
	entries := make([]Entry, len(v.entries))
	for i, e := range v.entries {
		entries[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
	}
	return Value{kind: KindArray, entries: entries}
}

// Equal сравнивает значения структурно
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindScalar {
		return v.str == o.str
	}
	if len(v.entries) != len(o.entries) {
		return false
	}
	for i := range v.entries {
		if v.entries[i].Key != o.entries[i].Key || !v.entries[i].Value.Equal(o.entries[i].Value) {
			return false
		}
	}
	return true
}

// Interface превращает значение в string / map[string]any для JSON ответа
func (v Value) Interface() any {
	if v.kind == KindScalar {
		return v.str
	}
	out := make(map[string]any, len(v.entries))
	for _, e := range v.entries {
		out[e.Key] = e.Value.Interface()
	}
	return out
}

// trimSet набор символов, которые удаляет trim()
const trimSet = " \t\n\r\x00\x0B"

// Trim рекурсивно обрезает пробельные символы во всех строках значения
func Trim(v Value) Value {
	if v.kind == KindScalar {
		return String(strings.Trim(v.str, trimSet))
	}
	entries := make([]Entry, len(v.entries))
	for i, e := range v.entries {
		entries[i] = Entry{Key: e.Key, Value: Trim(e.Value)}
	}
	return Value{kind: KindArray, entries: entries}
}
