package request

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Request изменяемая карта полей запроса. Валидатор меняет ее на месте.
type Request struct {
	fields map[string]Value
}

// New создает пустой запрос
func New() *Request {
	return &Request{fields: make(map[string]Value)}
}

// FromMap создает запрос из строковых значений
func FromMap(m map[string]string) *Request {
	r := New()
	for k, v := range m {
		r.fields[k] = String(v)
	}
	return r
}

// FromForm собирает запрос из query string и POST формы. Поле из POST
// целиком заменяет одноименное поле query string.
func FromForm(query, post url.Values) *Request {
	r := FromValues(query)
	for name, v := range FromValues(post).fields {
		r.fields[name] = v
	}
	return r
}

// FromValues разбирает query string / POST форму с поддержкой a[], a[k], a[k][j]
func FromValues(values url.Values) *Request {
	r := New()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		name, path := splitKey(raw)
		if name == "" {
			continue
		}
		for _, item := range values[raw] {
			if len(path) == 0 {
				r.fields[name] = String(item)
				continue
			}
			root := r.fields[name]
			if !root.IsArray() {
				root = Array()
			}
			insert(&root, path, String(item))
			r.fields[name] = root
		}
	}

	return r
}

// splitKey разбивает "a[b][]" на "a" и ["b", ""]
func splitKey(raw string) (string, []string) {
	open := strings.IndexByte(raw, '[')
	if open <= 0 {
		return raw, nil
	}

	name := raw[:open]
	var path []string
	rest := raw[open:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			// незакрытая скобка: PHP считает весь ключ обычным именем
			return raw, nil
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return name, path
}

func insert(dst *Value, path []string, val Value) {
	key := path[0]
	if len(path) == 1 {
		if key == "" {
			dst.Append(val)
		} else {
			dst.Set(key, val)
		}
		return
	}

	var child Value
	if key != "" {
		if existing, ok := dst.Get(key); ok && existing.IsArray() {
			child = existing
		}
	}
	if !child.IsArray() {
		child = Array()
	}
	insert(&child, path[1:], val)

	if key == "" {
		dst.Append(child)
	} else {
		dst.Set(key, child)
	}
}

// Get возвращает значение поля
func (r *Request) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Has аналог isset()
func (r *Request) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Set записывает значение поля
func (r *Request) Set(name string, v Value) {
	r.fields[name] = v
}

// Delete удаляет поле из запроса
func (r *Request) Delete(name string) {
	delete(r.fields, name)
}

// Clear удаляет все поля
func (r *Request) Clear() {
	r.fields = make(map[string]Value)
}

// Len количество полей
func (r *Request) Len() int {
	return len(r.fields)
}

// Keys возвращает отсортированный список имен полей
func (r *Request) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone возвращает независимую копию запроса
func (r *Request) Clone() *Request {
	c := New()
	for k, v := range r.fields {
		c.fields[k] = v.Clone()
	}
	return c
}

// Map возвращает содержимое запроса для сериализации
func (r *Request) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v.Interface()
	}
	return out
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
