package apivalidator

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateUniqueness проверяет повторы в уже проверенных данных. data не
// изменяется; ошибка указывает на второе вхождение.
func (v *Validator) ValidateUniqueness(rule Rule, data any, path string) error {
	if data == nil {
		return nil
	}

	switch rule.Type {
	case TypeIDs, TypeStringsUTF8, TypeInts32:
		if rule.Unique {
			return scalarsUniqueness(data, path)
		}
	case TypeOutput:
		if _, ok := data.([]any); ok {
			return scalarsUniqueness(data, path)
		}
	case TypeObject:
		return v.objectUniqueness(rule, data, path)
	case TypeObjects:
		return v.objectsUniqueness(rule, data, path)
	}
	return nil
}

func scalarsUniqueness(data any, path string) error {
	items, _ := data.([]any)

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		key := scalarText(item)
		if _, ok := seen[key]; ok {
			return invalid(subpath(path, strconv.Itoa(i+1)), fmt.Sprintf("value (%s) already exists", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (v *Validator) objectUniqueness(rule Rule, data any, path string) error {
	obj, _ := data.(map[string]any)
	for _, f := range rule.Fields {
		value, ok := obj[f.Name]
		if !ok {
			continue
		}
		if err := v.ValidateUniqueness(f.Rule, value, subpath(path, f.Name)); err != nil {
			return err
		}
	}
	return nil
}

// uniqNode уровень дерева значений: путь от корня до листа соответствует
// кортежу значений полей из набора uniq
type uniqNode map[string]uniqNode

func (v *Validator) objectsUniqueness(rule Rule, data any, path string) error {
	items, _ := data.([]any)

	for _, names := range rule.Uniq {
		root := uniqNode{}

		for i, item := range items {
			obj, _ := item.(map[string]any)
			node := root
			values := make([]string, 0, len(names))

			for level, name := range names {
				value, ok := obj[name]
				if !ok {
					break
				}
				key := scalarText(value)
				values = append(values, key)

				if level < len(names)-1 {
					next, ok := node[key]
					if !ok {
						next = uniqNode{}
						node[key] = next
					}
					node = next
					continue
				}

				if _, ok := node[key]; ok {
					return invalid(subpath(path, strconv.Itoa(i+1)), fmt.Sprintf("value (%s)=(%s) already exists",
						strings.Join(names, ", "), strings.Join(values, ", ")))
				}
				node[key] = nil
			}
		}
	}

	elem := Rule{Type: TypeObject, Fields: rule.Fields}
	for i, item := range items {
		if err := v.objectUniqueness(elem, item, subpath(path, strconv.Itoa(i+1))); err != nil {
			return err
		}
	}
	return nil
}

// scalarText приводит значение к строке так же, как при склейке в PHP
func scalarText(x any) string {
	switch s := x.(type) {
	case nil:
		return ""
	case bool:
		if s {
			return "1"
		}
		return ""
	case string:
		return s
	}
	if s, ok := integerText(x); ok {
		return s
	}
	return fmt.Sprint(x)
}
