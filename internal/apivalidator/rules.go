// Package apivalidator проверяет параметры вызовов JSON-RPC API по дереву
// типизированных правил. Проверка останавливается на первой ошибке и
// сообщает путь к параметру вида "/1/groups/2".
package apivalidator

import (
	"fmt"
	"strings"
)

// Type тип узла правила
type Type int

const (
	TypeStringUTF8 Type = iota + 1
	TypeStringsUTF8
	TypeInt32
	TypeInts32
	TypeID
	TypeIDs
	TypeBoolean
	TypeFlag
	TypeObject
	TypeObjects
	TypeHostGroupName
	TypeIPRanges
	TypeOutput
	TypeSortOrder
)

var typeNames = map[Type]string{
	TypeStringUTF8:    "string",
	TypeStringsUTF8:   "strings",
	TypeInt32:         "int32",
	TypeInts32:        "ints32",
	TypeID:            "id",
	TypeIDs:           "ids",
	TypeBoolean:       "boolean",
	TypeFlag:          "flag",
	TypeObject:        "object",
	TypeObjects:       "objects",
	TypeHostGroupName: "hostgroup_name",
	TypeIPRanges:      "ip_ranges",
	TypeOutput:        "output",
	TypeSortOrder:     "sortorder",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Flag флаги правила
type Flag uint

const (
	// FlagRequired поле объекта обязательно
	FlagRequired Flag = 1 << iota
	// FlagNotEmpty пустая строка или пустой массив недопустимы
	FlagNotEmpty
	// FlagAllowNull null принимается без проверки
	FlagAllowNull
	// FlagNormalize одиночное значение оборачивается в массив
	FlagNormalize
	// FlagRequiredLLDMacro имя группы должно содержать LLD макрос
	FlagRequiredLLDMacro
	// FlagAllowCount output может принимать значение "count"
	FlagAllowCount
)

// Has проверяет установленный флаг
func (f Flag) Has(flag Flag) bool {
	return f&flag != 0
}

// Rule узел дерева правил
type Rule struct {
	Type  Type
	Flags Flag
	// Fields поля объекта для TypeObject и TypeObjects
	Fields []Field
	// Uniq наборы полей, уникальных в пределах массива объектов
	Uniq [][]string
	// Unique значения массива не должны повторяться
	Unique bool
	// Length максимальная длина строки в символах, 0 без ограничения
	Length int
	// In допустимые значения через запятую; для чисел "a:b" задает интервал
	In string
	// Default значение отсутствующего поля объекта
	Default any
}

// Field именованное поле объекта
type Field struct {
	Name string
	Rule Rule
}

// F сокращение для объявления поля
func F(name string, rule Rule) Field {
	return Field{Name: name, Rule: rule}
}

func (r Rule) field(name string) (Rule, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Rule, true
		}
	}
	return Rule{}, false
}

func inList(in string) []string {
	if in == "" {
		return nil
	}
	return strings.Split(in, ",")
}

func subpath(path, name string) string {
	if path == "/" {
		return path + name
	}
	return path + "/" + name
}
