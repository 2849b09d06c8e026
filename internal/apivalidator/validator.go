package apivalidator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"zabbix_input/internal/validate"
	"zabbix_input/internal/verr"
)

// MaxID наибольший идентификатор объекта
const MaxID = "9223372036854775807"

var (
	int32Re  = regexp.MustCompile(`^-?[0-9]+$`)
	maxID, _ = new(big.Int).SetString(MaxID, 10)
)

// Validator проверяет параметры API. Не хранит состояние между вызовами.
type Validator struct {
	logger    *zap.Logger
	allowIPv6 bool
}

// Option настройка Validator
type Option func(*Validator)

// WithIPv6 разрешает IPv6 в TypeIPRanges
func WithIPv6(allow bool) Option {
	return func(v *Validator) {
		v.allowIPv6 = allow
	}
}

// New создает валидатор
func New(logger *zap.Logger, opts ...Option) *Validator {
	v := &Validator{logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var std = New(zap.NewNop())

// Validate проверяет data валидатором по умолчанию
func Validate(rule Rule, data *any, path string) error {
	return std.Validate(rule, data, path)
}

// ValidateUniqueness проверяет уникальность валидатором по умолчанию
func ValidateUniqueness(rule Rule, data any, path string) error {
	return std.ValidateUniqueness(rule, data, path)
}

// Decode разбирает JSON так, чтобы числа оставались json.Number
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	return data, nil
}

// Validate проверяет структуру и типы data, приводя значения на месте,
// затем уникальность. Возвращает verr.List из одного нарушения.
func (v *Validator) Validate(rule Rule, data *any, path string) error {
	if err := v.validateData(rule, data, path); err != nil {
		v.logger.Debug("API input rejected", zap.String("path", path), zap.Error(err))
		return err
	}
	if err := v.ValidateUniqueness(rule, *data, path); err != nil {
		v.logger.Debug("API input rejected", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

func invalid(path, reason string) error {
	return verr.New(path, fmt.Sprintf("Invalid parameter %q: %s.", path, reason))
}

func (v *Validator) validateData(rule Rule, data *any, path string) error {
	if rule.Flags.Has(FlagAllowNull) && *data == nil {
		return nil
	}

	switch rule.Type {
	case TypeStringUTF8:
		return validateStringUTF8(rule, data, path)
	case TypeStringsUTF8:
		return v.validateArray(rule, data, path, Rule{Type: TypeStringUTF8, Length: rule.Length, In: rule.In}, isString)
	case TypeInt32:
		return validateInt32(rule, data, path)
	case TypeInts32:
		return v.validateArray(rule, data, path, Rule{Type: TypeInt32, In: rule.In}, func(x any) bool {
			c := x
			return validateInt32(Rule{}, &c, "") == nil
		})
	case TypeID:
		return validateID(data, path)
	case TypeIDs:
		return v.validateArray(rule, data, path, Rule{Type: TypeID}, func(x any) bool {
			c := x
			return validateID(&c, "") == nil
		})
	case TypeBoolean:
		if _, ok := (*data).(bool); !ok {
			return invalid(path, "a boolean is expected")
		}
		return nil
	case TypeFlag:
		if _, ok := (*data).(bool); !ok {
			*data = *data != nil
		}
		return nil
	case TypeObject:
		return v.validateObject(rule, data, path)
	case TypeObjects:
		return v.validateObjects(rule, data, path)
	case TypeHostGroupName:
		return validateHostGroupName(rule, data, path)
	case TypeIPRanges:
		return v.validateIPRanges(rule, data, path)
	case TypeOutput:
		return v.validateOutput(rule, data, path)
	case TypeSortOrder:
		return v.validateSortOrder(data, path)
	}

	return fmt.Errorf("unsupported rule type %s at %s", rule.Type, path)
}

func isString(x any) bool {
	_, ok := x.(string)
	return ok
}

func validateString(data any, path string, flags Flag, length int) (string, error) {
	s, ok := data.(string)
	if !ok {
		return "", invalid(path, "a character string is expected")
	}
	if !utf8.ValidString(s) {
		return "", invalid(path, "invalid byte sequence in UTF-8")
	}
	if flags.Has(FlagNotEmpty) && s == "" {
		return "", invalid(path, "cannot be empty")
	}
	if length > 0 && utf8.RuneCountInString(s) > length {
		return "", invalid(path, "value is too long")
	}
	return s, nil
}

func validateStringUTF8(rule Rule, data *any, path string) error {
	s, err := validateString(*data, path, rule.Flags, rule.Length)
	if err != nil {
		return err
	}

	if in := inList(rule.In); in != nil {
		found := false
		for _, allowed := range in {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return invalid(path, "value must be one of "+strings.Join(in, ", "))
		}
	}
	return nil
}

// integerText возвращает десятичную запись целого значения или false
func integerText(x any) (string, bool) {
	switch n := x.(type) {
	case string:
		return n, true
	case json.Number:
		return n.String(), true
	case int:
		return strconv.Itoa(n), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return strconv.FormatFloat(n, 'f', -1, 64), true
		}
	}
	return "", false
}

func validateInt32(rule Rule, data *any, path string) error {
	s, ok := integerText(*data)
	if !ok || !int32Re.MatchString(s) {
		return invalid(path, "a number is expected")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
		return invalid(path, "a number is too large")
	}

	if in := inList(rule.In); in != nil && !int32In(n, in) {
		shown := strings.ReplaceAll(strings.ReplaceAll(rule.In, ",", ", "), ":", "-")
		return invalid(path, "value must be one of "+shown)
	}

	*data = int(n)
	return nil
}

func int32In(n int64, in []string) bool {
	for _, item := range in {
		if from, to, isRange := strings.Cut(item, ":"); isRange {
			lo, err1 := strconv.ParseInt(from, 10, 64)
			hi, err2 := strconv.ParseInt(to, 10, 64)
			if err1 == nil && err2 == nil && n >= lo && n <= hi {
				return true
			}
			continue
		}
		if v, err := strconv.ParseInt(item, 10, 64); err == nil && v == n {
			return true
		}
	}
	return false
}

func validateID(data *any, path string) error {
	s, ok := integerText(*data)
	if !ok || s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return invalid(path, "a number is expected")
	}

	n, _ := new(big.Int).SetString(s, 10)
	if n.Cmp(maxID) > 0 {
		return invalid(path, "a number is too large")
	}

	if s = strings.TrimLeft(s, "0"); s == "" {
		s = "0"
	}
	*data = s
	return nil
}

// validateArray общая проверка массивов скалярных значений.
// single решает, можно ли обернуть одиночное значение при FlagNormalize.
func (v *Validator) validateArray(rule Rule, data *any, path string, elem Rule, single func(any) bool) error {
	if rule.Flags.Has(FlagNormalize) && single(*data) {
		*data = []any{*data}
	}

	items, ok := (*data).([]any)
	if !ok {
		return invalid(path, "an array is expected")
	}
	if rule.Flags.Has(FlagNotEmpty) && len(items) == 0 {
		return invalid(path, "cannot be empty")
	}

	for i := range items {
		if err := v.validateData(elem, &items[i], subpath(path, strconv.Itoa(i+1))); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateObject(rule Rule, data *any, path string) error {
	var obj map[string]any
	switch d := (*data).(type) {
	case map[string]any:
		obj = d
	case []any:
		if len(d) > 0 {
			return invalid(path, `unexpected parameter "0"`)
		}
		obj = map[string]any{}
		*data = obj
	default:
		return invalid(path, "an array is expected")
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := rule.field(k); !ok {
			return invalid(path, fmt.Sprintf("unexpected parameter %q", k))
		}
	}

	for _, f := range rule.Fields {
		value, ok := obj[f.Name]
		if !ok && f.Rule.Default != nil {
			value, ok = f.Rule.Default, true
		}
		if !ok {
			if f.Rule.Flags.Has(FlagRequired) {
				return invalid(path, fmt.Sprintf("the parameter %q is missing", f.Name))
			}
			continue
		}

		if err := v.validateData(f.Rule, &value, subpath(path, f.Name)); err != nil {
			return err
		}
		obj[f.Name] = value
	}

	return nil
}

func (v *Validator) validateObjects(rule Rule, data *any, path string) error {
	if _, ok := (*data).(map[string]any); ok && rule.Flags.Has(FlagNormalize) {
		*data = []any{*data}
	}

	items, ok := (*data).([]any)
	if !ok {
		return invalid(path, "an array is expected")
	}
	if rule.Flags.Has(FlagNotEmpty) && len(items) == 0 {
		return invalid(path, "cannot be empty")
	}

	elem := Rule{Type: TypeObject, Fields: rule.Fields}
	for i := range items {
		if err := v.validateObject(elem, &items[i], subpath(path, strconv.Itoa(i+1))); err != nil {
			return err
		}
	}
	return nil
}

func validateHostGroupName(rule Rule, data *any, path string) error {
	s, err := validateString(*data, path, rule.Flags, rule.Length)
	if err != nil {
		return err
	}

	p := HostGroupNameParser{LLDMacros: rule.Flags.Has(FlagRequiredLLDMacro)}
	if !p.Parse(s) {
		return invalid(path, "invalid host group name")
	}
	if rule.Flags.Has(FlagRequiredLLDMacro) && p.Macros() == 0 {
		return invalid(path, "must contain at least one low-level discovery macro")
	}
	return nil
}

func (v *Validator) validateIPRanges(rule Rule, data *any, path string) error {
	s, err := validateString(*data, path, rule.Flags, rule.Length)
	if err != nil {
		return err
	}
	if s != "" && !validate.IPRangeList(s, v.allowIPv6) {
		return invalid(path, "invalid IP address range")
	}
	return nil
}

func (v *Validator) validateOutput(rule Rule, data *any, path string) error {
	switch (*data).(type) {
	case []any:
		return v.validateData(Rule{Type: TypeStringsUTF8, In: rule.In}, data, path)
	case string:
		in := "extend"
		if rule.Flags.Has(FlagAllowCount) {
			in = "extend,count"
		}
		return validateStringUTF8(Rule{In: in}, data, path)
	}
	return invalid(path, "an array or a character string is expected")
}

func (v *Validator) validateSortOrder(data *any, path string) error {
	check := func(x any, p string) error {
		if s, ok := x.(string); !ok || (s != "ASC" && s != "DESC") {
			if !ok {
				return invalid(p, "a character string is expected")
			}
			return invalid(p, "value must be one of 'ASC', 'DESC'")
		}
		return nil
	}

	switch d := (*data).(type) {
	case string:
		return check(d, path)
	case []any:
		for i, x := range d {
			if err := check(x, subpath(path, strconv.Itoa(i+1))); err != nil {
				return err
			}
		}
		return nil
	}
	return invalid(path, "an array or a character string is expected")
}
