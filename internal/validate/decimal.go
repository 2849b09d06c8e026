package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var decimalRe = regexp.MustCompile(`^-?(?:[0-9]+|[0-9]*\.[0-9]+)$`)

// DecimalErrorKind причина отказа DecimalValidator
type DecimalErrorKind int

const (
	DecimalInvalid DecimalErrorKind = iota
	DecimalNatural
	DecimalScale
)

// DecimalError описывает нарушение формата десятичного числа
type DecimalError struct {
	Kind  DecimalErrorKind
	Value string
	Limit int
}

func (e *DecimalError) Error() string {
	switch e.Kind {
	case DecimalNatural:
		return fmt.Sprintf("value %q has too many digits before the decimal point: it cannot exceed %d digits", e.Value, e.Limit)
	case DecimalScale:
		return fmt.Sprintf("value %q has too many digits after the decimal point: it cannot exceed %d digits", e.Value, e.Limit)
	default:
		return fmt.Sprintf("value %q has incorrect decimal format", e.Value)
	}
}

// DecimalValidator ограничивает общую точность и число знаков после точки.
// Нулевое значение поля отключает соответствующую проверку.
type DecimalValidator struct {
	MaxPrecision int
	MaxScale     int
}

// Validate возвращает *DecimalError или nil
func (d DecimalValidator) Validate(value string) error {
	if !decimalRe.MatchString(value) {
		return &DecimalError{Kind: DecimalInvalid, Value: value}
	}

	digits := strings.TrimLeft(strings.TrimPrefix(value, "-"), "0")
	natural, scale, _ := strings.Cut(digits, ".")

	if d.MaxPrecision > 0 {
		maxNatural := d.MaxPrecision - d.MaxScale
		if len(natural) > maxNatural {
			return &DecimalError{Kind: DecimalNatural, Value: value, Limit: maxNatural}
		}
	}
	if d.MaxScale > 0 && len(scale) > d.MaxScale {
		return &DecimalError{Kind: DecimalScale, Value: value, Limit: d.MaxScale}
	}

	return nil
}
