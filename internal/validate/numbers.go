package validate

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MinPort = 0
	MaxPort = 65535
)

var (
	intRe     = regexp.MustCompile(`^[-+]?[0-9]+$`)
	numericRe = regexp.MustCompile(`^[ \t\n\r\x0B\f]*[-+]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][-+]?[0-9]+)?$`)
	colorRe   = regexp.MustCompile(`(?i)^[0-9a-f]{6}$`)
)

// Int проверяет целое число со знаком
func Int(s string) bool {
	return intRe.MatchString(s)
}

// Numeric повторяет is_numeric(): допускает ведущие пробелы, дробь и экспоненту
func Numeric(s string) bool {
	return numericRe.MatchString(s)
}

// Number проверяет целое число в границах [min, max]
func Number(s string, min, max int64) bool {
	if !Int(s) {
		return false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64)
	if err != nil {
		return false
	}
	return n >= min && n <= max
}

// Port проверяет номер TCP порта
func Port(s string) bool {
	return Number(s, MinPort, MaxPort)
}

// PortList проверяет список "port" и "port-port" через запятую
func PortList(s string) bool {
	for _, r := range strings.Split(s, ",") {
		bounds := strings.Split(r, "-")
		if len(bounds) > 2 {
			return false
		}
		for _, port := range bounds {
			if !Port(port) {
				return false
			}
		}
	}
	return true
}

// IntRangeList проверяет список "int" и "int-int". Пустая строка допустима.
// Знак минус служит разделителем, поэтому отрицательные числа не проходят.
func IntRangeList(s string) bool {
	if s == "" || s == "0" {
		return true
	}
	for _, r := range strings.Split(s, ",") {
		bounds := strings.Split(r, "-")
		if len(bounds) > 2 {
			return false
		}
		for _, b := range bounds {
			if !Numeric(b) {
				return false
			}
		}
	}
	return true
}

// Color проверяет шестнадцатеричный код цвета из 6 символов
func Color(s string) bool {
	return colorRe.MatchString(s)
}
