// Package validate содержит примитивные проверки значений: IP адреса,
// диапазоны, списки портов, даты и десятичные числа.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var ipv4Re = regexp.MustCompile(`^([0-9]{1,3})\.([0-9]{1,3})\.([0-9]{1,3})\.([0-9]{1,3})$`)

// ipv6Re десять канонических форм IPv6, без нормализации по RFC 5952.
// Шестнадцатеричные цифры только в нижнем регистре.
var ipv6Re = func() *regexp.Regexp {
	const h = `[a-f0-9]{1,4}`
	patterns := []string{
		`(` + h + `:){7}` + h,
		`:(:` + h + `){1,7}`,
		h + `::(` + h + `:){0,5}` + h,
		`(` + h + `:){2}:(` + h + `:){0,4}` + h,
		`(` + h + `:){3}:(` + h + `:){0,3}` + h,
		`(` + h + `:){4}:(` + h + `:){0,2}` + h,
		`(` + h + `:){5}:(` + h + `:){0,1}` + h,
		`(` + h + `:){6}:` + h,
		`(` + h + `:){1,7}:`,
		`::`,
	}
	alts := make([]string, len(patterns))
	for i, p := range patterns {
		alts[i] = `^(` + p + `)$`
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}()

var (
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
	octetRe  = regexp.MustCompile(`^[0-9]{1,3}$`)
	hextetRe = regexp.MustCompile(`^[a-f0-9]{1,4}$`)
)

const (
	ipv4MinBits = 16
	ipv4MaxBits = 30
	ipv6MinBits = 112
	ipv6MaxBits = 128
)

// IPv4 проверяет адрес a.b.c.d и возвращает октеты
func IPv4(s string) ([4]int, bool) {
	var octets [4]int

	m := ipv4Re.FindStringSubmatch(s)
	if m == nil {
		return octets, false
	}
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n < 0 || n > 255 {
			return octets, false
		}
		octets[i] = n
	}
	return octets, true
}

// IPv6 проверяет адрес по шаблонам сжатой и полной записи
func IPv6(s string) bool {
	return ipv6Re.MatchString(s)
}

// IP проверяет IPv4, затем IPv6 если он разрешен
func IP(s string, allowIPv6 bool) bool {
	if _, ok := IPv4(s); ok {
		return true
	}
	return allowIPv6 && IPv6(s)
}

// IPRangeMask проверяет запись ip/bits
func IPRangeMask(s string, allowIPv6 bool) bool {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || !digitsRe.MatchString(parts[1]) {
		return false
	}

	bits, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}

	if _, ok := IPv4(parts[0]); ok {
		return bits >= ipv4MinBits && bits <= ipv4MaxBits
	}
	if allowIPv6 && IPv6(parts[0]) {
		return bits >= ipv6MinBits && bits <= ipv6MaxBits
	}
	return false
}

// IPRangeSpan проверяет запись ip[-end], где end заменяет последний октет
// (или последнюю группу для IPv6) и не меньше начального значения
func IPRangeSpan(s string, allowIPv6 bool) bool {
	parts := strings.Split(s, "-")
	if len(parts) > 2 {
		return false
	}

	if octets, ok := IPv4(parts[0]); ok {
		if len(parts) == 2 {
			if !octetRe.MatchString(parts[1]) {
				return false
			}
			to, _ := strconv.Atoi(parts[1])
			if to > 255 || octets[3] > to {
				return false
			}
		}
		return true
	}

	if allowIPv6 && IPv6(parts[0]) {
		if len(parts) == 2 {
			if !hextetRe.MatchString(parts[1]) {
				return false
			}
			groups := strings.Split(parts[0], ":")
			from := hexValue(groups[len(groups)-1])
			to := hexValue(parts[1])
			if from > to {
				return false
			}
		}
		return true
	}

	return false
}

// IPRangeList проверяет список диапазонов через запятую
func IPRangeList(s string, allowIPv6 bool) bool {
	for _, r := range strings.Split(s, ",") {
		if strings.Contains(r, "/") {
			if !IPRangeMask(r, allowIPv6) {
				return false
			}
		} else if !IPRangeSpan(r, allowIPv6) {
			return false
		}
	}
	return true
}

// hexValue разбирает ведущие шестнадцатеричные цифры как sscanf("%x");
// пустая группа ("::") дает 0
func hexValue(s string) int64 {
	end := 0
	for end < len(s) && isHex(s[end]) {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 16, 64)
	if err != nil {
		return 0
	}
	return n
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
