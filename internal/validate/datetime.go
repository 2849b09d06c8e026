package validate

import "strconv"

// MaxUnixTime последняя допустимая метка времени (2038-01-18)
const MaxUnixTime = 2147464800

// DateTime проверяет компоненты даты и времени. seconds может быть nil.
//
// Високосным считается любой год, кратный 4, в том числе 1900 и 2100.
func DateTime(year, month, day, hours, minutes int, seconds *int) bool {
	switch {
	case month < 1 || month > 12:
		return false
	case day < 1 || day > 31:
		return false
	case (month == 4 || month == 6 || month == 9 || month == 11) && day > 30:
		return false
	case month == 2 && year%4 == 0 && day > 29:
		return false
	case month == 2 && year%4 != 0 && day > 28:
		return false
	case hours < 0 || hours > 23:
		return false
	case minutes < 0 || minutes > 59:
		return false
	case seconds != nil && (*seconds < 0 || *seconds > 59):
		return false
	}
	return true
}

// DateInterval проверяет, что дата попадает в [1970-01-01, 2038-01-18]
func DateInterval(year, month, day int) bool {
	if year < 1970 || year > 2038 {
		return false
	}
	if year == 2038 && (month > 1 || (month == 1 && day > 18)) {
		return false
	}
	return true
}

// UnixTime проверяет метку времени в интервале (0, MaxUnixTime]
func UnixTime(s string) bool {
	if !Numeric(s) {
		return false
	}
	t, err := strconv.ParseFloat(trimNumeric(s), 64)
	if err != nil {
		return false
	}
	return t > 0 && t <= MaxUnixTime
}

func trimNumeric(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '\x0B' || s[i] == '\f') {
		i++
	}
	return s[i:]
}
