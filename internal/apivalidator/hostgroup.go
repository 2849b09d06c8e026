package apivalidator

import "regexp"

var lldMacroRe = regexp.MustCompile(`^\{#[A-Z0-9_.]+\}`)

// HostGroupNameParser разбирает имя группы узлов сети. Вложенность
// обозначается "/": имя не может начинаться или заканчиваться на "/" и
// содержать пустой уровень "//".
type HostGroupNameParser struct {
	// LLDMacros разрешает макросы {#MACRO}; "/" внутри макроса не
	// считается разделителем
	LLDMacros bool

	macros int
}

// Parse проверяет имя целиком
func (p *HostGroupNameParser) Parse(name string) bool {
	p.macros = 0
	if name == "" {
		return false
	}

	prevSlash := true
	for i := 0; i < len(name); {
		if p.LLDMacros && name[i] == '{' {
			if m := lldMacroRe.FindString(name[i:]); m != "" {
				p.macros++
				i += len(m)
				prevSlash = false
				continue
			}
		}

		if name[i] == '/' {
			if prevSlash {
				return false
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		i++
	}

	return !prevSlash
}

// Macros число LLD макросов в последнем разобранном имени
func (p *HostGroupNameParser) Macros() int {
	return p.macros
}
