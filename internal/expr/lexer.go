package expr

import (
	"fmt"
	"strings"
)

// TokenType тип лексемы
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenIdent  // isset, str_in_array, array
	TokenRef    // {name} или {}
	TokenString // 'text', "text"
	TokenNumber // 10, 1.5

	TokenAnd // &&
	TokenOr  // ||
	TokenNot // !
	TokenCmp // == != === !== < <= > >= <>

	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
	TokenMinus  // -
)

// Token лексема с позицией в исходной строке
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of expression"
	case TokenRef:
		return "{" + t.Value + "}"
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() Token {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case c == '{':
		end := strings.IndexByte(l.input[l.pos:], '}')
		if end < 0 {
			l.pos = len(l.input)
			return Token{Type: TokenIllegal, Value: l.input[start:], Pos: start}
		}
		l.pos += end + 1
		return Token{Type: TokenRef, Value: l.input[start+1 : start+end], Pos: start}

	case c == '\'' || c == '"':
		return l.readString(c)

	case isDigit(c) || (c == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
		for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
			l.pos++
		}
		return Token{Type: TokenNumber, Value: l.input[start:l.pos], Pos: start}

	case isIdentStart(c):
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start}
	}

	for _, op := range []string{"===", "!==", "&&", "||", "==", "!=", "<>", "<=", ">="} {
		if strings.HasPrefix(l.input[l.pos:], op) {
			l.pos += len(op)
			switch op {
			case "&&":
				return Token{Type: TokenAnd, Value: op, Pos: start}
			case "||":
				return Token{Type: TokenOr, Value: op, Pos: start}
			case "<>":
				return Token{Type: TokenCmp, Value: "!=", Pos: start}
			default:
				return Token{Type: TokenCmp, Value: op, Pos: start}
			}
		}
	}

	l.pos++
	switch c {
	case '!':
		return Token{Type: TokenNot, Value: "!", Pos: start}
	case '<', '>':
		return Token{Type: TokenCmp, Value: string(c), Pos: start}
	case '(':
		return Token{Type: TokenLParen, Value: "(", Pos: start}
	case ')':
		return Token{Type: TokenRParen, Value: ")", Pos: start}
	case ',':
		return Token{Type: TokenComma, Value: ",", Pos: start}
	case '-':
		return Token{Type: TokenMinus, Value: "-", Pos: start}
	}
	return Token{Type: TokenIllegal, Value: string(c), Pos: start}
}

func (l *lexer) readString(quote byte) Token {
	start := l.pos
	l.pos++

	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.input):
			next := l.input[l.pos+1]
			// как в PHP: экранируются только кавычка и обратная косая черта,
			// остальные последовательности сохраняются для регулярных выражений
			if next == quote || next == '\\' {
				sb.WriteByte(next)
			} else {
				sb.WriteByte(c)
				sb.WriteByte(next)
			}
			l.pos += 2
		case c == quote:
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Pos: start}
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return Token{Type: TokenIllegal, Value: l.input[start:], Pos: start}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
