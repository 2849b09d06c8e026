package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError ошибка разбора шаблона выражения
type ParseError struct {
	Input   string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expression %q at %d: %s", e.Input, e.Pos, e.Message)
}

type parser struct {
	lex     *lexer
	input   string
	current Token
}

// Parse разбирает шаблон выражения. Завершающие "&&" и пробелы
// отбрасываются, поэтому шаблоны можно склеивать: NOT_EMPTY + BETWEEN.
func Parse(template string) (Node, error) {
	input := strings.Trim(template, "& ")
	if input == "" {
		return nil, &ParseError{Input: template, Message: "empty expression"}
	}

	p := &parser{lex: &lexer{input: input}, input: input}
	p.advance()

	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.errorf("unexpected %s", p.current)
	}
	return n, nil
}

// MustParse как Parse, но паникует: шаблоны пишутся разработчиком
func MustParse(template string) Node {
	n, err := Parse(template)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) advance() {
	p.current = p.lex.next()
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Input: p.input, Pos: p.current.Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(t TokenType, what string) error {
	if p.current.Type != t {
		return p.errorf("expected %s, got %s", what, p.current)
	}
	p.advance()
	return nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenAnd {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = foldBetween(&And{Left: left, Right: right})
	}

	return left, nil
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	if p.current.Type == TokenCmp {
		op := p.current.Value
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return foldNotEmpty(&Compare{Op: op, Left: left, Right: right}), nil
	}

	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.current.Type == TokenNot {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.current

	switch tok.Type {
	case TokenLParen:
		p.advance()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return n, nil

	case TokenRef:
		p.advance()
		if tok.Value == "" {
			return &Current{}, nil
		}
		return &FieldRef{Name: tok.Value}, nil

	case TokenString:
		p.advance()
		return &Literal{Text: tok.Value}, nil

	case TokenNumber:
		p.advance()
		return &Literal{Text: tok.Value, Numeric: true}, nil

	case TokenMinus:
		p.advance()
		if p.current.Type != TokenNumber {
			return nil, p.errorf("expected number after '-', got %s", p.current)
		}
		n := &Literal{Text: "-" + p.current.Value, Numeric: true}
		p.advance()
		return n, nil

	case TokenIdent:
		p.advance()
		return p.parseIdent(tok)
	}

	return nil, p.errorf("unexpected %s", tok)
}

func (p *parser) parseIdent(tok Token) (Node, error) {
	switch strings.ToLower(tok.Value) {
	case "true":
		return &Literal{Text: "1", Numeric: true}, nil
	case "false", "null":
		return &Literal{Text: ""}, nil
	}

	if p.current.Type != TokenLParen {
		return nil, &ParseError{Input: p.input, Pos: tok.Pos, Message: fmt.Sprintf("unknown identifier %q", tok.Value)}
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}

	fail := func(msg string) error {
		return &ParseError{Input: p.input, Pos: tok.Pos, Message: tok.Value + ": " + msg}
	}

	switch strings.ToLower(tok.Value) {
	case "isset":
		if len(args) != 1 || !isRef(args[0]) {
			return nil, fail("expects one field reference")
		}
		return &Isset{Arg: args[0]}, nil

	case "str_in_array", "in_array":
		if len(args) != 2 {
			return nil, fail("expects value and array")
		}
		list, ok := args[1].(*arrayNode)
		if !ok {
			return nil, fail("second argument must be array(...)")
		}
		return &InList{Arg: args[0], Items: list.items}, nil

	case "preg_match":
		if len(args) != 2 {
			return nil, fail("expects pattern and value")
		}
		lit, ok := args[0].(*Literal)
		if !ok || lit.Numeric {
			return nil, fail("pattern must be a string")
		}
		re, source, err := compilePattern(lit.Text)
		if err != nil {
			return nil, fail(err.Error())
		}
		return &Match{Pattern: re, Source: source, Arg: args[1]}, nil

	case "db_id":
		if len(args) != 1 {
			return nil, fail("expects one argument")
		}
		return &DBID{Arg: args[0]}, nil

	case "unix_time":
		if len(args) != 1 {
			return nil, fail("expects one argument")
		}
		return &UnixTime{Arg: args[0]}, nil

	case "array":
		return &arrayNode{items: args}, nil
	}

	return nil, fail("unknown function")
}

func (p *parser) parseArgs() ([]Node, error) {
	if err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}

	var args []Node
	for p.current.Type != TokenRParen {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current.Type == TokenComma {
			p.advance()
			continue
		}
		if p.current.Type != TokenRParen {
			return nil, p.errorf("expected ',' or ')', got %s", p.current)
		}
	}
	p.advance()

	return args, nil
}

// arrayNode существует только во время разбора аргументов str_in_array
type arrayNode struct {
	items []Node
}

func (n *arrayNode) value(Env) operand { return operand{kind: opNull} }
func (n *arrayNode) children() []Node  { return n.items }
func (n *arrayNode) String() string    { return "array(...)" }

func isRef(n Node) bool {
	switch n.(type) {
	case *FieldRef, *Current:
		return true
	}
	return false
}

// compilePattern снимает ограничители /.../flags
func compilePattern(p string) (*regexp.Regexp, string, error) {
	if len(p) < 2 {
		return nil, "", fmt.Errorf("pattern %q has no delimiters", p)
	}
	delim := p[0]
	end := strings.LastIndexByte(p, delim)
	if end <= 0 {
		return nil, "", fmt.Errorf("pattern %q has no closing delimiter", p)
	}

	source := p[1:end]
	full := source
	for _, flag := range p[end+1:] {
		switch flag {
		case 'i', 's', 'm':
			full = "(?" + string(flag) + ")" + full
		case 'u', 'D':
		default:
			return nil, "", fmt.Errorf("unsupported pattern flag %q", flag)
		}
	}

	re, err := regexp.Compile(full)
	if err != nil {
		return nil, "", err
	}
	return re, source, nil
}

// foldBetween превращает ({x}>=a&&{x}<=b) в узел Between
func foldBetween(n *And) Node {
	lo, ok1 := n.Left.(*Compare)
	hi, ok2 := n.Right.(*Compare)
	if !ok1 || !ok2 || lo.Op != ">=" || hi.Op != "<=" {
		return n
	}
	if !isRef(lo.Left) || lo.Left.String() != hi.Left.String() {
		return n
	}
	min, ok1 := intLiteral(lo.Right)
	max, ok2 := intLiteral(hi.Right)
	if !ok1 || !ok2 {
		return n
	}
	return &Between{Arg: lo.Left, Min: min, Max: max}
}

// foldNotEmpty превращает {x}!='' в узел NotEmpty
func foldNotEmpty(n *Compare) Node {
	if n.Op != "!=" || !isRef(n.Left) {
		return n
	}
	if lit, ok := n.Right.(*Literal); ok && !lit.Numeric && lit.Text == "" {
		return &NotEmpty{Arg: n.Left}
	}
	return n
}

func intLiteral(n Node) (int64, bool) {
	lit, ok := n.(*Literal)
	if !ok || !lit.Numeric {
		return 0, false
	}
	v, err := strconv.ParseInt(lit.Text, 10, 64)
	return v, err == nil
}
