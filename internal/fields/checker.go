package fields

import (
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/message"

	"zabbix_input/internal/expr"
	"zabbix_input/internal/request"
	"zabbix_input/internal/validate"
	"zabbix_input/internal/verr"
)

var (
	dblValidator    = validate.DecimalValidator{MaxPrecision: 16, MaxScale: 4}
	dblBigValidator = validate.DecimalValidator{MaxScale: 4}
)

// Aborter рендерит страницу фатальной ошибки и прекращает обработку запроса
type Aborter interface {
	Abort(msg string, messages verr.List)
}

// AborterFunc функция-адаптер для Aborter
type AborterFunc func(msg string, messages verr.List)

// Abort реализует Aborter
func (f AborterFunc) Abort(msg string, messages verr.List) {
	f(msg, messages)
}

// Checker проверяет поля запросов. Не хранит состояние запроса и может
// использоваться из нескольких горутин.
type Checker struct {
	logger    *zap.Logger
	allowIPv6 bool
	lang      string
	system    *Table
}

// Option настройка Checker
type Option func(*Checker)

// WithIPv6 разрешает IPv6 адреса в полях типа IP и IP range
func WithIPv6(allow bool) Option {
	return func(c *Checker) {
		c.allowIPv6 = allow
	}
}

// WithLanguage задает язык сообщений по умолчанию
func WithLanguage(lang string) Option {
	return func(c *Checker) {
		c.lang = lang
	}
}

// NewChecker создает проверяющий с системными полями по умолчанию
func NewChecker(logger *zap.Logger, opts ...Option) *Checker {
	c := &Checker{
		logger: logger,
		lang:   "en_GB",
		system: SystemFields(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pass состояние одного прохода проверки запроса
type Pass struct {
	checker  *Checker
	req      *request.Request
	printer  *message.Printer
	tokens   TokenVerifier
	aborter  Aborter
	sink     MessageSink
	messages MessageList
}

// PassOption настройка прохода
type PassOption func(*Pass)

// WithTokens задает проверку CSRF токена
func WithTokens(v TokenVerifier) PassOption {
	return func(p *Pass) {
		p.tokens = v
	}
}

// WithAborter задает обработчик фатальной ошибки
func WithAborter(a Aborter) PassOption {
	return func(p *Pass) {
		p.aborter = a
	}
}

// WithSink дублирует сообщения во внешний получатель
func WithSink(s MessageSink) PassOption {
	return func(p *Pass) {
		p.sink = s
	}
}

// WithPassLanguage переопределяет язык сообщений для запроса
func WithPassLanguage(lang string) PassOption {
	return func(p *Pass) {
		p.printer = NewPrinter(lang)
	}
}

// NewPass начинает проверку запроса req; запрос изменяется на месте
func (c *Checker) NewPass(req *request.Request, opts ...PassOption) *Pass {
	p := &Pass{
		checker: c,
		req:     req,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.printer == nil {
		p.printer = NewPrinter(c.lang)
	}
	return p
}

// Messages сообщения, накопленные проходом
func (p *Pass) Messages() verr.List {
	return p.messages.List()
}

func (p *Pass) report(field string, outcome Outcome, key string, args ...any) {
	sev := verr.SeverityWarning
	if outcome&Error != 0 {
		sev = verr.SeverityError
	}
	e := &verr.FieldError{Field: field, Message: p.printer.Sprintf(key, args...), Severity: sev}

	p.messages.Report(e)
	if p.sink != nil {
		p.sink.Report(e)
	}
	p.checker.logger.Debug("Field check failed",
		zap.String("field", field),
		zap.Stringer("severity", sev),
		zap.String("message", e.Message))
}

func severity(flags Flag) Outcome {
	if flags.Has(FlagSystem) {
		return Error
	}
	return Warning
}

// CheckField проверяет одно поле по правилу rule. table нужна для
// подстановки {name} в выражениях.
func (p *Pass) CheckField(table *Table, name string, rule Rule) Outcome {
	caption := rule.Caption
	if caption == "" {
		caption = name
	}

	if rule.Flags.Has(FlagUnsetEmpty) {
		if v, ok := p.req.Get(name); ok && !v.IsArray() && v.Str() == "" {
			p.req.Delete(name)
		}
	}

	env := &expr.RequestEnv{Request: p.req, Known: table.Has, Field: name}

	except := false
	if rule.Exception != nil {
		except = expr.EvalField(rule.Exception, env, name)
	}

	opt := rule.Opt
	if except {
		opt = opt.Flip()
	}

	switch opt {
	case Mandatory:
		if !p.req.Has(name) {
			out := severity(rule.Flags)
			p.report(name, out, msgMandatory, caption)
			return out
		}
	case Forbidden:
		if !p.req.Has(name) {
			return OK
		}
		p.req.Delete(name)
		out := severity(rule.Flags)
		p.report(name, out, msgMustBeMissing, caption)
		return out
	case Optional:
		if !p.req.Has(name) {
			return OK
		}
	}

	if rule.Flags.Has(FlagAction) {
		if p.tokens == nil || !p.tokens.VerifyToken(p.req) {
			p.report(name, Error, msgUnauthorized)
			return Error
		}
	}

	if !rule.Flags.Has(FlagNoTrim) {
		v, _ := p.req.Get(name)
		p.req.Set(name, request.Trim(v))
	}

	v, _ := p.req.Get(name)
	if out := p.checkType(name, rule, caption, v); out != OK {
		return out
	}

	if rule.Constraint != nil && (rule.Exception == nil || except) && !expr.EvalField(rule.Constraint, env, name) {
		out := severity(rule.Flags)
		shown := displayValue(v)

		if _, ok := rule.Constraint.(*expr.NotEmpty); ok {
			p.report(name, out, msgEmpty, caption)
		} else if b, ok := expr.FindBetween(rule.Constraint); ok {
			p.report(name, out, msgBetween, shown, caption,
				strconv.FormatInt(b.Min, 10), strconv.FormatInt(b.Max, 10))
		} else {
			p.report(name, out, msgIncorrect, shown, caption)
		}
		return out
	}

	return OK
}

// checkType проверяет тип значения; массивы проверяются поэлементно,
// кроме типа IP, для которого массив недопустим
func (p *Pass) checkType(name string, rule Rule, caption string, v request.Value) Outcome {
	if v.IsArray() && rule.Type != TypeIP {
		out := OK
		for _, e := range v.Entries() {
			out |= p.checkType(name, rule, caption, e.Value)
		}
		return out
	}

	allowIPv6 := p.checker.allowIPv6
	s := v.Str()
	fail := func(key string, args ...any) Outcome {
		out := severity(rule.Flags)
		p.report(name, out, key, args...)
		return out
	}

	switch rule.Type {
	case TypeIP:
		if v.IsArray() || !validate.IP(s, allowIPv6) {
			return fail(msgNotIP, caption)
		}
	case TypeIPRange:
		if !validate.IPRangeList(s, allowIPv6) {
			return fail(msgNotIPRange, caption)
		}
	case TypeIntRange:
		if !validate.IntRangeList(s) {
			return fail(msgNotIntRange, caption)
		}
	case TypeInt:
		if !validate.Int(s) {
			return fail(msgNotInt, caption)
		}
	case TypeDbl, TypeDblBig:
		dv := dblValidator
		if rule.Type == TypeDblBig {
			dv = dblBigValidator
		}
		if err := dv.Validate(s); err != nil {
			var derr *validate.DecimalError
			if !errors.As(err, &derr) {
				return fail(msgDecimalFormat, s, caption)
			}
			switch derr.Kind {
			case validate.DecimalNatural:
				return fail(msgDecimalNatural, s, caption, strconv.Itoa(derr.Limit))
			case validate.DecimalScale:
				return fail(msgDecimalScale, s, caption, strconv.Itoa(derr.Limit))
			default:
				return fail(msgDecimalFormat, s, caption)
			}
		}
	case TypeDblStr:
		if !validate.Numeric(s) {
			return fail(msgNotDecimal, caption)
		}
	case TypeColor:
		if !validate.Color(s) {
			return fail(msgBadColor, s)
		}
	case TypePortList:
		if !validate.PortList(s) {
			return fail(msgNotPortList, caption)
		}
	}

	return OK
}

func displayValue(v request.Value) string {
	if v.IsArray() {
		return "Array"
	}
	return v.Str()
}
