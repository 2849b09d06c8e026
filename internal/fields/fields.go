package fields

import (
	"strconv"

	"go.uber.org/zap"

	"zabbix_input/internal/expr"
	"zabbix_input/internal/request"
	"zabbix_input/internal/validate"
	"zabbix_input/internal/verr"
)

// SystemFields поля, которые принимает любая страница
func SystemFields() *Table {
	sys := func(t Type, constraint expr.Node) Rule {
		return Rule{Type: t, Opt: Optional, Flags: FlagSystem, Constraint: constraint}
	}

	return NewTable().
		Add(SIDField, sys(TypeStr, expr.Hex())).
		Add("triggers_hash", sys(TypeStr, expr.NotEmptyValue())).
		Add("print", sys(TypeInt, expr.OneOf("1"))).
		Add("page", sys(TypeInt, nil)).
		Add("ddreset", sys(TypeInt, nil)).
		Add("sort", sys(TypeStr, expr.MustParse(`preg_match('/^[a-zA-Z0-9_]+$/', {})`))).
		Add("sortorder", sys(TypeStr, expr.OneOf("ASC", "DESC"))).
		Add("switch_node", sys(TypeInt, expr.ValidID()))
}

// Merge объединяет системные поля с полями страницы. При совпадении
// имен остается системное правило.
func Merge(system, page *Table) *Table {
	merged := NewTable()
	for _, name := range system.Names() {
		r, _ := system.Get(name)
		merged.Add(name, r)
	}
	for _, name := range page.Names() {
		if merged.Has(name) {
			continue
		}
		r, _ := page.Get(name)
		merged.Add(name, r)
	}
	return merged
}

// Result итог проверки запроса
type Result struct {
	Outcome  Outcome
	Messages verr.List
	// Aborted запрос очищен и передан в Aborter
	Aborted bool
}

// Valid запрос прошел проверку без ошибок и предупреждений
func (r Result) Valid() bool {
	return r.Outcome == OK
}

// Fatal есть ошибка, запрещающая дальнейшую обработку
func (r Result) Fatal() bool {
	return r.Outcome&Error != 0
}

// CheckFields проверяет запрос по таблице страницы вместе с системными полями
func (p *Pass) CheckFields(page *Table) Result {
	table := Merge(p.checker.system, page)

	outcome := OK
	for _, name := range table.Names() {
		rule, _ := table.Get(name)
		outcome |= p.CheckField(table, name, rule)
	}

	p.unsetNotInList(table)
	p.unsetIfZero(table)
	if outcome != OK {
		p.unsetAction(table)
	}

	res := Result{Outcome: outcome, Messages: p.messages.List()}
	if outcome&Error == 0 {
		return res
	}

	p.checker.logger.Warn("Incorrect request",
		zap.Int("messages", len(res.Messages)),
		zap.Stringer("outcome", outcome))

	p.req.Clear()
	if p.aborter != nil {
		p.aborter.Abort(p.printer.Sprintf(MsgIncorrectRequest), res.Messages)
	}
	res.Aborted = true
	return res
}

// CheckFields проверяет запрос за один проход
func (c *Checker) CheckFields(req *request.Request, page *Table, opts ...PassOption) Result {
	return c.NewPass(req, opts...).CheckFields(page)
}

func (p *Pass) unsetNotInList(table *Table) {
	for _, key := range p.req.Keys() {
		if !table.Has(key) {
			p.checker.logger.Debug("Unknown field removed", zap.String("field", key))
			p.req.Delete(key)
		}
	}
}

func (p *Pass) unsetIfZero(table *Table) {
	for _, name := range table.Names() {
		rule, _ := table.Get(name)
		if !rule.Flags.Has(FlagNonZero) {
			continue
		}
		v, ok := p.req.Get(name)
		if !ok || v.IsArray() || !validate.Numeric(v.Str()) {
			continue
		}
		if f, err := strconv.ParseFloat(v.Str(), 64); err == nil && f == 0 {
			p.req.Delete(name)
		}
	}
}

func (p *Pass) unsetAction(table *Table) {
	for _, name := range table.Names() {
		rule, _ := table.Get(name)
		if rule.Flags.Has(FlagAction) {
			p.req.Delete(name)
		}
	}
}
