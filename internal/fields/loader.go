package fields

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"zabbix_input/internal/expr"
)

//go:embed pages.yaml
var defaultPages []byte

// DefaultPages таблицы страниц, встроенные в бинарный файл
func DefaultPages() (map[string]*Table, error) {
	return ParseTables(defaultPages)
}

// LoadTables читает таблицы страниц из YAML файла
func LoadTables(path string) (map[string]*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	tables, err := ParseTables(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return tables, nil
}

// ParseTables разбирает документ вида
//
//	pages:
//	  hostgroups:
//	    name: [str, O_OPT, null, "({}!='')&&", "isset({save})", Group name]
//
// Порядок полей в странице сохраняется.
func ParseTables(data []byte) (map[string]*Table, error) {
	var doc struct {
		Pages yaml.Node `yaml:"pages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if doc.Pages.Kind == 0 {
		return map[string]*Table{}, nil
	}
	if doc.Pages.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: pages must be a mapping", doc.Pages.Line)
	}

	tables := make(map[string]*Table, len(doc.Pages.Content)/2)
	for i := 0; i+1 < len(doc.Pages.Content); i += 2 {
		page := doc.Pages.Content[i].Value
		body := doc.Pages.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: page %q must be a mapping", body.Line, page)
		}

		table := NewTable()
		for j := 0; j+1 < len(body.Content); j += 2 {
			name := body.Content[j].Value
			rule, err := parseRule(body.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("page %q field %q: %w", page, name, err)
			}
			table.Add(name, rule)
		}
		tables[page] = table
	}

	return tables, nil
}

func parseRule(n *yaml.Node) (Rule, error) {
	var tuple []*string
	if err := n.Decode(&tuple); err != nil {
		return Rule{}, fmt.Errorf("line %d: rule must be a sequence: %w", n.Line, err)
	}
	if len(tuple) < 2 || len(tuple) > 6 {
		return Rule{}, fmt.Errorf("line %d: rule must have 2 to 6 elements, got %d", n.Line, len(tuple))
	}
	for len(tuple) < 6 {
		tuple = append(tuple, nil)
	}

	str := func(i int) string {
		if tuple[i] == nil {
			return ""
		}
		return *tuple[i]
	}

	var (
		r   Rule
		err error
	)
	if r.Type, err = ParseType(str(0)); err != nil {
		return Rule{}, err
	}
	if r.Opt, err = ParseOptionality(str(1)); err != nil {
		return Rule{}, err
	}
	if r.Flags, err = ParseFlags(str(2)); err != nil {
		return Rule{}, err
	}
	if r.Constraint, err = parseExpr(str(3)); err != nil {
		return Rule{}, fmt.Errorf("constraint: %w", err)
	}
	if r.Exception, err = parseExpr(str(4)); err != nil {
		return Rule{}, fmt.Errorf("exception: %w", err)
	}
	r.Caption = str(5)

	return r, nil
}

func parseExpr(s string) (expr.Node, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	return expr.Parse(s)
}
