package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zabbix_input/internal/request"
)

func env(fields map[string]request.Value, current string) *RequestEnv {
	r := request.New()
	for k, v := range fields {
		r.Set(k, v)
	}
	return &RequestEnv{Request: r, Field: current}
}

func TestParseAndEval(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		fields map[string]request.Value
		field  string
		want   bool
	}{
		{"isset present", "isset({save})", map[string]request.Value{"save": request.String("1")}, "", true},
		{"isset absent", "isset({save})", nil, "", false},
		{"negated isset", "!isset({save})", nil, "", true},
		{"equality numeric", "{type}==1", map[string]request.Value{"type": request.String("1")}, "", true},
		{"equality numeric string forms", "{type}==1", map[string]request.Value{"type": request.String("1.0")}, "", true},
		{"inequality", "{type}!=1", map[string]request.Value{"type": request.String("2")}, "", true},
		{"and or precedence", "isset({a})||isset({b})&&isset({c})", map[string]request.Value{"a": request.String("x")}, "", true},
		{"parentheses", "(isset({a})||isset({b}))&&isset({c})", map[string]request.Value{"a": request.String("x")}, "", false},
		{"trailing and", "({}!='')&&", map[string]request.Value{"host": request.String("a")}, "host", true},
		{"not empty fails", "({}!='')&&", map[string]request.Value{"host": request.String("")}, "host", false},
		{"zero is not empty", "({}!='')&&", map[string]request.Value{"host": request.String("0")}, "host", true},
		{"between", "({}>=0&&{}<=999)&&", map[string]request.Value{"n": request.String("999")}, "n", true},
		{"between above", "({}>=0&&{}<=999)&&", map[string]request.Value{"n": request.String("1000")}, "n", false},
		{"between non numeric", "({}>=0&&{}<=999)&&", map[string]request.Value{"n": request.String("abc")}, "n", false},
		{"in list", "str_in_array({},array(0,1,2))&&", map[string]request.Value{"s": request.String("2")}, "s", true},
		{"not in list", "str_in_array({},array(0,1,2))&&", map[string]request.Value{"s": request.String("3")}, "s", false},
		{"in list strings", `str_in_array({},array("ASC","DESC"))`, map[string]request.Value{"s": request.String("DESC")}, "s", true},
		{"preg match", `preg_match("/^([a-zA-Z0-9]+)$/",{})&&`, map[string]request.Value{"sid": request.String("ab12")}, "sid", true},
		{"preg match fails", `preg_match("/^([a-zA-Z0-9]+)$/",{})&&`, map[string]request.Value{"sid": request.String("ab-12")}, "sid", false},
		{"case insensitive flag", `preg_match("/^abc$/i",{})`, map[string]request.Value{"s": request.String("ABC")}, "s", true},
		{"db id max", "db_id({})", map[string]request.Value{"id": request.String(MaxDBID)}, "id", true},
		{"db id overflow", "db_id({})", map[string]request.Value{"id": request.String("9223372036854775808")}, "id", false},
		{"unix time", "unix_time({})", map[string]request.Value{"t": request.String("2147464800")}, "t", true},
		{"unix time zero", "unix_time({})", map[string]request.Value{"t": request.String("0")}, "t", false},
		{"unix time past cutoff", "unix_time({})", map[string]request.Value{"t": request.String("2147464801")}, "t", false},
		{"negative literal", "{}>-1", map[string]request.Value{"n": request.String("0")}, "n", true},
		{"current absent", "({}!='')", nil, "host", false},
		{"array all pass", "({}>=1&&{}<=5)", map[string]request.Value{"ids": request.List("1", "5")}, "ids", true},
		{"array one fails", "({}>=1&&{}<=5)", map[string]request.Value{"ids": request.List("1", "6")}, "ids", false},
		{"array bad key", "({}!='')", map[string]request.Value{"ids": request.Array(request.Entry{Key: "a-b", Value: request.String("1")})}, "ids", false},
		{"empty array", "({}!='')", map[string]request.Value{"ids": request.Array()}, "ids", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, EvalField(n, env(tt.fields, tt.field), tt.field))
		})
	}
}

func TestParseFoldsLegacyMacros(t *testing.T) {
	n := MustParse("({}>=1&&{}<=65535)&&")
	b, ok := n.(*Between)
	require.True(t, ok, "got %T", n)
	assert.Equal(t, int64(1), b.Min)
	assert.Equal(t, int64(65535), b.Max)

	_, ok = MustParse("({}!='')&&").(*NotEmpty)
	assert.True(t, ok)

	b, ok = FindBetween(MustParse("({}!='')&&({}>=0&&{}<=10)&&"))
	require.True(t, ok)
	assert.Equal(t, int64(10), b.Max)
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "&&", "isset(", "{a}==", "unknown({a})", "isset('x')", "preg_match('abc',{})", "{a} {b}", "str_in_array({},1)"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "Parse(%q) error = %v", src, err)
		})
	}
	assert.Panics(t, func() { MustParse("((") })
}

func TestKnownRestrictsFieldRefs(t *testing.T) {
	r := request.New()
	r.Set("save", request.String("1"))

	e := &RequestEnv{Request: r, Known: func(name string) bool { return name != "save" }}
	assert.False(t, Eval(IsSet("save"), e))
}

func TestBuilders(t *testing.T) {
	e := env(map[string]request.Value{
		"sortorder": request.String("ASC"),
		"type":      request.String("2"),
	}, "sortorder")

	assert.True(t, EvalField(OneOf("ASC", "DESC"), e, "sortorder"))
	assert.True(t, Eval(All(IsSet("type"), Equals("type", "2")), e))
	assert.False(t, Eval(All(IsSet("type"), Negate(Equals("type", "2"))), e))
	assert.True(t, Eval(Any(IsSet("nope"), IsSet("type")), e))
	assert.Nil(t, All())
	assert.True(t, EvalField(Hex(), env(map[string]request.Value{"sid": request.String("AbC9")}, "sid"), "sid"))
	assert.False(t, EvalField(NotZero(), env(map[string]request.Value{"n": request.String("0")}, "n"), "n"))
	assert.True(t, EvalField(ValidID(), env(map[string]request.Value{"n": request.String("10")}, "n"), "n"))
	assert.True(t, EvalField(ValidUnixTime(), env(map[string]request.Value{"n": request.String("1700000000")}, "n"), "n"))
	assert.True(t, UsesCurrent(InRange(0, 1)))
	assert.False(t, UsesCurrent(IsSet("x")))
}
