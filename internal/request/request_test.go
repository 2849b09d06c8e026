package request

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValuesBrackets(t *testing.T) {
	values := url.Values{
		"host":           {"srv1"},
		"groupids[]":     {"2", "4"},
		"tags[0][tag]":   {"env"},
		"tags[0][value]": {"prod"},
		"macros[{$A}]":   {"1"},
		"broken[":        {"x"},
		"[nameless]":     {"y"},
	}

	r := FromValues(values)

	host, ok := r.Get("host")
	require.True(t, ok)
	assert.Equal(t, "srv1", host.Str())

	groups, ok := r.Get("groupids")
	require.True(t, ok)
	require.True(t, groups.IsArray())
	assert.True(t, groups.Equal(List("2", "4")))

	tags, ok := r.Get("tags")
	require.True(t, ok)
	first, ok := tags.Get("0")
	require.True(t, ok)
	tag, ok := first.Get("tag")
	require.True(t, ok)
	assert.Equal(t, "env", tag.Str())
	val, _ := first.Get("value")
	assert.Equal(t, "prod", val.Str())

	macros, ok := r.Get("macros")
	require.True(t, ok)
	m, ok := macros.Get("{$A}")
	require.True(t, ok)
	assert.Equal(t, "1", m.Str())

	assert.True(t, r.Has("broken["))
	assert.False(t, r.Has(""))
}

func TestFromFormPostWins(t *testing.T) {
	query := url.Values{"name": {"fromquery"}, "form": {"update"}, "groupids[]": {"1", "2"}}
	post := url.Values{"name": {"frompost"}, "groupids[]": {"3"}}

	r := FromForm(query, post)

	name, _ := r.Get("name")
	assert.Equal(t, "frompost", name.Str())

	form, ok := r.Get("form")
	require.True(t, ok)
	assert.Equal(t, "update", form.Str())

	groups, _ := r.Get("groupids")
	assert.True(t, groups.Equal(List("3")), "array from the form replaces the whole query array")
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want Value
	}{
		{"scalar", String("  srv1 \t\n"), String("srv1")},
		{"nul and vertical tab", String("\x00a\x0B"), String("a")},
		{"nested", Array(Entry{Key: "a", Value: List(" x ", "y ")}), Array(Entry{Key: "a", Value: List("x", "y")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trim(tt.in)
			assert.True(t, got.Equal(tt.want), "Trim() = %#v, want %#v", got, tt.want)
			assert.True(t, Trim(got).Equal(got), "trim must be idempotent")
		})
	}
}

func TestRequestCloneIsIndependent(t *testing.T) {
	r := New()
	r.Set("ids", List("1", "2"))

	c := r.Clone()
	v, _ := c.Get("ids")
	v.Set("0", String("9"))
	c.Set("ids", v)

	orig, _ := r.Get("ids")
	first, _ := orig.Get("0")
	assert.Equal(t, "1", first.Str())
	assert.Equal(t, []string{"ids"}, r.Keys())
}

func TestValueAppendUsesNextNumericKey(t *testing.T) {
	v := Array(Entry{Key: "5", Value: String("a")}, Entry{Key: "x", Value: String("b")})
	v.Append(String("c"))

	got, ok := v.Get("6")
	require.True(t, ok)
	assert.Equal(t, "c", got.Str())
}
