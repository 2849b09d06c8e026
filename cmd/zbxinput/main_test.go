package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zabbix_input/internal/api"
	"zabbix_input/internal/fields"
)

const testSession = "0123456789abcdef0123456789abcdef"

func TestParseArgs(t *testing.T) {
	values, err := parseArgs([]string{"host=web01", "groups[]=4", "groups[]=5", "name=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "web01", values.Get("host"))
	assert.Equal(t, []string{"4", "5"}, values["groups[]"])
	assert.Equal(t, "a=b", values.Get("name"))

	_, err = parseArgs([]string{"host"})
	assert.ErrorContains(t, err, "expected name=value")
}

func TestCheckPage(t *testing.T) {
	pages, err := loadPages("")
	require.NoError(t, err)
	checker := fields.NewChecker(zap.NewNop())

	values, err := parseArgs([]string{"host= web01 ", "port=10050", "save=1", "sid=0123456789abcdef"})
	require.NoError(t, err)

	res, err := checkPage(checker, pages, "hosts", values, testSession)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "web01", res.Fields["host"])
	assert.Contains(t, res.Fields, "save")

	values, err = parseArgs([]string{"port=70000", "save=1", "sid=0123456789abcdef"})
	require.NoError(t, err)

	res, err = checkPage(checker, pages, "hosts", values, testSession)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.Aborted)
	assert.Len(t, res.Messages, 2)
	assert.NotContains(t, res.Fields, "save")

	_, err = checkPage(checker, pages, "nope", values, "")
	assert.ErrorContains(t, err, `unknown page "nope"`)
}

func TestCheckPageWithoutSession(t *testing.T) {
	pages, err := loadPages("")
	require.NoError(t, err)

	values, err := parseArgs([]string{"host=web01", "save=1"})
	require.NoError(t, err)

	res, err := checkPage(fields.NewChecker(zap.NewNop()), pages, "hosts", values, "")
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Empty(t, res.Fields)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, api.Version, strings.TrimSpace(out.String()))
}
