package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timezones.csv")
	table := "EST,Eastern Standard Time,UTC-05\nIST,Indian Standard Time,UTC+05:30\n"
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))
	t.Setenv("TIMEZONE_TABLE", path)
}

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestConvert(t *testing.T) {
	writeTable(t)

	out := execute(t, "", "convert", "--offline", "meet", "at", "-3pm EST-", "for", "-10 USD-")
	assert.Regexp(t, regexp.MustCompile(`^meet at <t:\d+:f> for -10 USD-\n$`), out)
}

func TestConvertLeadingToken(t *testing.T) {
	writeTable(t)

	out := execute(t, "", "convert", "--offline", "--", "-3pm EST-", "sharp")
	assert.Regexp(t, regexp.MustCompile(`^<t:\d+:f> sharp\n$`), out)

	out = execute(t, "", "convert", "--zone", "est", "--offline", "--", "-3pm-")
	assert.Regexp(t, regexp.MustCompile(`^<t:\d+:f>\n$`), out)
}

func TestConvertStdin(t *testing.T) {
	writeTable(t)

	out := execute(t, "-9:30 XYZ- stays\n", "convert", "--offline")
	assert.Equal(t, "-9:30 XYZ- stays\n", out)

	out = execute(t, "-9:30-\n", "convert", "--offline", "--zone", "ist")
	assert.Regexp(t, regexp.MustCompile(`^<t:\d+:f>\n$`), out)
}

func TestZones(t *testing.T) {
	writeTable(t)

	out := execute(t, "", "zones")
	assert.Equal(t, "EST  -300  UTC-05\nIST  330   UTC+05:30\n", out)
}
