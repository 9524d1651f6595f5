package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func TestSetLevelFiltersDebug(t *testing.T) {
	buf := captureOutput(t)

	SetLevel("info")
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	SetLevel("debug")
	Debugf("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetLevelAliasesAndFallback(t *testing.T) {
	buf := captureOutput(t)

	SetLevel("warning")
	Infof("filtered")
	Warnf("kept")
	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "kept")

	// A typo must not silence the log.
	SetLevel("verbos")
	buf.Reset()
	Infof("back to info")
	assert.Contains(t, buf.String(), "back to info")
}

func TestInfoBlockSplitsLines(t *testing.T) {
	buf := captureOutput(t)

	InfoBlock("first\n\nsecond\n")
	lines := strings.Count(buf.String(), "\n")
	assert.Equal(t, 2, lines)
	assert.Contains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "second")
}
