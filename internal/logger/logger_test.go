package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetVerbose(false)

	Debug("hidden %d", 1)
	Info("hidden")
	Warn("hidden")

	assert.Empty(t, buf.String())
}

func TestVerboseOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	defer SetVerbose(false)

	Debug("value=%d", 42)
	Info("loaded")
	Warn("careful")
	Section("Retrieval")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] value=42")
	assert.Contains(t, out, "[INFO] loaded")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "=== Retrieval ===")
	assert.True(t, IsVerbose())
}
