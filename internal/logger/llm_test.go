package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLLMLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	t.Cleanup(func() {
		SetLLMWriter(nil)
		EnableLLMImageDump(false)
	})
	return &buf
}

func TestLogLLMToolCallTruncatesLongResult(t *testing.T) {
	buf := captureLLMLog(t)

	long := strings.Repeat("k", llmBodyLimit+500)
	LogLLMToolCall("indicator", "compute_rsi", `{"period":14}`, long)

	out := buf.String()
	assert.Contains(t, out, "[LLM][tool][indicator][compute_rsi]")
	assert.Contains(t, out, `{"period":14}`)
	// 超长工具结果截断落盘
	assert.Contains(t, out, strings.Repeat("k", llmBodyLimit)+"...")
	assert.NotContains(t, out, strings.Repeat("k", llmBodyLimit+1))
}

func TestLogLLMRequestImagePlaceholder(t *testing.T) {
	buf := captureLLMLog(t)

	LogLLMRequest("pattern", "grounded-analysis", "system", "user", []string{"aW1hZ2U="})
	out := buf.String()
	require.Contains(t, out, "IMAGE#1")
	// 默认只记录长度，不写入 base64 载荷
	assert.Contains(t, out, "(8 bytes base64)")
	assert.NotContains(t, out, "aW1hZ2U=")
}

func TestLogLLMRequestImageDump(t *testing.T) {
	buf := captureLLMLog(t)
	EnableLLMImageDump(true)

	LogLLMRequest("pattern", "grounded-analysis", "system", "user", []string{"aW1hZ2U="})
	assert.Contains(t, buf.String(), "aW1hZ2U=")
}

func TestLogLLMNoWriterIsNoop(t *testing.T) {
	SetLLMWriter(nil)
	// 未配置转写输出时不得 panic
	LogLLMResponse("decision", "trade-decision", "ok")
}
