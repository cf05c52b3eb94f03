package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltinOnly(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	assert.NotEmpty(t, reg.Text(KeyIndicatorSystem))
	assert.NotEmpty(t, reg.Text(KeyDecisionPolicy))
	assert.Empty(t, reg.Text("no_such_key"))
}

func TestRegistryRenderReplacesPlaceholders(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	out := reg.Render(KeyIndicatorSystem, map[string]string{
		"time_frame": "15m",
		"kline_data": `[{"close": 1}]`,
	})
	assert.Contains(t, out, "15m")
	assert.Contains(t, out, `[{"close": 1}]`)
	assert.NotContains(t, out, "{{time_frame}}")
	assert.NotContains(t, out, "{{kline_data}}")
}

func TestRegistryOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "prompts:\n  " + KeyPatternImageSystem + ": \"自定义形态分析指令\"\n  unknown_key: \"会被忽略\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := NewRegistry(path)
	require.NoError(t, err)

	// 覆盖优先，未覆盖的键落回内置，未知键被丢弃
	assert.Equal(t, "自定义形态分析指令", reg.Text(KeyPatternImageSystem))
	assert.Equal(t, builtinTemplates[KeyTrendImageSystem], reg.Text(KeyTrendImageSystem))
	assert.NotContains(t, reg.Snapshot().Overrides, "unknown_key")
	assert.Equal(t, int64(1), reg.Snapshot().Version)
}

func TestRegistryRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  a: b\n"), 0o644))

	_, err := NewRegistry(path)
	require.Error(t, err)
}
