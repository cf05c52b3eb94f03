package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"klinesight/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 中文说明：
// 提示词注册表：内置模板 + 可选 YAML 覆盖文件，覆盖文件支持热更新。
// 未配置覆盖文件时直接返回内置模板。

// FileConfig 映射 prompts 覆盖文件。
type FileConfig struct {
	Prompts map[string]string `mapstructure:"prompts" yaml:"prompts"`
}

// Snapshot 当前生效的覆盖集。
type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Overrides map[string]string
}

// Registry 管理提示词模板。
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 创建注册表。path 为空时仅使用内置模板。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompt config failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("prompt reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Text 返回模板内容，覆盖优先于内置。未知键返回空串。
func (r *Registry) Text(key string) string {
	if r != nil {
		r.mu.RLock()
		if text, ok := r.snapshot.Overrides[key]; ok {
			r.mu.RUnlock()
			return text
		}
		r.mu.RUnlock()
	}
	return builtinTemplates[key]
}

// Render 渲染模板，占位符形如 {{name}}。
func (r *Registry) Render(key string, vars map[string]string) string {
	text := r.Text(key)
	for name, value := range vars {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}

// Snapshot 返回当前覆盖集快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dst := Snapshot{
		Version:   r.snapshot.Version,
		LoadedAt:  r.snapshot.LoadedAt,
		Overrides: make(map[string]string, len(r.snapshot.Overrides)),
	}
	for k, v := range r.snapshot.Overrides {
		dst.Overrides[k] = v
	}
	return dst
}

func (r *Registry) reload() error {
	cfg, err := readPromptFile(r.path)
	if err != nil {
		return err
	}
	overrides := make(map[string]string, len(cfg.Prompts))
	for key, text := range cfg.Prompts {
		key = strings.TrimSpace(key)
		if key == "" || strings.TrimSpace(text) == "" {
			continue
		}
		if _, ok := builtinTemplates[key]; !ok {
			logger.Warnf("prompt override ignores unknown key: %s", key)
			continue
		}
		overrides[key] = text
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Overrides: overrides,
	}
	r.mu.Unlock()
	logger.Infof("Prompt registry loaded %d overrides from %s", len(overrides), filepath.Base(r.path))
	return nil
}

func readPromptFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read prompt config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse prompt config failed: %w", err)
	}
	return cfg, nil
}
