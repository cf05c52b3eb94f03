package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"klinesight/internal/pkg/text"
)

// 中文说明：
// LLM 转写日志：按 agent 阶段记录每次模型请求/响应的 system/user/工具调用与原始输出，
// 与主日志分离，便于排查提示词与模型行为。
// 工具结果可能携带数KB的序列数据，超过 llmBodyLimit 的段落截断后落盘。

const llmBodyLimit = 8000

var (
	llmMu         sync.Mutex
	llmLog        *log.Logger
	llmDumpImages bool
)

func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

// EnableLLMImageDump 控制是否将图像 DataURI 全量写入转写日志（默认只写长度）。
func EnableLLMImageDump(enabled bool) {
	llmMu.Lock()
	llmDumpImages = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, stage, purpose string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	if kind != "" {
		b.WriteString("[")
		b.WriteString(kind)
		b.WriteString("]")
	}
	if stage != "" {
		b.WriteString("[")
		b.WriteString(stage)
		b.WriteString("]")
	}
	if purpose != "" {
		b.WriteString("[")
		b.WriteString(purpose)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		body := sec.Body
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

func LogLLMRequest(stage, purpose, systemPrompt, userPrompt string, images []string) {
	sections := []llmSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	llmMu.Lock()
	dump := llmDumpImages
	llmMu.Unlock()
	for i, img := range images {
		title := fmt.Sprintf("IMAGE#%d", i+1)
		body := fmt.Sprintf("(%d bytes base64)", len(img))
		if dump {
			body = img
		}
		sections = append(sections, llmSection{Title: title, Body: body})
	}
	logLLM("request", stage, purpose, sections)
}

func LogLLMToolCall(stage, toolName, args, result string) {
	sections := []llmSection{
		{Title: "ARGS", Body: text.Truncate(args, llmBodyLimit)},
		{Title: "RESULT", Body: text.Truncate(result, llmBodyLimit)},
	}
	logLLM("tool", stage, toolName, sections)
}

func LogLLMResponse(stage, purpose, raw string) {
	logLLM("response", stage, purpose, []llmSection{{Title: "RAW", Body: text.Truncate(raw, llmBodyLimit)}})
}
