package llm

import "strings"

// 中文说明：
// 会话消息模型。转写（transcript）是只追加的有序消息序列，
// 各 agent 在自己的循环里扩展副本，不就地修改共享切片。

type Role string

const (
	RoleSystem    Role = "system"
	RoleHuman     Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall 模型发起的一次工具调用请求。
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
	// RawArgs 保留模型原始参数文本，便于转写日志。
	RawArgs string `json:"raw_args,omitempty"`
}

// ContentPart 多模态消息片段：text 或 image_url。
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Message 单条会话消息。Content 与 Parts 二选一；带图消息用 Parts。
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// HumanImageMessage 文本 + base64 PNG 图像的多模态人类消息。
func HumanImageMessage(text, imageBase64 string) Message {
	return Message{
		Role: RoleHuman,
		Parts: []ContentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: "data:image/png;base64," + imageBase64},
		},
	}
}

func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// HasToolCalls 报告消息是否携带工具调用请求。
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Text 返回消息的纯文本内容（多模态消息拼接 text 片段）。
func (m Message) Text() string {
	if m.Content != "" {
		return m.Content
	}
	if len(m.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == "text" && p.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Images 返回消息携带的全部图像 DataURI。
func (m Message) Images() []string {
	var out []string
	for _, p := range m.Parts {
		if p.Type == "image_url" && p.ImageURL != "" {
			out = append(out, p.ImageURL)
		}
	}
	return out
}
