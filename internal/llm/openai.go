package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// 中文说明：
// OpenAIChatClient：兼容 OpenAI / DeepSeek / Qwen 的聊天补全接口（/v1/chat/completions），
// 支持 function tool 调用与多模态（image_url）输入。
// 客户端自身不重试：429/5xx 被归类为 RateLimitError 交由上层重试层处理。

type OpenAIChatClient struct {
	ClientID     string
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	Timeout      time.Duration
	ExtraHeaders map[string]string
}

var _ ChatModel = (*OpenAIChatClient)(nil)

func (c *OpenAIChatClient) ID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return c.Model
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

func (c *OpenAIChatClient) Invoke(ctx context.Context, req Request) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	url := c.endpoint()

	body := map[string]any{
		"model":    c.Model,
		"messages": encodeMessages(req.Messages),
	}
	if c.Temperature > 0 {
		body["temperature"] = c.Temperature
	}
	if len(req.Tools) > 0 {
		body["tools"] = encodeTools(req.Tools)
	}
	b, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	httpc := &http.Client{Timeout: timeout}
	resp, err := httpc.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Response{}, c.decodeError(resp)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content   json.RawMessage `json:"content"`
				ToolCalls []wireToolCall  `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Response{}, err
	}
	if len(r.Choices) == 0 {
		return Response{}, fmt.Errorf("模型 %s 返回空 choices", c.ID())
	}
	msg := r.Choices[0].Message
	out := Response{Content: decodeContent(msg.Content)}
	for _, tc := range msg.ToolCalls {
		call := ToolCall{ID: tc.ID, Name: tc.Function.Name, RawArgs: tc.Function.Arguments}
		args := map[string]any{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			// 模型可能输出坏 JSON 参数；保留 RawArgs，坏参数交给网关报错
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		call.Args = args
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// 配置里误带完整路径时去重
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) decodeError(resp *http.Response) error {
	var eresp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&eresp)
	msg := strings.TrimSpace(eresp.Error.Message)
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		wait := time.Duration(0)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{StatusCode: resp.StatusCode, Message: msg, RetryAfter: wait}
	}
	return fmt.Errorf("模型 %s 请求失败 status=%d: %s", c.ID(), resp.StatusCode, msg)
}

func encodeMessages(msgs []Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := wireMessage{Role: string(m.Role), ToolCallID: m.ToolCallID}
		if len(m.Parts) > 0 {
			parts := make([]map[string]any, 0, len(m.Parts))
			for _, p := range m.Parts {
				switch p.Type {
				case "image_url":
					parts = append(parts, map[string]any{
						"type":      "image_url",
						"image_url": map[string]any{"url": p.ImageURL},
					})
				default:
					parts = append(parts, map[string]any{"type": "text", "text": p.Text})
				}
			}
			wm.Content = parts
		} else {
			wm.Content = m.Content
		}
		for _, tc := range m.ToolCalls {
			args := tc.RawArgs
			if args == "" {
				if b, err := json.Marshal(tc.Args); err == nil {
					args = string(b)
				}
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunctionCall{Name: tc.Name, Arguments: args},
			})
		}
		out = append(out, wm)
	}
	return out
}

func encodeTools(tools []ToolSchema) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		out = append(out, wt)
	}
	return out
}

func decodeContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// 某些兼容端点以分段数组返回 content
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			if p.Text != "" {
				b.WriteString(p.Text)
			}
		}
		return b.String()
	}
	return ""
}
