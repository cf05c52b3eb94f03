package agent

import (
	"context"
	"strings"

	"klinesight/internal/llm"
	"klinesight/internal/logger"
	"klinesight/internal/prompt"
	"klinesight/internal/tools"
)

// 中文说明：
// 产物优先（artifact-or-generate）两阶段协议，形态与趋势 agent 共用：
//   Phase A：状态里已有图像则直接复用；否则跑工具循环让模型生成图像。
//   Phase B：以图像 + 固定分析指令发起一次全新的落地（grounded）调用产出报告。
// Phase B 的消息结构被后端拒绝（错误文本含 "at least one message"）时，
// 去掉 system 消息仅传人类消息再试一轮；其他错误原样上抛。
// Phase A 正常收尾却没有图像时，退化为直接复用 Phase A 的对话链做自由文本分析。

const msgStructureRejected = "at least one message"

// GroundedAgent 两阶段图像落地分析节点。
type GroundedAgent struct {
	stage       string
	artifactKey string
	reportKey   string

	ToolModel   llm.ChatModel
	VisionModel llm.ChatModel
	Prompts     *prompt.Registry
	Registry    *tools.Registry

	MaxRounds     int
	LLMRetry      Policy
	GroundedRetry Policy
	ToolRetry     *ToolRetryPolicy
	DefaultReport string

	systemKeyA string
	systemKeyB string
	humanKeyB  string
	humanVars  func(a *GroundedAgent, timeFrame string) map[string]string

	// publish 在报告写入后补充额外产物（如趋势图的文件名与描述）。
	publish func(hasArtifact bool, upd *Update)
}

func (a *GroundedAgent) Name() string { return a.stage }

func (a *GroundedAgent) Run(ctx context.Context, state *State) (Update, error) {
	var upd Update
	artifact := state.Artifact(a.artifactKey)

	seed := []llm.Message{
		llm.SystemMessage(a.Prompts.Text(a.systemKeyA)),
		llm.HumanMessage("以下是近期K线数据:\n" + state.Klines.JSONDump()),
	}
	transcript := append([]llm.Message(nil), seed...)

	if artifact == "" {
		logger.Infof("[%s] state中没有预生成图像，开始使用工具生成...", a.stage)
		loop := &ToolLoop{
			Model:         a.ToolModel,
			Registry:      a.Registry,
			Stage:         a.stage,
			MaxRounds:     a.MaxRounds,
			LLMRetry:      a.LLMRetry,
			ToolRetry:     a.ToolRetry,
			CaptureKeys:   []string{a.artifactKey},
			DefaultReport: a.DefaultReport,
		}
		// seed 一并回传，合并后的转写可从头回放
		upd.Messages = append(upd.Messages, seed...)
		_, loopUpd, err := loop.Run(ctx, state.Klines, seed)
		upd.Messages = append(upd.Messages, loopUpd.Messages...)
		transcript = append(transcript, loopUpd.Messages...)
		if err != nil {
			return upd, err
		}
		artifact = loopUpd.Artifacts[a.artifactKey]
	} else {
		logger.Infof("[%s] 使用state中预生成的图像", a.stage)
	}

	var report string
	if artifact != "" {
		humanText := a.Prompts.Render(a.humanKeyB, a.humanVars(a, state.TimeFrame))
		text, msgs, err := a.groundedAnalysis(ctx, humanText, artifact)
		if err != nil {
			return upd, err
		}
		report = text
		upd.Messages = append(upd.Messages, msgs...)
		upd.SetArtifact(a.artifactKey, artifact)
		upd.Audit = Audit{
			ModelID: a.VisionModel.ID(),
			System:  a.Prompts.Text(a.systemKeyB),
			User:    humanText,
			Images:  1,
		}
	} else {
		// 图像缺失但循环正常收尾：直接复用 Phase A 对话链做无图分析
		logger.Warnf("[%s] 未能获得图像产物，退化为无图分析", a.stage)
		resp, err := Do(ctx, a.LLMRetry, func(ctx context.Context) (llm.Response, error) {
			return a.ToolModel.Invoke(ctx, llm.Request{Messages: transcript, Tools: a.Registry.Schemas()})
		}, nil)
		if err != nil {
			return upd, err
		}
		assistant := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
		upd.AddMessage(assistant)
		report = strings.TrimSpace(resp.Content)
		upd.Audit = Audit{ModelID: a.ToolModel.ID(), System: a.Prompts.Text(a.systemKeyA)}
	}

	if report == "" {
		report = a.DefaultReport
	}
	logger.LogLLMResponse(a.stage, "grounded-analysis", report)
	upd.SetReport(a.reportKey, report)
	if a.publish != nil {
		a.publish(artifact != "", &upd)
	}
	return upd, nil
}

// groundedAnalysis Phase B：单次图像落地调用，含消息结构兼容回退。
func (a *GroundedAgent) groundedAnalysis(ctx context.Context, humanText, artifact string) (string, []llm.Message, error) {
	human := llm.HumanImageMessage(humanText, artifact)
	system := llm.SystemMessage(a.Prompts.Text(a.systemKeyB))
	messages := []llm.Message{system, human}

	logger.LogLLMRequest(a.stage, "grounded-analysis", system.Content, humanText, human.Images())
	resp, err := a.invokeGrounded(ctx, messages)
	if err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), msgStructureRejected) {
			return "", nil, err
		}
		logger.Warnf("[%s] 后端拒绝消息结构，改为仅传人类消息重试...", a.stage)
		messages = []llm.Message{human}
		resp, err = a.invokeGrounded(ctx, messages)
		if err != nil {
			return "", nil, err
		}
	}
	assistant := llm.Message{Role: llm.RoleAssistant, Content: resp.Content}
	return strings.TrimSpace(resp.Content), append(messages, assistant), nil
}

func (a *GroundedAgent) invokeGrounded(ctx context.Context, messages []llm.Message) (llm.Response, error) {
	return Do(ctx, a.GroundedRetry, func(ctx context.Context) (llm.Response, error) {
		return a.VisionModel.Invoke(ctx, llm.Request{Messages: messages})
	}, nil)
}
