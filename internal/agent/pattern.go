package agent

import (
	"klinesight/internal/llm"
	"klinesight/internal/prompt"
	"klinesight/internal/tools"
)

// 形态识别 agent：生成K线图后对照经典形态目录做图像落地分析。
// 工具结果缺少图像时按独立策略重试工具本身，而非整个循环。
func NewPatternAgent(toolModel, visionModel llm.ChatModel, prompts *prompt.Registry) *GroundedAgent {
	a := &GroundedAgent{
		stage:       "pattern",
		artifactKey: tools.KeyPatternImage,
		reportKey:   ReportPattern,

		ToolModel:   toolModel,
		VisionModel: visionModel,
		Prompts:     prompts,
		Registry:    tools.NewRegistry(tools.NewKlineImageTool()),

		LLMRetry:      Policy{Name: "pattern", Attempts: defaultRetryAttempts, Wait: patternGroundedWait},
		GroundedRetry: Policy{Name: "pattern/grounded", Attempts: defaultRetryAttempts, Wait: patternGroundedWait},
		ToolRetry: &ToolRetryPolicy{
			Attempts:    defaultRetryAttempts,
			Wait:        defaultRetryWait,
			RequiredKey: tools.KeyPatternImage,
		},
		DefaultReport: "形态分析完成，但未生成详细报告。",

		systemKeyA: prompt.KeyPatternToolSystem,
		systemKeyB: prompt.KeyPatternImageSystem,
		humanKeyB:  prompt.KeyPatternImageHuman,
		humanVars: func(a *GroundedAgent, timeFrame string) map[string]string {
			return map[string]string{
				"time_frame":        timeFrame,
				"pattern_catalogue": a.Prompts.Text(prompt.KeyPatternCatalogue),
			}
		},
	}
	return a
}
