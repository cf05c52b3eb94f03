package agent

import (
	"klinesight/internal/llm"
	"klinesight/internal/prompt"
	"klinesight/internal/tools"
)

// 趋势图产物的固定发布信息。
const (
	KeyTrendImageFilename    = "trend_image_filename"
	KeyTrendImageDescription = "trend_image_description"

	trendImageFilename    = "trend_graph.png"
	trendImageDescription = "带支撑/阻力趋势线的K线图"
)

// 趋势识别 agent：生成叠加支撑/阻力线的K线图并做图像落地分析，
// 同时对外发布固定文件名与图像描述。
func NewTrendAgent(toolModel, visionModel llm.ChatModel, prompts *prompt.Registry) *GroundedAgent {
	a := &GroundedAgent{
		stage:       "trend",
		artifactKey: tools.KeyTrendImage,
		reportKey:   ReportTrend,

		ToolModel:   toolModel,
		VisionModel: visionModel,
		Prompts:     prompts,
		Registry:    tools.NewRegistry(tools.NewTrendImageTool()),

		LLMRetry:      Policy{Name: "trend", Attempts: defaultRetryAttempts, Wait: defaultRetryWait},
		GroundedRetry: Policy{Name: "trend/grounded", Attempts: defaultRetryAttempts, Wait: defaultRetryWait},
		DefaultReport: "趋势分析完成，但未生成详细报告。",

		systemKeyA: prompt.KeyTrendToolSystem,
		systemKeyB: prompt.KeyTrendImageSystem,
		humanKeyB:  prompt.KeyTrendImageHuman,
		humanVars: func(_ *GroundedAgent, timeFrame string) map[string]string {
			return map[string]string{"time_frame": timeFrame}
		},

		publish: func(hasArtifact bool, upd *Update) {
			upd.SetArtifact(KeyTrendImageFilename, trendImageFilename)
			if hasArtifact {
				upd.SetArtifact(KeyTrendImageDescription, trendImageDescription)
			}
		},
	}
	return a
}
