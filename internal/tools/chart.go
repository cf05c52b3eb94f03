package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"klinesight/internal/market"
)

// 中文说明：
// 图像工具：K线形态图与趋势线图，go-echarts 绘制、headless chrome 截图。
// 结果映射以固定键位承载 base64 图像载荷（pattern_image / trend_image），
// 键缺失即视为"缺失产物"失败，由上层重试策略处理。

const (
	// 图像载荷键
	KeyPatternImage = "pattern_image"
	KeyTrendImage   = "trend_image"

	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorSupport       = "#3b82f6"
	colorResistance    = "#f87171"

	chartWidthPx  = 1600
	chartHeightPx = 700
)

type htmlRenderer func(ctx context.Context, html []byte, width, height int) ([]byte, error)

type chartTool struct {
	name     string
	desc     string
	imageKey string
	filename string
	overlay  bool // 叠加支撑/阻力趋势线
	render   htmlRenderer
}

func (t *chartTool) Name() string        { return t.name }
func (t *chartTool) Description() string { return t.desc }
func (t *chartTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"kline_data": klineParam(),
	})
}

func (t *chartTool) Invoke(ctx context.Context, args map[string]any) (Result, error) {
	candles, err := candlesArg(args)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("kline_data 为空，无法绘图")
	}
	html, desc, err := t.buildHTML(candles)
	if err != nil {
		return nil, err
	}
	render := t.render
	if render == nil {
		if err := EnsureHeadlessAvailable(ctx); err != nil {
			return nil, fmt.Errorf("headless 渲染环境不可用: %w", err)
		}
		render = renderHTMLToPNG
	}
	png, err := render(ctx, html, chartWidthPx, chartHeightPx)
	if err != nil {
		return nil, err
	}
	return Result{
		t.imageKey:    base64.StdEncoding.EncodeToString(png),
		"filename":    t.filename,
		"description": desc,
	}, nil
}

func (t *chartTool) buildHTML(candles market.Candles) ([]byte, string, error) {
	minPrice, maxPrice := priceBounds(candles)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:      t.chartTitle(),
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	xAxis := buildXAxis(candles)
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", buildKlineSeries(candles))

	desc := fmt.Sprintf("%d 根K线，区间 %s–%s", len(candles), formatPrice(minPrice), formatPrice(maxPrice))
	if t.overlay {
		supSlope, supIntercept := FitLine(candles.Lows())
		resSlope, resIntercept := FitLine(candles.Highs())
		line := charts.NewLine()
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		line.AddSeries("Support", toLineData(LinePoints(supSlope, supIntercept, len(candles))),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSupport, Width: 2}))
		line.AddSeries("Resistance", toLineData(LinePoints(resSlope, resIntercept, len(candles))),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorResistance, Width: 2}))
		line.SetXAxis(xAxis)
		kline.Overlap(line)
		desc = fmt.Sprintf("%s；支撑斜率 %+.4f，阻力斜率 %+.4f", desc, supSlope, resSlope)
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(kline)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), desc, nil
}

func (t *chartTool) chartTitle() string {
	if t.overlay {
		return "Kline + Trendlines"
	}
	return "Kline Pattern"
}

// NewKlineImageTool 生成K线形态图，结果键 pattern_image。
func NewKlineImageTool() Tool {
	return &chartTool{
		name:     "generate_kline_image",
		desc:     "根据 kline_data 生成K线图（PNG base64），用于形态识别",
		imageKey: KeyPatternImage,
		filename: "kline_pattern.png",
	}
}

// NewTrendImageTool 生成叠加支撑/阻力趋势线的K线图，结果键 trend_image。
func NewTrendImageTool() Tool {
	return &chartTool{
		name:     "generate_trend_image",
		desc:     "根据 kline_data 生成叠加支撑(蓝)/阻力(红)趋势线的K线图（PNG base64）",
		imageKey: KeyTrendImage,
		filename: "trend_graph.png",
		overlay:  true,
	}
}

func priceBounds(candles market.Candles) (min, max float64) {
	min = math.MaxFloat64
	max = -math.MaxFloat64
	for _, c := range candles {
		if c.Low < min {
			min = c.Low
		}
		if c.High > max {
			max = c.High
		}
	}
	return min, max
}

func buildXAxis(candles market.Candles) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		ts := c.CloseTime
		if ts == 0 {
			ts = c.OpenTime
		}
		x[i] = time.UnixMilli(ts).UTC().Format("01-02 15:04")
	}
	return x
}

func buildKlineSeries(candles market.Candles) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	return data
}

func toLineData(series []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(series))
	for _, v := range series {
		data = append(data, opts.LineData{Value: round(v, 4)})
	}
	return data
}

func round(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}

func formatPrice(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
