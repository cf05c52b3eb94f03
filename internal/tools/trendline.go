package tools

// FitLine 对序列做最小二乘直线拟合，x 取下标 0..n-1。
func FitLine(series []float64) (slope, intercept float64) {
	n := float64(len(series))
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, series[0]
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// LinePoints 按拟合参数生成 n 个点。
func LinePoints(slope, intercept float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = slope*float64(i) + intercept
	}
	return out
}
