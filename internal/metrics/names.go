package metrics

import (
	"fmt"
	"strings"
)

// Derived-metric naming scheme. Rolling statistics and correlations are
// stored as independent metric series named after the parent metric, e.g.
// gsr_ma_90, gsr_zscore_90, corr_gsr_DGS10_30d.

// MeanMetricName names the rolling-mean series for a window.
func MeanMetricName(metric string, window int) string {
	return fmt.Sprintf("%s_ma_%d", strings.ToLower(metric), window)
}

// StdMetricName names the rolling standard-deviation series for a window.
func StdMetricName(metric string, window int) string {
	return fmt.Sprintf("%s_std_%d", strings.ToLower(metric), window)
}

// ZScoreMetricName names the rolling z-score series for a window.
func ZScoreMetricName(metric string, window int) string {
	return fmt.Sprintf("%s_zscore_%d", strings.ToLower(metric), window)
}

// PercentileMetricName names the rolling percentile-rank series for a window.
func PercentileMetricName(metric string, window int) string {
	return fmt.Sprintf("%s_percentile_%d", strings.ToLower(metric), window)
}

// CorrelationMetricName names the rolling correlation series between a metric
// and a counterpart series for a window.
func CorrelationMetricName(metric, counterpart string, window int) string {
	return fmt.Sprintf("corr_%s_%s_%dd", strings.ToLower(metric), counterpart, window)
}
