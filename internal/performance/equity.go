package performance

// EquitySummary holds summary metrics computed from an ordered equity
// series, using the true running-peak drawdown definition (unlike the
// tracker's per-strategy cumsum proxy).
type EquitySummary struct {
	TotalReturn    float64 `json:"total_return"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Samples        int     `json:"samples"`
}

// SummarizeEquity computes return, Sharpe and running-peak drawdown from
// an equity curve. Fewer than two points yields a zero-valued summary.
func SummarizeEquity(equity []float64) EquitySummary {
	summary := EquitySummary{Samples: len(equity)}
	if len(equity) < 2 {
		return summary
	}

	if equity[0] != 0 {
		summary.TotalReturn = (equity[len(equity)-1] - equity[0]) / equity[0]
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	summary.SharpeRatio = sharpe(returns)

	peak := equity[0]
	maxDrawdown := 0.0
	for _, value := range equity {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			drawdown := (peak - value) / peak * 100
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	summary.MaxDrawdownPct = maxDrawdown

	return summary
}
