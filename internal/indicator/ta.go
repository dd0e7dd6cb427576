package indicator

// ema computes an exponential moving average series with the standard
// smoothing factor 2/(period+1), seeded by the first sample.
func ema(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// MACDHist returns the MACD histogram (macd line minus signal line) for
// the given close series. Empty result when the series is shorter than
// the slow period.
func MACDHist(closes []float64, fast, slow, signal int) []float64 {
	if len(closes) < slow {
		return nil
	}
	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}
	signalLine := ema(macdLine, signal)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macdLine[i] - signalLine[i]
	}
	return hist
}

// RSI returns the last Wilder-smoothed RSI value for the close series,
// or 50 when the series is too short to say anything.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if delta > 0 {
			g = delta
		} else {
			l = -delta
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
