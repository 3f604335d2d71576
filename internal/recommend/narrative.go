package recommend

import (
	"fmt"

	"market-advisor/internal/types"
)

const maxFundRisks = 4

func riskFactors(in Input) []string {
	set := in.Indicators
	var risks []string

	if in.AssetClass == types.AssetFund {
		if set.Volatility.Available && set.AnnualizedVolatility > 0.20 {
			risks = append(risks, "High volatility may result in significant losses")
		}
		if in.Fundamentals != nil && in.Fundamentals.ExpenseRatio > 0.015 {
			risks = append(risks, "High fees erode long-term returns")
		}
		if set.Perf != nil && set.Perf.Has1M && set.Perf.Return1M < -0.10 {
			risks = append(risks, "Recent poor performance indicates potential issues")
		}
		risks = append(risks, "Market risk", "Interest rate risk", "Manager risk")
		if len(risks) > maxFundRisks {
			risks = risks[:maxFundRisks]
		}
		return risks
	}

	if set.Volatility.Available && set.AnnualizedVolatility > 0.30 {
		risks = append(risks, fmt.Sprintf("High volatility increases investment risk (%.0f%% annualised)",
			set.AnnualizedVolatility*100))
	}
	if set.Momentum.Available && set.RSI > 70 {
		risks = append(risks, fmt.Sprintf("Overbought at RSI %.0f, prone to pullback", set.RSI))
	}
	if f := in.Fundamentals; f != nil {
		if f.PE > 30 {
			risks = append(risks, "High valuation multiples vulnerable to market corrections")
		}
		if f.MarketCap > 0 && f.MarketCap < smallCap {
			risks = append(risks, "Small-cap stock subject to higher volatility")
		}
	}
	if in.Sentiment.ItemCount > 0 && in.Sentiment.Label == types.SentimentNegative {
		risks = append(risks, "Negative sentiment could impact near-term performance")
	}
	if len(risks) == 0 {
		risks = []string{"Market volatility", "Economic conditions"}
	}
	return risks
}

// fundProfile lists up to four strengths and three weaknesses from the
// fund's return history and cost structure.
func fundProfile(in Input) (strengths, weaknesses []string) {
	perf := in.Indicators.Perf
	f := in.Fundamentals

	if perf != nil {
		if perf.SharpeRatio > 1.0 {
			strengths = append(strengths, "Strong risk-adjusted returns")
		}
		if perf.Volatility > 0 && perf.Volatility < 0.15 {
			strengths = append(strengths, "Low volatility provides stability")
		}
		if perf.AnnualReturn > 0.08 {
			strengths = append(strengths, "Consistent performance track record")
		}
	}
	if f != nil {
		if f.ExpenseRatio > 0 && f.ExpenseRatio < 0.0075 {
			strengths = append(strengths, "Low cost structure")
		}
		if f.TotalAssets > 1e10 {
			strengths = append(strengths, "Large asset base provides stability")
		}
	}

	if f != nil && f.ExpenseRatio > 0.015 {
		weaknesses = append(weaknesses, "High expense ratio reduces returns")
	}
	if perf != nil {
		if perf.Volatility > 0.20 {
			weaknesses = append(weaknesses, "High volatility increases risk")
		}
		if perf.AnnualReturn < 0.05 {
			weaknesses = append(weaknesses, "Below-average performance")
		}
		if perf.SharpeRatio < 0.5 {
			weaknesses = append(weaknesses, "Poor risk-adjusted returns")
		}
	}
	if f != nil && f.TotalAssets > 0 && f.TotalAssets < 1e9 {
		weaknesses = append(weaknesses, "Small asset base may limit liquidity")
	}

	if len(strengths) == 0 {
		strengths = []string{"Professional management", "Diversification"}
	}
	if len(weaknesses) == 0 {
		weaknesses = []string{"Market dependency", "Interest rate sensitivity"}
	}
	if len(strengths) > 4 {
		strengths = strengths[:4]
	}
	if len(weaknesses) > 3 {
		weaknesses = weaknesses[:3]
	}
	return strengths, weaknesses
}
