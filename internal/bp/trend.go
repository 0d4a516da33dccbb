package bp

import "math"

const (
	TrendImproving = "improving"
	TrendWorsening = "worsening"
	TrendStable    = "stable"
)

// trendMinSamples is the fewest readings a direction is computed from.
const trendMinSamples = 4

// Sample is one reading as seen by the trend summary.
type Sample struct {
	Systolic  int
	Diastolic int
	Category  Category
}

type TrendSummary struct {
	Count            int
	AverageSystolic  int
	AverageDiastolic int
	Direction        string
	HighestRisk      string
}

// SummarizeTrend expects samples oldest first. The direction compares the
// mean systolic of the later half with the earlier half; a change of more
// than 5 mmHg either way is a trend.
func SummarizeTrend(samples []Sample) TrendSummary {
	summary := TrendSummary{Count: len(samples), Direction: TrendStable, HighestRisk: RiskLow}
	if len(samples) == 0 {
		return summary
	}

	var sumSys, sumDia int
	for _, s := range samples {
		sumSys += s.Systolic
		sumDia += s.Diastolic
		if risk := s.Category.RiskLevel(); riskOrder[risk] > riskOrder[summary.HighestRisk] {
			summary.HighestRisk = risk
		}
	}
	n := float64(len(samples))
	summary.AverageSystolic = int(math.Round(float64(sumSys) / n))
	summary.AverageDiastolic = int(math.Round(float64(sumDia) / n))

	if len(samples) >= trendMinSamples {
		mid := len(samples) / 2
		change := meanSystolic(samples[mid:]) - meanSystolic(samples[:mid])
		switch {
		case change > 5:
			summary.Direction = TrendWorsening
		case change < -5:
			summary.Direction = TrendImproving
		}
	}
	return summary
}

func meanSystolic(samples []Sample) float64 {
	var sum int
	for _, s := range samples {
		sum += s.Systolic
	}
	return float64(sum) / float64(len(samples))
}
