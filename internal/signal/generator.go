package signal

import "fmt"

// Trigger percentile bands. A ratio deep into its trailing distribution can
// fire a signal even when the absolute threshold has not been crossed.
const (
	highPercentileTrigger = 85.0
	lowPercentileTrigger  = 20.0
)

// baseStrength is the starting score for any triggered signal; corroborating
// conditions add fixed bonuses on top, clamped to [0, 100].
const baseStrength = 50.0

// strongBandOffset separates the band edge from the "strong" level that earns
// the larger ratio bonus.
const strongBandOffset = 5.0

// Generator evaluates ratio observations against threshold rules.
type Generator struct {
	thresholds Thresholds
}

// NewGenerator creates a signal generator with the given ratio bands.
func NewGenerator(thresholds Thresholds) *Generator {
	return &Generator{thresholds: thresholds}
}

// Evaluate produces at most one directional signal for the observation, or
// nil when the ratio sits inside the neutral zone. Evaluation is
// deterministic; when both bands somehow trigger at once (overlapping bands
// from a misconfigured pair of thresholds), the high side wins.
func (g *Generator) Evaluate(input Input) *Signal {
	highTriggered := input.Ratio >= g.thresholds.High ||
		(input.Percentile.Valid && input.Percentile.Float64 >= highPercentileTrigger)
	lowTriggered := input.Ratio <= g.thresholds.Low ||
		(input.Percentile.Valid && input.Percentile.Float64 <= lowPercentileTrigger)

	switch {
	case highTriggered:
		return g.buildSignal(TypeSwapBaseToQuote, input)
	case lowTriggered:
		return g.buildSignal(TypeSwapQuoteToBase, input)
	default:
		return nil
	}
}

func (g *Generator) buildSignal(sigType Type, input Input) *Signal {
	var strength float64
	var reasoning []string
	if sigType == TypeSwapBaseToQuote {
		strength, reasoning = g.scoreHigh(input)
	} else {
		strength, reasoning = g.scoreLow(input)
	}

	positionSize := positionSizeForStrength(strength)

	return &Signal{
		Type:            sigType,
		Strength:        strength,
		RatioValue:      input.Ratio,
		Percentile:      input.Percentile,
		ZScore:          input.ZScore,
		Regime:          input.Regime,
		Recommendation:  recommendationFor(sigType, positionSize),
		PositionSizePct: positionSize,
		Reasoning:       reasoning,
		Timestamp:       input.Timestamp,
	}
}

// scoreHigh accumulates strength bonuses for a high-side signal. Conditions
// are evaluated in a fixed order (ratio, z-score, percentile) and each
// contributing condition is recorded in the reasoning list.
func (g *Generator) scoreHigh(input Input) (float64, []string) {
	strength := baseStrength
	var reasoning []string

	switch {
	case input.Ratio >= g.thresholds.High+strongBandOffset:
		strength += 20
		reasoning = append(reasoning, fmt.Sprintf("ratio %.1f at or above %.1f (strong high threshold)",
			input.Ratio, g.thresholds.High+strongBandOffset))
	case input.Ratio >= g.thresholds.High:
		strength += 10
		reasoning = append(reasoning, fmt.Sprintf("ratio %.1f at or above %.1f threshold",
			input.Ratio, g.thresholds.High))
	}

	if input.ZScore.Valid {
		switch z := input.ZScore.Float64; {
		case z >= 2.0:
			strength += 15
			reasoning = append(reasoning, fmt.Sprintf("z-score %.2f (>=2.0 std above mean)", z))
		case z >= 1.5:
			strength += 10
			reasoning = append(reasoning, fmt.Sprintf("z-score %.2f (>=1.5 std above mean)", z))
		}
	}

	if input.Percentile.Valid {
		switch p := input.Percentile.Float64; {
		case p >= 95:
			strength += 15
			reasoning = append(reasoning, fmt.Sprintf("ratio at %.1fth percentile (>=95)", p))
		case p >= 90:
			strength += 10
			reasoning = append(reasoning, fmt.Sprintf("ratio at %.1fth percentile (>=90)", p))
		}
	}

	return clampStrength(strength), reasoning
}

// scoreLow mirrors scoreHigh for the low side of the band.
func (g *Generator) scoreLow(input Input) (float64, []string) {
	strength := baseStrength
	var reasoning []string

	switch {
	case input.Ratio <= g.thresholds.Low-strongBandOffset:
		strength += 20
		reasoning = append(reasoning, fmt.Sprintf("ratio %.1f at or below %.1f (strong low threshold)",
			input.Ratio, g.thresholds.Low-strongBandOffset))
	case input.Ratio <= g.thresholds.Low:
		strength += 10
		reasoning = append(reasoning, fmt.Sprintf("ratio %.1f at or below %.1f threshold",
			input.Ratio, g.thresholds.Low))
	}

	if input.ZScore.Valid {
		switch z := input.ZScore.Float64; {
		case z <= -1.5:
			strength += 15
			reasoning = append(reasoning, fmt.Sprintf("z-score %.2f (<=-1.5 std below mean)", z))
		case z <= -1.0:
			strength += 10
			reasoning = append(reasoning, fmt.Sprintf("z-score %.2f (<=-1.0 std below mean)", z))
		}
	}

	if input.Percentile.Valid {
		switch p := input.Percentile.Float64; {
		case p <= 10:
			strength += 15
			reasoning = append(reasoning, fmt.Sprintf("ratio at %.1fth percentile (<=10)", p))
		case p <= 20:
			strength += 10
			reasoning = append(reasoning, fmt.Sprintf("ratio at %.1fth percentile (<=20)", p))
		}
	}

	return clampStrength(strength), reasoning
}

func clampStrength(strength float64) float64 {
	if strength > 100 {
		return 100
	}
	if strength < 0 {
		return 0
	}
	return strength
}

// positionSizeForStrength maps strength to a recommended position size. The
// mapping is a step function so that sizing stays conservative and monotonic
// in strength.
func positionSizeForStrength(strength float64) float64 {
	switch {
	case strength >= 80:
		return 20.0
	case strength >= 70:
		return 15.0
	case strength >= 60:
		return 12.5
	default:
		return 10.0
	}
}

func recommendationFor(sigType Type, positionSize float64) string {
	if sigType == TypeSwapBaseToQuote {
		return fmt.Sprintf("Consider rotating %.1f%% of base holdings to quote", positionSize)
	}
	return fmt.Sprintf("Consider rotating %.1f%% of quote holdings to base", positionSize)
}
