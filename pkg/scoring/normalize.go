package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Threshold is a good/poor pair for a lower-is-better metric.
type Threshold struct {
	Good float64
	Poor float64
}

// Lighthouse-aligned thresholds. Times are in milliseconds, CLS is unitless.
var (
	ThresholdFCP = Threshold{Good: 1800, Poor: 3000}
	ThresholdLCP = Threshold{Good: 2500, Poor: 4000}
	ThresholdTBT = Threshold{Good: 200, Poor: 600}
	ThresholdSI  = Threshold{Good: 3400, Poor: 5800}
	ThresholdCLS = Threshold{Good: 0.10, Poor: 0.25}
	ThresholdINP = Threshold{Good: 200, Poor: 500}
)

// ScoreLinear maps a lower-is-better value onto 0-100: 100 at or below good,
// 0 at or above poor, linear in between. A nil value stays nil.
func ScoreLinear(value *float64, good, poor float64) *int {
	if value == nil {
		return nil
	}
	v := *value
	if v <= good {
		return Int(100)
	}
	if v >= poor {
		return Int(0)
	}
	s := 100 - 100*(v-good)/(poor-good)
	return Int(clamp(int(math.Round(s))))
}

// Score applies ScoreLinear with the threshold's bounds.
func (t Threshold) Score(value *float64) *int {
	return ScoreLinear(value, t.Good, t.Poor)
}

func ScoreFCP(ms *float64) *int { return ThresholdFCP.Score(ms) }
func ScoreLCP(ms *float64) *int { return ThresholdLCP.Score(ms) }
func ScoreTBT(ms *float64) *int { return ThresholdTBT.Score(ms) }
func ScoreSI(ms *float64) *int  { return ThresholdSI.Score(ms) }
func ScoreCLS(v *float64) *int  { return ThresholdCLS.Score(v) }
func ScoreINP(ms *float64) *int { return ThresholdINP.Score(ms) }

// FormatMs renders milliseconds as "999 ms" or "2.5 s".
func FormatMs(ms *float64) string {
	if ms == nil {
		return ValueUnknown
	}
	if *ms < 1000 {
		return strconv.Itoa(int(*ms)) + " ms"
	}
	return trimDecimal(fmt.Sprintf("%.2f", *ms/1000)) + " s"
}

// FormatCLS renders a layout shift value with up to three decimals.
func FormatCLS(v *float64) string {
	if v == nil {
		return ValueUnknown
	}
	return trimDecimal(fmt.Sprintf("%.3f", *v))
}

func trimDecimal(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Clamp bounds a score to [0, 100].
func Clamp(v int) int { return clamp(v) }

// RoundMean is the arithmetic mean rounded half away from zero.
// It returns nil for an empty input.
func RoundMean(vals []int) *int {
	if len(vals) == 0 {
		return nil
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return Int(int(math.Round(float64(sum) / float64(len(vals)))))
}

func meanOrZero(vals []int) int {
	if m := RoundMean(vals); m != nil {
		return *m
	}
	return 0
}

// meanDefined averages the non-nil values.
func meanDefined(vals ...*int) *int {
	var defined []int
	for _, v := range vals {
		if v != nil {
			defined = append(defined, *v)
		}
	}
	return RoundMean(defined)
}
