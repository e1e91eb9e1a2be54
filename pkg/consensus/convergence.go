package consensus

import (
	"math"
	"regexp"
	"strconv"
)

// convergencePattern matches the canonical agreement sentence. Decimals are
// tolerated because models frequently write "87.5%" despite the instruction.
var convergencePattern = regexp.MustCompile(
	`(?i)I am in agreement with\s+(\d+(?:\.\d+)?)%\s+of the overall opinions given by my peers\.`,
)

// ExtractConvergence locates the convergence declaration in a model's
// free-text answer and returns it as an integer percentage. Missing or
// out-of-range declarations return nil: absence is a first-class, expected
// outcome, since models do not always comply with the instruction.
func ExtractConvergence(response string) *int {
	m := convergencePattern.FindStringSubmatch(response)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if value < 0 || value > 100 {
		return nil
	}
	pct := int(math.Round(value))
	return &pct
}

// MinScoreQuorum is the minimum number of non-nil scores a round needs before
// its aggregate can declare convergence. With fewer, the evidence is too thin
// regardless of the values reported.
const MinScoreQuorum = 2

// AggregateRound reduces a round's per-participant scores to the
// representative statistic and the convergence decision.
//
// The statistic is the minimum of all present scores: one dissenting
// participant blocks declared consensus, which avoids false "converged" calls
// driven by a single highly agreeable participant while a holdout remains far
// off. Threshold comparison is inclusive.
func AggregateRound(threshold int, scores map[int]int) (stat int, reached bool) {
	if len(scores) == 0 {
		return 0, false
	}
	first := true
	for _, s := range scores {
		if first || s < stat {
			stat = s
			first = false
		}
	}
	if len(scores) < MinScoreQuorum {
		return stat, false
	}
	return stat, stat >= threshold
}
