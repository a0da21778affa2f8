// Package inference provides statistical error bars and retrodictive accuracy
// for fitted rating vectors.
//
// Confidence intervals come from opponent-adjusted game margins: each game
// yields the team's raw margin credited with the rating gap to the opponent,
// and the standard error of those performance samples bounds the rating
// estimate.
package inference

import (
	"math"

	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/store"
)

// Default inference constants.
const (
	// zCritical is the two-sided 95% normal quantile.
	zCritical = 1.96

	// probFloor clamps predicted probabilities away from 0 and 1 so the
	// log-likelihood stays finite.
	probFloor = 1e-10
)

// Confidence returns a 95% interval for each rated team. Fewer than two
// performance samples give no spread estimate, so such teams get an infinite
// standard error and the interval (-Inf, +Inf).
func Confidence(snap *store.Snapshot, ratings map[string]float64) map[string]model.ConfidenceInterval {
	out := make(map[string]model.ConfidenceInterval, len(ratings))

	// Opponent-adjusted performances per team: the raw margin plus the
	// rating gap credits a narrow win over a strong opponent the same as a
	// blowout over a weak one.
	performances := make(map[string][]float64, len(ratings))
	for _, g := range snap.Games {
		ra, okA := ratings[g.TeamA]
		rb, okB := ratings[g.TeamB]
		if !okA || !okB {
			continue
		}
		margin := g.Margin()
		performances[g.TeamA] = append(performances[g.TeamA], margin+(ra-rb))
		performances[g.TeamB] = append(performances[g.TeamB], -margin+(rb-ra))
	}

	for team, rating := range ratings {
		ps := performances[team]
		ci := model.ConfidenceInterval{Rating: rating}
		if len(ps) < 2 {
			ci.StdError = math.Inf(1)
			ci.Lower = math.Inf(-1)
			ci.Upper = math.Inf(1)
			out[team] = ci
			continue
		}
		mean := 0.0
		for _, p := range ps {
			mean += p
		}
		mean /= float64(len(ps))
		variance := 0.0
		for _, p := range ps {
			d := p - mean
			variance += d * d
		}
		// Population variance, matching the estimator the intervals were
		// calibrated against.
		variance /= float64(len(ps))
		ci.StdError = math.Sqrt(variance) / math.Sqrt(float64(len(ps)))
		ci.Lower = rating - zCritical*ci.StdError
		ci.Upper = rating + zCritical*ci.StdError
		out[team] = ci
	}
	return out
}

// Predictor maps a matchup to a win probability and an expected margin for
// team A. Both rating solvers provide one.
type Predictor func(g model.GameRecord) (winProb, margin float64, ok bool)

// Accuracy replays every stored game against the predictor in a single pass
// and reports retrodictive quality: fraction of winners called correctly,
// mean absolute error of the predicted spread, and the average per-game
// log-likelihood of the observed outcomes.
func Accuracy(snap *store.Snapshot, predict Predictor) model.AccuracyReport {
	var (
		correct  int
		counted  int
		absError float64
		logLik   float64
	)
	for _, g := range snap.Games {
		p, margin, ok := predict(g)
		if !ok {
			continue
		}
		counted++

		// p exactly 0.5 counts as predicting the away side, so it is
		// correct whenever team A loses.
		aWon := g.ScoreA > g.ScoreB
		if (p > 0.5) == aWon {
			correct++
		}
		absError += math.Abs(g.Margin() - margin)

		pc := math.Min(math.Max(p, probFloor), 1-probFloor)
		if aWon {
			logLik += math.Log(pc)
		} else {
			logLik += math.Log(1 - pc)
		}
	}

	report := model.AccuracyReport{GameCount: counted}
	if counted == 0 {
		return report
	}
	report.Accuracy = float64(correct) / float64(counted)
	report.MAESpread = absError / float64(counted)
	report.LogLikelihood = logLik / float64(counted)
	return report
}
