package massey

import (
	"context"

	"github.com/courtline/ratings/internal/domain/linalg"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/store"
	"github.com/courtline/ratings/pkg/logger"
	"github.com/courtline/ratings/pkg/metrics"
)

// OffenseDefense splits each team's strength into offensive and defensive
// components. Every game contributes two equations: the points a side scored
// are modeled as its own offense plus the opponent's defense. The expanded
// system rides the same normal-equations and LUP path as the margin solve,
// with one zero-sum constraint per component. The defensive column is
// negated on the way out so a positive defensive rating means fewer points
// allowed.
func (s *Solver) OffenseDefense(ctx context.Context, snap *store.Snapshot) (offense, defense map[string]float64) {
	offense = map[string]float64{}
	defense = map[string]float64{}

	nTeams := snap.TeamCount()
	nGames := snap.GameCount()
	if nTeams < 2 || nGames < s.minGames {
		return offense, defense
	}

	// Stacked design matrix: offensive rows first, defensive rows below.
	x := linalg.NewMatrix(2*nGames, 2*nTeams)
	y := make([]float64, 2*nGames)
	w := make([]float64, 2*nGames)
	for i, g := range snap.Games {
		a := snap.Index[g.TeamA]
		b := snap.Index[g.TeamB]

		// Points scored by A against B's defense.
		x.Set(i, a, 1)
		x.Set(i, nTeams+b, 1)
		y[i] = g.ScoreA

		// Points scored by B against A's defense.
		x.Set(nGames+i, b, 1)
		x.Set(nGames+i, nTeams+a, 1)
		y[nGames+i] = g.ScoreB

		w[i] = 1
		w[nGames+i] = 1
	}

	m, p := s.normalEquations(x, y, w, 2*nTeams)

	// The last two rows become the zero-sum constraints, one per component.
	for j := 0; j < 2*nTeams; j++ {
		m.Set(2*nTeams-2, j, 0)
		m.Set(2*nTeams-1, j, 0)
	}
	for j := 0; j < nTeams; j++ {
		m.Set(2*nTeams-2, j, 1)
		m.Set(2*nTeams-1, nTeams+j, 1)
	}
	p[2*nTeams-2] = 0
	p[2*nTeams-1] = 0

	r := s.solveOffenseDefense(ctx, m, p, x, y)
	if r == nil {
		return offense, defense
	}

	for team, i := range snap.Index {
		offense[team] = r[i]
		defense[team] = -r[nTeams+i]
	}
	return offense, defense
}

// solveOffenseDefense tries the constrained direct solve, then the damped
// least-squares formulation on the raw design matrix with the constraint
// rows appended.
func (s *Solver) solveOffenseDefense(ctx context.Context, m *linalg.Matrix, p []float64, x *linalg.Matrix, y []float64) []float64 {
	if f, err := m.Factorize(); err == nil {
		if r, err := f.Solve(p); err == nil {
			return r
		}
	}

	s.log.Warn(ctx, "offense/defense direct solve failed; falling back to least squares")
	metrics.RecordSolverFallback(string(model.Massey), "offense_defense_lstsq")

	cols := x.Cols()
	nTeams := cols / 2
	rows := x.Rows() + 2
	aug := linalg.NewMatrix(rows, cols)
	b := make([]float64, rows)
	for i := 0; i < x.Rows(); i++ {
		for j := 0; j < cols; j++ {
			aug.Set(i, j, x.At(i, j))
		}
		b[i] = y[i]
	}
	for j := 0; j < nTeams; j++ {
		aug.Set(rows-2, j, 1)
		aug.Set(rows-1, nTeams+j, 1)
	}

	r, err := linalg.SolveLeastSquares(aug, b, lstsqDamping)
	if err != nil {
		s.log.Error(ctx, "offense/defense least squares failed", logger.Error(err))
		return nil
	}
	return r
}
