package mle_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtline/ratings/internal/domain/mle"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/sport"
	"github.com/courtline/ratings/internal/domain/store"
)

// winLossSnapshot builds a schedule with a strict pecking order: north beats
// everyone, south beats east and west, east beats west.
func winLossSnapshot(ctx context.Context) *store.Snapshot {
	s := store.New([]string{"north", "south", "east", "west"}, sport.Basketball())
	day := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	games := []struct {
		winner, loser string
	}{
		{"north", "south"}, {"north", "east"}, {"north", "west"},
		{"south", "east"}, {"south", "west"},
		{"east", "west"},
		{"north", "south"}, {"south", "east"}, {"east", "west"},
	}
	for i, g := range games {
		err := s.Add(ctx, model.GameRecord{
			EventID:  fmt.Sprintf("cup-%02d", i),
			TeamA:    g.winner,
			TeamB:    g.loser,
			ScoreA:   3,
			ScoreB:   1,
			PlayedAt: day.Add(time.Duration(i) * 24 * time.Hour),
		})
		So(err, ShouldBeNil)
	}
	return s.Snapshot(ctx)
}

func TestSolveMLE(t *testing.T) {
	Convey("Given a strict pecking order of results", t, func() {
		ctx := context.Background()
		snap := winLossSnapshot(ctx)
		solver := mle.New()

		Convey("When fitting the model", func() {
			v := solver.Solve(ctx, snap)
			So(v.Empty(), ShouldBeFalse)
			So(v.Method, ShouldEqual, model.MLE)
			So(v.GameCount, ShouldEqual, 9)
			r := v.Ratings

			Convey("Then the pecking order is recovered", func() {
				So(r["north"], ShouldBeGreaterThan, r["south"])
				So(r["south"], ShouldBeGreaterThan, r["east"])
				So(r["east"], ShouldBeGreaterThan, r["west"])
			})

			Convey("Then the minimum rating is shifted to zero", func() {
				So(r["west"], ShouldAlmostEqual, 0, 1e-12)
				for _, x := range r {
					So(x, ShouldBeGreaterThanOrEqualTo, 0)
				}
			})

			Convey("Then a re-run with the same seed is identical", func() {
				again := mle.New().Solve(ctx, snap)
				for team, x := range r {
					So(again.Ratings[team], ShouldEqual, x)
				}
			})

			Convey("Then different seeds converge to the same optimum", func() {
				other := mle.New(mle.WithSeed(7)).Solve(ctx, snap)
				for team, x := range r {
					So(other.Ratings[team], ShouldAlmostEqual, x, 1e-3)
				}
			})
		})
	})

	Convey("Given an empty snapshot", t, func() {
		ctx := context.Background()
		s := store.New([]string{"north", "south"}, sport.Basketball())
		v := mle.New().Solve(ctx, s.Snapshot(ctx))

		Convey("Then the vector is empty, never an error", func() {
			So(v.Empty(), ShouldBeTrue)
			So(v.GameCount, ShouldEqual, 0)
		})
	})
}

func TestWinProbability(t *testing.T) {
	Convey("Given fitted ratings", t, func() {
		ratings := map[string]float64{"north": 2.0, "south": 1.0, "west": 0.0}

		Convey("The higher-rated side is favored", func() {
			p, ok := mle.WinProbability(ratings, "north", "south")
			So(ok, ShouldBeTrue)
			So(p, ShouldBeGreaterThan, 0.5)
			So(p, ShouldBeLessThan, 1.0)
		})

		Convey("Probabilities are complementary", func() {
			p1, _ := mle.WinProbability(ratings, "north", "west")
			p2, _ := mle.WinProbability(ratings, "west", "north")
			So(p1+p2, ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("A bigger gap means a bigger edge", func() {
			near, _ := mle.WinProbability(ratings, "north", "south")
			far, _ := mle.WinProbability(ratings, "north", "west")
			So(far, ShouldBeGreaterThan, near)
		})

		Convey("Equal ratings are a coin flip", func() {
			p, ok := mle.WinProbability(map[string]float64{"a": 1, "b": 1}, "a", "b")
			So(ok, ShouldBeTrue)
			So(p, ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("An unknown team yields no probability", func() {
			_, ok := mle.WinProbability(ratings, "north", "atlantis")
			So(ok, ShouldBeFalse)
		})
	})
}
