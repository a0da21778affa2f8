package repository_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtline/ratings/internal/adapters/repository"
	"github.com/courtline/ratings/internal/domain/model"
)

func vector(method model.Method, snapshotID string, ratings map[string]float64) *model.RatingVector {
	return &model.RatingVector{
		Method:     method,
		SnapshotID: snapshotID,
		GameCount:  len(ratings),
		Ratings:    ratings,
	}
}

func TestPutAndLatest(t *testing.T) {
	Convey("Given an empty repository", t, func() {
		ctx := context.Background()
		repo := repository.NewMemoryStore()

		Convey("Latest fails before any solve", func() {
			_, err := repo.Latest(ctx, model.Massey)
			So(err, ShouldWrap, repository.ErrNoRatings)
		})

		Convey("A nil or unlabeled vector is rejected", func() {
			So(repo.Put(ctx, nil), ShouldWrap, repository.ErrInvalidVector)
			So(repo.Put(ctx, &model.RatingVector{}), ShouldWrap, repository.ErrInvalidVector)
		})

		Convey("When archiving vectors for two methods", func() {
			So(repo.Put(ctx, vector(model.Massey, "s1", map[string]float64{"hawks": 2, "owls": 1})), ShouldBeNil)
			So(repo.Put(ctx, vector(model.MLE, "s1", map[string]float64{"hawks": 0.5, "owls": 1.5})), ShouldBeNil)
			So(repo.Put(ctx, vector(model.Massey, "s2", map[string]float64{"hawks": 3, "owls": 0})), ShouldBeNil)

			Convey("Then Latest is per method and newest wins", func() {
				m, err := repo.Latest(ctx, model.Massey)
				So(err, ShouldBeNil)
				So(m.SnapshotID, ShouldEqual, "s2")

				b, err := repo.Latest(ctx, model.MLE)
				So(err, ShouldBeNil)
				So(b.SnapshotID, ShouldEqual, "s1")
			})

			Convey("Then History is newest first", func() {
				h := repo.History(ctx, model.Massey)
				So(len(h), ShouldEqual, 2)
				So(h[0].SnapshotID, ShouldEqual, "s2")
				So(h[1].SnapshotID, ShouldEqual, "s1")
			})
		})
	})
}

func TestRankAndLeaderboard(t *testing.T) {
	Convey("Given an archived vector", t, func() {
		ctx := context.Background()
		repo := repository.NewMemoryStore()
		So(repo.Put(ctx, vector(model.Massey, "s1", map[string]float64{
			"hawks": 10, "owls": 5, "crows": 5, "doves": 1,
		})), ShouldBeNil)

		Convey("Rank reflects rating order with name tiebreak", func() {
			top, err := repo.Rank(ctx, model.Massey, "hawks")
			So(err, ShouldBeNil)
			So(top.Rank, ShouldEqual, 1)
			So(top.Rating, ShouldEqual, 10.0)

			// crows and owls are tied; alphabetical order breaks it.
			crows, err := repo.Rank(ctx, model.Massey, "crows")
			So(err, ShouldBeNil)
			So(crows.Rank, ShouldEqual, 2)
			owls, err := repo.Rank(ctx, model.Massey, "owls")
			So(err, ShouldBeNil)
			So(owls.Rank, ShouldEqual, 3)
		})

		Convey("An unknown team is not found", func() {
			_, err := repo.Rank(ctx, model.Massey, "ravens")
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("Leaderboard truncates to the available teams", func() {
			lb, err := repo.Leaderboard(ctx, model.Massey, 2)
			So(err, ShouldBeNil)
			So(len(lb), ShouldEqual, 2)
			So(lb[0].Team, ShouldEqual, "hawks")
			So(lb[1].Team, ShouldEqual, "crows")

			all, err := repo.Leaderboard(ctx, model.Massey, 100)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 4)
		})

		Convey("A non-positive limit is rejected", func() {
			_, err := repo.Leaderboard(ctx, model.Massey, 0)
			So(err, ShouldWrap, repository.ErrInvalidLimit)
		})

		Convey("Count sees the latest vector only", func() {
			So(repo.Count(ctx, model.Massey), ShouldEqual, 4)
			So(repo.Count(ctx, model.Markov), ShouldEqual, 0)
		})
	})
}

func TestHistoryLimit(t *testing.T) {
	Convey("Given a repository keeping three vectors", t, func() {
		ctx := context.Background()
		repo := repository.NewMemoryStore(repository.WithHistoryLimit(3))

		Convey("When archiving five solves", func() {
			for i := 1; i <= 5; i++ {
				v := vector(model.Massey, fmt.Sprintf("s%d", i), map[string]float64{"hawks": float64(i)})
				So(repo.Put(ctx, v), ShouldBeNil)
			}

			Convey("Then only the newest three survive", func() {
				h := repo.History(ctx, model.Massey)
				So(len(h), ShouldEqual, 3)
				So(h[0].SnapshotID, ShouldEqual, "s5")
				So(h[2].SnapshotID, ShouldEqual, "s3")
			})
		})
	})
}
