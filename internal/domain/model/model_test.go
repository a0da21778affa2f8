package model_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtline/ratings/internal/domain/model"
)

func TestGameRecord(t *testing.T) {
	Convey("Given a finished game", t, func() {
		g := model.GameRecord{TeamA: "hawks", TeamB: "owls", ScoreA: 90, ScoreB: 85}

		Convey("Margin is positive when the first team won", func() {
			So(g.Margin(), ShouldEqual, 5)
		})

		Convey("Winner names the winning side", func() {
			So(g.Winner(), ShouldEqual, "hawks")

			g.ScoreB = 95
			So(g.Winner(), ShouldEqual, "owls")

			g.ScoreB = 90
			So(g.Winner(), ShouldBeBlank)
		})

		Convey("Involves matches both participants and nobody else", func() {
			So(g.Involves("hawks"), ShouldBeTrue)
			So(g.Involves("owls"), ShouldBeTrue)
			So(g.Involves("crows"), ShouldBeFalse)
		})
	})
}

func TestRatingVector(t *testing.T) {
	Convey("Given rating vectors", t, func() {
		Convey("A vector without ratings is empty", func() {
			So(model.RatingVector{Method: model.Massey}.Empty(), ShouldBeTrue)
			So(model.RatingVector{Ratings: map[string]float64{}}.Empty(), ShouldBeTrue)
		})

		Convey("A vector with ratings is not", func() {
			v := model.RatingVector{Ratings: map[string]float64{"hawks": 1}}
			So(v.Empty(), ShouldBeFalse)
		})
	})
}
