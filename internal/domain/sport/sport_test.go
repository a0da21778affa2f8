package sport_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtline/ratings/internal/domain/sport"
)

func TestTransforms(t *testing.T) {
	Convey("Given the signed square root", t, func() {
		Convey("It is odd and diminishing", func() {
			So(sport.SignedSqrt(9), ShouldAlmostEqual, 3)
			So(sport.SignedSqrt(-9), ShouldAlmostEqual, -3)
			So(sport.SignedSqrt(0), ShouldEqual, 0)
			// Doubling the margin does not double the response.
			So(sport.SignedSqrt(20), ShouldBeLessThan, 2*sport.SignedSqrt(10))
		})
	})

	Convey("Given a capped sigmoid", t, func() {
		tr := sport.CappedSigmoid(3.0, 4.0)

		Convey("It saturates at the cap", func() {
			So(tr(1000), ShouldAlmostEqual, 3.0, 1e-6)
			So(tr(-1000), ShouldAlmostEqual, -3.0, 1e-6)
			So(tr(0), ShouldAlmostEqual, 0)
			So(math.Abs(tr(5)), ShouldBeLessThan, 3.0)
		})
	})

	Convey("Given a policy without an explicit transform", t, func() {
		p := sport.Basketball()

		Convey("It falls back to the signed square root", func() {
			So(p.Transform(16), ShouldAlmostEqual, 4)
			So(p.Transform(-16), ShouldAlmostEqual, -4)
		})
	})

	Convey("Given the baseball policy", t, func() {
		p := sport.Baseball()

		Convey("Its transform saturates early", func() {
			So(p.Transform(50), ShouldAlmostEqual, 3.0, 1e-4)
		})
	})
}

func TestByName(t *testing.T) {
	Convey("Given the policy registry", t, func() {
		cases := []struct {
			name string
			want string
		}{
			{"basketball", "basketball"},
			{"nba", "basketball"},
			{"", "basketball"},
			{"  Football ", "football"},
			{"NFL", "football"},
			{"baseball", "baseball"},
			{"mlb", "baseball"},
		}
		for _, c := range cases {
			p, err := sport.ByName(c.name)
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, c.want)
		}

		Convey("An unknown sport is an error", func() {
			_, err := sport.ByName("curling")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPresets(t *testing.T) {
	Convey("Given the shipped presets", t, func() {
		for _, p := range []sport.Policy{sport.Basketball(), sport.Football(), sport.Baseball()} {
			So(p.Name, ShouldNotBeBlank)
			So(p.HomeAdvantage, ShouldBeGreaterThanOrEqualTo, 0)
			So(p.MarginFactor, ShouldBeGreaterThan, 0)
			So(p.CloseGameMargin, ShouldBeGreaterThan, 0)
			So(p.ProbabilityScale, ShouldBeGreaterThan, 0)
			So(p.ReferenceRating, ShouldEqual, 1500.0)
		}
	})
}
