package dedupe

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	Convey("Given a fresh deduper", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper()

		Convey("When recording a new id", func() {
			seen := d.SeenAndRecord(ctx, "event-1")

			Convey("Then it was not seen before and is recorded now", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the same id is a duplicate afterwards", func() {
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording distinct ids", func() {
			So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "event-2"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 2)
		})
	})
}

func TestUnrecord(t *testing.T) {
	Convey("Given a deduper with a recorded id", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper()
		So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)

		Convey("When unrecording it", func() {
			d.Unrecord(ctx, "event-1")

			Convey("Then the id can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "never-seen")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording twice", func() {
			d.Unrecord(ctx, "event-1")
			d.Unrecord(ctx, "event-1")

			Convey("Then the size never goes negative", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestEviction(t *testing.T) {
	Convey("Given a deduper bounded at three ids", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(3))

		Convey("When a fourth id arrives", func() {
			for i := 1; i <= 4; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest id was forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse) // evicted, so new again
				So(d.SeenAndRecord(ctx, "event-4"), ShouldBeTrue)
			})
		})

		Convey("When an evicted slot holds an unrecorded id", func() {
			So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			d.Unrecord(ctx, "event-1")

			Convey("Then reusing the slot does not corrupt the size", func() {
				for i := 2; i <= 5; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)), ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given eviction disabled", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(0))

		Convey("Then the seen set grows without bound", func() {
			for i := 0; i < 100; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)), ShouldBeFalse)
			}
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
