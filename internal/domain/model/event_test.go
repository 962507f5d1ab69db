package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/settle/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEventKey(t *testing.T) {
	Convey("Given the canonical provider-id key form", t, func() {
		key := model.EventKey{Provider: "polymarket", ID: "0xabc"}

		Convey("String renders it and ParseEventKey reverses it", func() {
			So(key.String(), ShouldEqual, "polymarket-0xabc")

			parsed, ok := model.ParseEventKey("polymarket-0xabc")
			So(ok, ShouldBeTrue)
			So(parsed, ShouldResemble, key)
		})

		Convey("Dashes inside the id stay with the id", func() {
			parsed, ok := model.ParseEventKey("polymarket-cond-with-dashes")
			So(ok, ShouldBeTrue)
			So(parsed.Provider, ShouldEqual, "polymarket")
			So(parsed.ID, ShouldEqual, "cond-with-dashes")
		})

		Convey("A form without a separator is rejected", func() {
			_, ok := model.ParseEventKey("justoneword")
			So(ok, ShouldBeFalse)
		})

		Convey("Empty halves are rejected", func() {
			_, ok := model.ParseEventKey("-0xabc")
			So(ok, ShouldBeFalse)
			_, ok = model.ParseEventKey("polymarket-")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestStatusAndOutcome(t *testing.T) {
	Convey("Given the lifecycle statuses", t, func() {
		Convey("Only settled and discarded are terminal", func() {
			So(model.StatusSettled.Terminal(), ShouldBeTrue)
			So(model.StatusDiscarded.Terminal(), ShouldBeTrue)
			So(model.StatusPending.Terminal(), ShouldBeFalse)
			So(model.StatusUnknown.Terminal(), ShouldBeFalse)
		})

		Convey("They serialize by name and round-trip", func() {
			ev := model.Event{
				Key:           model.EventKey{Provider: "polymarket", ID: "0xabc"},
				Status:        model.StatusSettled,
				Answer:        model.OutcomeNo,
				LastUpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			}

			raw, err := json.Marshal(ev)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"status":"settled"`)
			So(string(raw), ShouldContainSubstring, `"answer":"no"`)

			var back model.Event
			So(json.Unmarshal(raw, &back), ShouldBeNil)
			So(back.Status, ShouldEqual, model.StatusSettled)
			So(back.Answer, ShouldEqual, model.OutcomeNo)
		})

		Convey("An unrecognized status name degrades to unknown", func() {
			var s model.EventStatus
			So(json.Unmarshal([]byte(`"halted"`), &s), ShouldBeNil)
			So(s, ShouldEqual, model.StatusUnknown)
		})
	})
}
