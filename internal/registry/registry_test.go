package registry_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/internal/registry"
	"github.com/okian/settle/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func pending(id string) model.Event {
	return model.Event{
		Key:         model.EventKey{Provider: "polymarket", ID: id},
		Description: "test market " + id,
		Status:      model.StatusPending,
	}
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty registry", t, func() {
		r := registry.New()

		Convey("When an event is registered", func() {
			fresh := r.Register(ctx, pending("a"))

			Convey("Then it reports a fresh insert", func() {
				So(fresh, ShouldBeTrue)
				So(r.Len(ctx), ShouldEqual, 1)
			})

			Convey("And registering the same key again falls through to update", func() {
				ev := pending("a")
				ev.Description = "renamed"
				So(r.Register(ctx, ev), ShouldBeFalse)

				got, ok := r.Get(ctx, ev.Key)
				So(ok, ShouldBeTrue)
				So(got.Description, ShouldEqual, "renamed")
				So(r.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a non-settled event arrives carrying an answer", func() {
			ev := pending("b")
			ev.Answer = model.OutcomeYes
			r.Register(ctx, ev)

			Convey("Then the answer is cleared on store", func() {
				got, _ := r.Get(ctx, ev.Key)
				So(got.Answer, ShouldEqual, model.OutcomeUnknown)
			})
		})
	})
}

func TestRegistry_Update(t *testing.T) {
	ctx := context.Background()

	Convey("Given a registry with a pending event", t, func() {
		r := registry.New()
		r.Register(ctx, pending("a"))
		key := model.EventKey{Provider: "polymarket", ID: "a"}

		Convey("When the event settles", func() {
			ev := pending("a")
			ev.Status = model.StatusSettled
			ev.Answer = model.OutcomeYes
			So(r.Update(ctx, ev), ShouldBeTrue)

			Convey("Then the stored event carries the answer", func() {
				got, _ := r.Get(ctx, key)
				So(got.Status, ShouldEqual, model.StatusSettled)
				So(got.Answer, ShouldEqual, model.OutcomeYes)
			})

			Convey("And further updates are refused", func() {
				back := pending("a")
				So(r.Update(ctx, back), ShouldBeFalse)

				got, _ := r.Get(ctx, key)
				So(got.Status, ShouldEqual, model.StatusSettled)
			})
		})

		Convey("When updating an unknown key", func() {
			So(r.Update(ctx, pending("ghost")), ShouldBeFalse)
		})
	})
}

func TestRegistry_OnChange(t *testing.T) {
	ctx := context.Background()

	Convey("Given a registry with a change hook", t, func() {
		r := registry.New()
		var fired []model.Event
		r.OnChange(func(ev model.Event) { fired = append(fired, ev) })

		Convey("When a fresh event is registered", func() {
			r.Register(ctx, pending("a"))

			Convey("Then the hook stays quiet", func() {
				So(fired, ShouldBeEmpty)
			})
		})

		Convey("When a tracked event is updated", func() {
			r.Register(ctx, pending("a"))
			ev := pending("a")
			ev.Status = model.StatusSettled
			ev.Answer = model.OutcomeNo
			r.Update(ctx, ev)

			Convey("Then the hook receives the committed snapshot", func() {
				So(len(fired), ShouldEqual, 1)
				So(fired[0].Status, ShouldEqual, model.StatusSettled)
				So(fired[0].Answer, ShouldEqual, model.OutcomeNo)
			})
		})
	})
}

func TestRegistry_RegisterEvictRace(t *testing.T) {
	ctx := context.Background()

	Convey("Given register and evict hammering one settled key", t, func() {
		r := registry.New()
		key := model.EventKey{Provider: "polymarket", ID: "flappy"}

		settled := pending("flappy")
		settled.Status = model.StatusSettled
		settled.Answer = model.OutcomeYes

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r.Register(ctx, settled)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r.Evict(ctx, key)
			}
		}()
		wg.Wait()

		Convey("Then the registry ends in a consistent state", func() {
			So(r.Len(ctx), ShouldBeLessThanOrEqualTo, 1)
			if got, ok := r.Get(ctx, key); ok {
				So(got.Status, ShouldEqual, model.StatusSettled)
				So(got.Answer, ShouldEqual, model.OutcomeYes)
			}
		})
	})
}

func TestRegistry_LifecycleInvariantProperty(t *testing.T) {
	ctx := context.Background()

	Convey("Given a random sequence of registers and updates", t, func() {
		rng := rand.New(rand.NewSource(20260301)) //nolint:gosec // reproducible sequence, no crypto need
		statuses := []model.EventStatus{
			model.StatusUnknown,
			model.StatusPending,
			model.StatusSettled,
			model.StatusDiscarded,
		}
		outcomes := []model.Outcome{model.OutcomeUnknown, model.OutcomeYes, model.OutcomeNo}

		r := registry.New()
		terminal := make(map[string]model.EventStatus)

		for i := 0; i < 500; i++ {
			ev := pending(fmt.Sprintf("k%d", rng.Intn(6)))
			ev.Status = statuses[rng.Intn(len(statuses))]
			ev.Answer = outcomes[rng.Intn(len(outcomes))]

			if rng.Intn(2) == 0 {
				r.Register(ctx, ev)
			} else {
				r.Update(ctx, ev)
			}

			got, ok := r.Get(ctx, ev.Key)
			if !ok {
				continue
			}
			if got.Answer != model.OutcomeUnknown {
				So(got.Status, ShouldEqual, model.StatusSettled)
			}
			if prev, seen := terminal[ev.Key.String()]; seen {
				So(got.Status, ShouldEqual, prev)
			} else if got.Status.Terminal() {
				terminal[ev.Key.String()] = got.Status
			}
		}

		Convey("Then every surviving event still honors answer-iff-settled", func() {
			for _, ev := range r.List(ctx) {
				if ev.Answer != model.OutcomeUnknown {
					So(ev.Status, ShouldEqual, model.StatusSettled)
				}
			}
		})
	})
}

func TestRegistry_PendingAndEvict(t *testing.T) {
	ctx := context.Background()

	Convey("Given a registry with mixed statuses", t, func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		r := registry.New(registry.WithClock(func() time.Time { return now }))

		r.Register(ctx, pending("live"))
		r.Register(ctx, pending("done"))
		settled := pending("done")
		settled.Status = model.StatusSettled
		settled.Answer = model.OutcomeYes
		r.Update(ctx, settled)

		Convey("Then Pending lists only the live event", func() {
			got := r.Pending(ctx)
			So(len(got), ShouldEqual, 1)
			So(got[0].Key.ID, ShouldEqual, "live")
			So(got[0].LastUpdatedAt, ShouldEqual, now)
		})

		Convey("Then a terminal event can be evicted", func() {
			So(r.Evict(ctx, settled.Key), ShouldBeTrue)
			So(r.Len(ctx), ShouldEqual, 1)
		})

		Convey("Then a live event cannot be evicted", func() {
			So(r.Evict(ctx, model.EventKey{Provider: "polymarket", ID: "live"}), ShouldBeFalse)
			So(r.Len(ctx), ShouldEqual, 2)
		})

		Convey("Then snapshot and restore preserve state", func() {
			snap := r.Snapshot(ctx)

			other := registry.New()
			other.Restore(ctx, snap)
			So(other.Len(ctx), ShouldEqual, 2)

			got, ok := other.Get(ctx, settled.Key)
			So(ok, ShouldBeTrue)
			So(got.Answer, ShouldEqual, model.OutcomeYes)
		})
	})
}
