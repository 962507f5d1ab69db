package commitment_test

import (
	"context"
	"testing"

	"github.com/okian/settle/internal/domain/commitment"
	"github.com/okian/settle/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDigest(t *testing.T) {
	Convey("Given a vector of values", t, func() {
		values := []float64{0.1, 0.5, 0.9}
		digest := commitment.Digest(values)

		Convey("Then the same vector verifies", func() {
			So(commitment.Verify(values, digest), ShouldBeTrue)
		})

		Convey("Then mutating one value rejects", func() {
			tampered := []float64{0.1, 0.5000001, 0.9}
			So(commitment.Verify(tampered, digest), ShouldBeFalse)
		})

		Convey("Then a different vector length rejects", func() {
			So(commitment.Verify(values[:2], digest), ShouldBeFalse)
		})

		Convey("Then the base64 form round-trips", func() {
			encoded := commitment.Encode(digest)
			decoded, ok := commitment.Decode(encoded)
			So(ok, ShouldBeTrue)
			So(decoded, ShouldResemble, digest)
		})
	})

	Convey("Given malformed transport forms", t, func() {
		Convey("Then garbage base64 is refused", func() {
			_, ok := commitment.Decode("not base64!!!")
			So(ok, ShouldBeFalse)
		})

		Convey("Then a short digest is refused", func() {
			_, ok := commitment.Decode("c2hvcnQ=")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	key := model.EventKey{Provider: "polymarket", ID: "cond-1"}
	values := []float64{0.2, 0.4}

	Convey("Given a book with a 2-round reveal window", t, func() {
		b := commitment.NewBook(commitment.WithRevealWindow(2))
		b.Commit(ctx, "alice", key, commitment.Digest(values), 10)

		Convey("When revealing inside the window with matching values", func() {
			ok := b.Reveal(ctx, "alice", key, values, 11)

			Convey("Then the reveal verifies", func() {
				So(ok, ShouldBeTrue)
			})

			Convey("And the verified values are takeable exactly once", func() {
				got, found := b.Take(ctx, "alice", key)
				So(found, ShouldBeTrue)
				So(got, ShouldResemble, values)

				_, found = b.Take(ctx, "alice", key)
				So(found, ShouldBeFalse)
			})
		})

		Convey("When revealing with tampered values", func() {
			ok := b.Reveal(ctx, "alice", key, []float64{0.2, 0.5}, 11)

			Convey("Then the reveal is rejected", func() {
				So(ok, ShouldBeFalse)
			})

			Convey("And the commitment was still consumed", func() {
				So(b.Reveal(ctx, "alice", key, values, 11), ShouldBeFalse)
			})
		})

		Convey("When revealing after the window", func() {
			So(b.Reveal(ctx, "alice", key, values, 13), ShouldBeFalse)
		})

		Convey("When revealing before the commitment round", func() {
			So(b.Reveal(ctx, "alice", key, values, 9), ShouldBeFalse)
		})

		Convey("When a second commit replaces the first", func() {
			other := []float64{0.9}
			b.Commit(ctx, "alice", key, commitment.Digest(other), 11)

			So(b.Reveal(ctx, "alice", key, values, 11), ShouldBeFalse)
		})

		Convey("When rounds advance past the window", func() {
			n := b.Expire(ctx, 13)

			Convey("Then stale commitments are dropped", func() {
				So(n, ShouldEqual, 1)
				So(b.Size(ctx), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a reveal with no commitment", t, func() {
		b := commitment.NewBook()
		So(b.Reveal(ctx, "ghost", key, values, 5), ShouldBeFalse)
	})

	Convey("Given verified reveals for two events", t, func() {
		other := model.EventKey{Provider: "polymarket", ID: "cond-2"}

		b := commitment.NewBook()
		b.Commit(ctx, "alice", key, commitment.Digest(values), 1)
		So(b.Reveal(ctx, "alice", key, values, 1), ShouldBeTrue)
		b.Commit(ctx, "bob", key, commitment.Digest(values), 1)
		So(b.Reveal(ctx, "bob", key, values, 1), ShouldBeTrue)
		b.Commit(ctx, "carol", other, commitment.Digest(values), 1)
		So(b.Reveal(ctx, "carol", other, values, 1), ShouldBeTrue)

		Convey("Then Revealers lists only the event's participants", func() {
			got := b.Revealers(ctx, key)
			So(len(got), ShouldEqual, 2)
			So(got, ShouldContain, "alice")
			So(got, ShouldContain, "bob")
			So(b.Revealers(ctx, other), ShouldResemble, []string{"carol"})
		})

		Convey("When the first event is dropped", func() {
			b.Commit(ctx, "dave", key, commitment.Digest(values), 1)
			b.Drop(ctx, key)

			Convey("Then its reveals and pending commitments are gone", func() {
				So(b.Revealers(ctx, key), ShouldBeEmpty)
				So(b.Size(ctx), ShouldEqual, 0)
				_, found := b.Take(ctx, "alice", key)
				So(found, ShouldBeFalse)
			})

			Convey("And the other event is untouched", func() {
				got, found := b.Take(ctx, "carol", other)
				So(found, ShouldBeTrue)
				So(got, ShouldResemble, values)
			})
		})
	})
}
