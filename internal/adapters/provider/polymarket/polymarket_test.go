package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/settle/internal/adapters/provider/polymarket"
	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	pageOne = `{
		"data": [
			{"condition_id": "0xaaa", "question": "Will it rain?", "market_slug": "rain", "active": true, "accepting_orders": true, "closed": false,
			 "tokens": [{"token_id": "1", "outcome": "Yes"}, {"token_id": "2", "outcome": "No"}]},
			{"condition_id": "", "question": "broken market", "market_slug": "broken", "closed": false},
			{"condition_id": "0xccc", "question": "Already done?", "market_slug": "done", "closed": true,
			 "tokens": [{"token_id": "5", "outcome": "Yes", "winner": true}]}
		],
		"next_cursor": "page2"
	}`
	pageTwo = `{
		"data": [
			{"condition_id": "0xbbb", "question": "Will it snow?", "market_slug": "snow", "active": true, "accepting_orders": true, "closed": false,
			 "tokens": [{"token_id": "3", "outcome": "Yes"}, {"token_id": "4", "outcome": "No"}]}
		],
		"next_cursor": "LTE="
	}`
)

func newUpstream() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/sampling-markets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("next_cursor") == "page2" {
			_, _ = w.Write([]byte(pageTwo))
			return
		}
		_, _ = w.Write([]byte(pageOne))
	})
	mux.HandleFunc("/markets/0xaaa", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"condition_id": "0xaaa", "question": "Will it rain?", "market_slug": "rain",
			"active": false, "closed": true,
			"tokens": [{"token_id": "1", "outcome": "Yes", "winner": true}, {"token_id": "2", "outcome": "No"}]
		}`))
	})
	mux.HandleFunc("/markets/0xddd", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"condition_id": "0xddd", "question": "Voided market", "market_slug": "void",
			"active": false, "closed": true,
			"tokens": [{"token_id": "7", "outcome": "Yes"}, {"token_id": "8", "outcome": "No"}]
		}`))
	})
	return httptest.NewServer(mux)
}

func TestClient_Candidates(t *testing.T) {
	ctx := context.Background()

	Convey("Given an upstream with two pages of markets", t, func() {
		ts := newUpstream()
		defer ts.Close()

		c := polymarket.New(polymarket.WithBaseURL(ts.URL))

		Convey("When candidates are listed", func() {
			events, err := c.Candidates(ctx, time.Time{})

			Convey("Then pagination walks to the end cursor", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(events[0].Key, ShouldResemble, model.EventKey{Provider: "polymarket", ID: "0xaaa"})
				So(events[1].Key, ShouldResemble, model.EventKey{Provider: "polymarket", ID: "0xbbb"})
			})

			Convey("And live markets come back pending without an answer", func() {
				So(events[0].Status, ShouldEqual, model.StatusPending)
				So(events[0].Answer, ShouldEqual, model.OutcomeUnknown)
				So(events[0].Description, ShouldEqual, "Will it rain?")
				So(events[0].Metadata["slug"], ShouldEqual, "rain")
			})
		})
	})

	Convey("Given an upstream returning a server error", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		c := polymarket.New(polymarket.WithBaseURL(ts.URL))
		_, err := c.Candidates(ctx, time.Time{})
		So(err, ShouldNotBeNil)
	})
}

func TestClient_Fetch(t *testing.T) {
	ctx := context.Background()

	Convey("Given an upstream with resolved markets", t, func() {
		ts := newUpstream()
		defer ts.Close()

		c := polymarket.New(polymarket.WithBaseURL(ts.URL))

		Convey("A closed market with a winner settles with that answer", func() {
			ev, err := c.Fetch(ctx, "0xaaa")
			So(err, ShouldBeNil)
			So(ev.Status, ShouldEqual, model.StatusSettled)
			So(ev.Answer, ShouldEqual, model.OutcomeYes)
		})

		Convey("A closed market without a winner is discarded", func() {
			ev, err := c.Fetch(ctx, "0xddd")
			So(err, ShouldBeNil)
			So(ev.Status, ShouldEqual, model.StatusDiscarded)
			So(ev.Answer, ShouldEqual, model.OutcomeUnknown)
		})

		Convey("An unknown id fails", func() {
			_, err := c.Fetch(ctx, "0xmissing")
			So(err, ShouldNotBeNil)
		})
	})
}
