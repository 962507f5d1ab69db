package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/settle/internal/adapters/http/api"
	"github.com/okian/settle/internal/adapters/repository"
	"github.com/okian/settle/internal/app"
	"github.com/okian/settle/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeService implements api.Dependencies and api.StatsProvider with
// canned data.
type fakeService struct {
	events    map[string]model.Event
	results   map[string]repository.Result
	forecasts []string
	reveals   bool
}

func newFakeService() *fakeService {
	key := model.EventKey{Provider: "polymarket", ID: "cond-1"}
	return &fakeService{
		events: map[string]model.Event{
			key.String(): {Key: key, Status: model.StatusPending},
		},
		results: map[string]repository.Result{},
	}
}

func (f *fakeService) SubmitForecast(ctx context.Context, participantID string, key model.EventKey, value float64) error {
	if _, ok := f.events[key.String()]; !ok {
		return app.ErrUnknownEvent
	}
	f.forecasts = append(f.forecasts, participantID)
	return nil
}

func (f *fakeService) Commit(ctx context.Context, participantID string, key model.EventKey, digestB64 string) error {
	if _, ok := f.events[key.String()]; !ok {
		return app.ErrUnknownEvent
	}
	if !strings.HasSuffix(digestB64, "=") {
		return app.ErrBadDigest
	}
	return nil
}

func (f *fakeService) Reveal(ctx context.Context, participantID string, key model.EventKey, values []float64) (bool, error) {
	if _, ok := f.events[key.String()]; !ok {
		return false, app.ErrUnknownEvent
	}
	return f.reveals, nil
}

func (f *fakeService) Event(ctx context.Context, key model.EventKey) (model.Event, bool) {
	ev, ok := f.events[key.String()]
	return ev, ok
}

func (f *fakeService) Events(ctx context.Context) []model.Event {
	out := make([]model.Event, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev)
	}
	return out
}

func (f *fakeService) Rewards(ctx context.Context, key model.EventKey) (repository.Result, error) {
	res, ok := f.results[key.String()]
	if !ok {
		return repository.Result{}, repository.ErrNotFound
	}
	return res, nil
}

func (f *fakeService) RecentRewards(ctx context.Context, limit int) ([]repository.Result, error) {
	out := make([]repository.Result, 0, len(f.results))
	for _, res := range f.results {
		out = append(out, res)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeService) Stats(ctx context.Context) map[string]any {
	return map[string]any{"started": true}
}

func newTestServer(svc *fakeService) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestForecastEndpoint(t *testing.T) {
	Convey("Given the API over a fake service", t, func() {
		svc := newFakeService()
		ts := newTestServer(svc)
		defer ts.Close()

		post := func(body string) *http.Response {
			resp, err := http.Post(ts.URL+"/forecasts", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("A valid forecast is accepted", func() {
			resp := post(`{"participant_id":"alice","event_key":"polymarket-cond-1","value":0.7}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
			So(svc.forecasts, ShouldResemble, []string{"alice"})
		})

		Convey("A forecast for an unknown event is a 404", func() {
			resp := post(`{"participant_id":"alice","event_key":"polymarket-ghost","value":0.7}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("A value outside [0, 1] is a 400", func() {
			resp := post(`{"participant_id":"alice","event_key":"polymarket-cond-1","value":1.5}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A missing participant is a 400", func() {
			resp := post(`{"event_key":"polymarket-cond-1","value":0.5}`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Malformed JSON is a 400", func() {
			resp := post(`{"participant`)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET on the endpoint is not routed", func() {
			resp, err := http.Get(ts.URL + "/forecasts")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestCommitRevealEndpoints(t *testing.T) {
	Convey("Given the API over a fake service", t, func() {
		svc := newFakeService()
		ts := newTestServer(svc)
		defer ts.Close()

		Convey("A commitment with a digest is accepted", func() {
			body := `{"participant_id":"alice","event_key":"polymarket-cond-1","digest":"YWJj="}`
			resp, err := http.Post(ts.URL+"/commitments", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
		})

		Convey("A malformed digest is a 400", func() {
			body := `{"participant_id":"alice","event_key":"polymarket-cond-1","digest":"nope"}`
			resp, err := http.Post(ts.URL+"/commitments", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A rejected reveal is a 200 with accepted=false", func() {
			svc.reveals = false
			body := `{"participant_id":"alice","event_key":"polymarket-cond-1","values":[0.1,0.2]}`
			resp, err := http.Post(ts.URL+"/reveals", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("An empty values vector is a 400", func() {
			body := `{"participant_id":"alice","event_key":"polymarket-cond-1","values":[]}`
			resp, err := http.Post(ts.URL+"/reveals", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given the API over a fake service with one result", t, func() {
		svc := newFakeService()
		key := model.EventKey{Provider: "polymarket", ID: "cond-1"}
		svc.results[key.String()] = repository.Result{
			Event:     key,
			Answer:    model.OutcomeYes,
			Rewards:   map[string]float64{"alice": 0.81},
			SettledAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		ts := newTestServer(svc)
		defer ts.Close()

		get := func(path string) *http.Response {
			resp, err := http.Get(ts.URL + path)
			So(err, ShouldBeNil)
			return resp
		}

		Convey("Listing events returns 200", func() {
			resp := get("/events")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Fetching a tracked event returns 200", func() {
			resp := get("/events/polymarket-cond-1")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Fetching an unknown event returns 404", func() {
			resp := get("/events/polymarket-ghost")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("A key without the provider separator is a 400", func() {
			resp := get("/events/justoneword")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Fetching rewards for a settled event returns 200", func() {
			resp := get("/rewards/polymarket-cond-1")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Fetching rewards for an unsettled event returns 404", func() {
			resp := get("/rewards/polymarket-other")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("Listing rewards honors the limit parameter", func() {
			resp := get("/rewards?limit=1")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			bad := get("/rewards?limit=zero")
			defer bad.Body.Close()
			So(bad.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Stats returns 200", func() {
			resp := get("/stats")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Healthz serves the metrics registry", func() {
			resp := get("/healthz")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
