package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	github "github.com/okian/gitrank/internal/adapters/github"
	api "github.com/okian/gitrank/internal/adapters/http/api"
	repository "github.com/okian/gitrank/internal/adapters/repository"
	app "github.com/okian/gitrank/internal/app"
	"github.com/okian/gitrank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps implements api.Dependencies with canned data.
type stubDeps struct {
	entries      []api.Entry
	registered   map[string]bool
	cycleRunning bool
	status       types.CycleStatus
	stats        types.Stats
}

func newStubDeps() *stubDeps {
	return &stubDeps{
		registered: make(map[string]bool),
		status:     types.CycleStatus{State: "idle"},
	}
}

func (d *stubDeps) RegisterUser(_ context.Context, username string) error {
	if d.registered[username] {
		return fmt.Errorf("register %q: %w", username, repository.ErrAlreadyRegistered)
	}
	if strings.HasPrefix(username, "ghost") {
		return fmt.Errorf("get /users/%s: %w", username, github.ErrNotFound)
	}
	d.registered[username] = true
	return nil
}

func (d *stubDeps) Leaderboard(_ context.Context, n int) ([]api.Entry, error) {
	if n > len(d.entries) {
		n = len(d.entries)
	}
	return d.entries[:n], nil
}

func (d *stubDeps) Rank(_ context.Context, username string) (api.Entry, error) {
	for _, e := range d.entries {
		if e.Username == username {
			return e, nil
		}
	}
	return api.Entry{}, fmt.Errorf("rank for %q: %w", username, repository.ErrNotFound)
}

func (d *stubDeps) RunNow(_ context.Context) error {
	if d.cycleRunning {
		return app.ErrCycleRunning
	}
	return nil
}

func (d *stubDeps) Status() types.CycleStatus {
	return d.status
}

func (d *stubDeps) GetStats(_ context.Context) (types.Stats, error) {
	return d.stats, nil
}

func newTestServer(deps api.Dependencies) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, 100).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestServer_Leaderboard(t *testing.T) {
	Convey("Given a server with three ranked users", t, func() {
		deps := newStubDeps()
		deps.entries = []api.Entry{
			{Rank: 1, Username: "bob", Score: 75, Achievements: []string{"PR Master"}, LastUpdated: time.Now()},
			{Rank: 2, Username: "alice", Score: 50},
			{Rank: 3, Username: "carol", Score: 0},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("When requesting the top two", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=2")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should return them in rank order", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var entries []api.Entry
				So(json.NewDecoder(resp.Body).Decode(&entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Username, ShouldEqual, "bob")
				So(entries[0].Achievements, ShouldResemble, []string{"PR Master"})
			})
		})

		Convey("When the limit is missing or invalid", func() {
			for _, target := range []string{"/leaderboard", "/leaderboard?limit=0", "/leaderboard?limit=abc"} {
				resp, err := http.Get(srv.URL + target)
				So(err, ShouldBeNil)
				resp.Body.Close()

				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the limit exceeds the configured maximum", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=1000")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestServer_Rank(t *testing.T) {
	Convey("Given a server with one ranked user", t, func() {
		deps := newStubDeps()
		deps.entries = []api.Entry{{Rank: 1, Username: "octo", Score: 81}}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("When requesting a known user", func() {
			resp, err := http.Get(srv.URL + "/rank/octo")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should return the entry", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var entry api.Entry
				So(json.NewDecoder(resp.Body).Decode(&entry), ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Score, ShouldEqual, 81.0)
			})
		})

		Convey("When requesting an unknown user", func() {
			resp, err := http.Get(srv.URL + "/rank/ghost")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should answer 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the path parameter is malformed", func() {
			resp, err := http.Get(srv.URL + "/rank/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should answer 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestServer_RegisterUser(t *testing.T) {
	Convey("Given a server", t, func() {
		deps := newStubDeps()
		srv := newTestServer(deps)
		Reset(srv.Close)

		post := func(body string) *http.Response {
			resp, err := http.Post(srv.URL+"/users", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When registering a valid user", func() {
			resp := post(`{"username":"octo"}`)
			defer resp.Body.Close()

			Convey("Then it should answer 201", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(deps.registered["octo"], ShouldBeTrue)
			})
		})

		Convey("When registering the same user twice", func() {
			post(`{"username":"octo"}`).Body.Close()
			resp := post(`{"username":"octo"}`)
			defer resp.Body.Close()

			Convey("Then it should answer 409", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the GitHub profile does not exist", func() {
			resp := post(`{"username":"ghost"}`)
			defer resp.Body.Close()

			Convey("Then it should answer 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the body is malformed", func() {
			for _, body := range []string{``, `{}`, `{"username":"  "}`, `{"username":"a b"}`, `not json`} {
				resp := post(body)
				resp.Body.Close()

				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestServer_Cycles(t *testing.T) {
	Convey("Given a server with an idle scheduler", t, func() {
		deps := newStubDeps()
		deps.status = types.CycleStatus{
			State:    "completed",
			CycleID:  "cycle-1",
			Outcomes: map[string]int{"success": 10},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("When triggering a cycle", func() {
			resp, err := http.Post(srv.URL+"/cycles", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should answer 202", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When a cycle is already running", func() {
			deps.cycleRunning = true
			resp, err := http.Post(srv.URL+"/cycles", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should answer 409", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When asking for the cycle status", func() {
			resp, err := http.Get(srv.URL + "/cycles/status")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should serialize the snapshot", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var status types.CycleStatus
				So(json.NewDecoder(resp.Body).Decode(&status), ShouldBeNil)
				So(status.State, ShouldEqual, "completed")
				So(status.Outcomes["success"], ShouldEqual, 10)
			})
		})
	})
}

func TestServer_Stats(t *testing.T) {
	Convey("Given a server with stats", t, func() {
		deps := newStubDeps()
		deps.stats = types.Stats{
			RegisteredUsers: 42,
			UpdateInterval:  "6h0m0s",
			WorkerCount:     4,
			BudgetRemaining: 4900,
			LastCycle:       types.CycleStatus{State: "completed"},
		}
		srv := newTestServer(deps)
		Reset(srv.Close)

		Convey("When requesting stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should serialize the aggregate state", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var stats types.Stats
				So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
				So(stats.RegisteredUsers, ShouldEqual, 42)
				So(stats.LastCycle.State, ShouldEqual, "completed")
			})
		})
	})
}
