package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"serotonyl.ru/goats-farm/internal/delay/delaytest"
	"serotonyl.ru/goats-farm/internal/retry"
	"serotonyl.ru/goats-farm/internal/transport"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func testPolicy() retry.Policy {
	logger, _ := test.NewNullLogger()
	return retry.Policy{
		Attempts: 3,
		Backoff:  time.Second,
		Classify: transport.IsTransient,
		Delay:    delaytest.New(),
		Logger:   logger,
	}
}

func newServerClient(t *testing.T, h http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tr, err := transport.New(transport.Options{Session: "test"})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	return NewClient(tr, SingleHost(srv.URL), BaseHeaders("UA/1.0"), staticToken(token), testPolicy())
}

func TestLoginSendsRawdata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Rawdata") != "user=%7B%22id%22%3A1%7D" {
			t.Errorf("Rawdata = %q", r.Header.Get("Rawdata"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		if r.Header.Get("User-Agent") != "UA/1.0" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"user":{"id":"u1","age":1200},"tokens":{"access":{"token":"acc-1","expires":"x"}}}`)
	})

	c := newServerClient(t, mux, "stale")
	res, err := c.Login(context.Background(), "user=%7B%22id%22%3A1%7D")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.OK() {
		t.Fatalf("fault: %v", res.Fault)
	}
	if got := res.Value.AccessToken(); got != "acc-1" {
		t.Fatalf("token = %q", got)
	}
}

func TestLoginWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user":{"id":"u1"}}`)
	})

	c := newServerClient(t, mux, "")
	res, err := c.Login(context.Background(), "data")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.OK() || res.Value.AccessToken() != "" {
		t.Fatalf("want ok result with empty token, got %+v", res)
	}
}

func TestBearerHeaderFromTokenSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer acc-2" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"_id":"p1","age":100,"balance":1000000}`)
	})

	c := newServerClient(t, mux, "acc-2")
	res, err := c.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if res.Value.Balance != 1_000_000 {
		t.Fatalf("balance = %d", res.Value.Balance)
	}
}

func TestFaultParsing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		tooMany    bool
		cashout    bool
		banned     bool
		wantStatus int
	}{
		{"429 json", http.StatusTooManyRequests, `{"message":"Too many requests"}`, true, false, false, 429},
		{"400 message array", http.StatusBadRequest, `{"statusCode":400,"message":["cashout","completed"]}`, false, true, false, 400},
		{"403 banned text", http.StatusForbidden, `User is banned`, false, false, true, 403},
		{"200 with error code", http.StatusOK, `{"statusCode":429,"message":"too many requests"}`, true, false, false, 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /catching-game/continue-game", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			c := newServerClient(t, mux, "acc")
			res, err := c.ContinueGame(context.Background(), 5, "g1")
			if err != nil {
				t.Fatalf("ContinueGame: %v", err)
			}
			if res.Fault == nil {
				t.Fatal("expected fault")
			}
			if res.Fault.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.Fault.StatusCode, tt.wantStatus)
			}
			if res.Fault.TooManyRequests() != tt.tooMany {
				t.Errorf("TooManyRequests = %v", res.Fault.TooManyRequests())
			}
			if res.Fault.CashoutCompleted() != tt.cashout {
				t.Errorf("CashoutCompleted = %v", res.Fault.CashoutCompleted())
			}
			if res.Fault.Banned() != tt.banned {
				t.Errorf("Banned = %v", res.Fault.Banned())
			}
		})
	}
}

func TestStartGameBodyAndDecode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /catching-game/new-game", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Location  int   `json:"location"`
			BetAmount int64 `json:"bet_amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Location != 7 || body.BetAmount != 250 {
			t.Errorf("body = %+v", body)
		}
		fmt.Fprint(w, `{"_id":"g1","bet_amount":250,"is_bomb":false,"unknown_field":{"a":1}}`)
	})

	c := newServerClient(t, mux, "acc")
	res, err := c.StartGame(context.Background(), 7, 250)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if !res.OK() {
		t.Fatalf("fault: %v", res.Fault)
	}
	if res.Value.ID != "g1" || res.Value.Balance != nil || !res.Value.Active() {
		t.Fatalf("state = %+v", res.Value)
	}
}

func TestTasksDecode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /missions/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"GOATS": [
				{"_id":"t1","name":"Join","reward":200,"status":false},
				{"_id":"t2","name":"Daily","reward":100,"status":true,"cooldown_time":1714633200},
				{"_id":"t3","name":"Done","reward":50,"status":true,"cooldown_time":null}
			]
		}`)
	})

	c := newServerClient(t, mux, "acc")
	res, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	tasks := res.Value["GOATS"]
	if len(tasks) != 3 {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].HasCooldown() || !tasks[1].HasCooldown() || tasks[2].HasCooldown() {
		t.Errorf("cooldown detection wrong: %v %v %v",
			tasks[0].HasCooldown(), tasks[1].HasCooldown(), tasks[2].HasCooldown())
	}
}

type flakyDoer struct {
	failures int
	calls    int
	resp     *transport.Response
}

func (f *flakyDoer) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, context.DeadlineExceeded
	}
	return f.resp, nil
}

func TestCallRetriesTransient(t *testing.T) {
	d := &flakyDoer{failures: 2, resp: &transport.Response{Status: 200, Body: []byte(`{"point":5,"totalEarn":5000000}`)}}
	c := NewClient(d, SingleHost("http://example"), nil, staticToken("acc"), testPolicy())

	res, err := c.GetPassInfo(context.Background())
	if err != nil {
		t.Fatalf("GetPassInfo: %v", err)
	}
	if d.calls != 3 {
		t.Errorf("calls = %d, want 3", d.calls)
	}
	if got := res.Value.GamblingProgress(); got != 50 {
		t.Errorf("progress = %v, want 50", got)
	}
}

func TestCallExhausted(t *testing.T) {
	d := &flakyDoer{failures: 10}
	c := NewClient(d, SingleHost("http://example"), nil, staticToken("acc"), testPolicy())

	_, err := c.GetCinemaRemaining(context.Background())
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
	if d.calls != 3 {
		t.Errorf("calls = %d, want 3", d.calls)
	}
}

func TestGamblingProgressCapped(t *testing.T) {
	p := PassInfo{TotalEarn: 25_000_000}
	if got := p.GamblingProgress(); got != 100 {
		t.Fatalf("progress = %v, want 100", got)
	}
}
