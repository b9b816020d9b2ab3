package ingestor

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/igpdata/sismosync/internal/feed"
	"github.com/igpdata/sismosync/internal/sismo"
)

type fakeFeed struct {
	body     string
	err      error
	gotLimit int
}

func (f *fakeFeed) FetchRecent(limit int) ([]gjson.Result, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return gjson.Get(f.body, "features").Array(), nil
}

type fakeStore struct {
	got    []sismo.Sismo
	called bool
	err    error
}

func (s *fakeStore) ReplaceAll(ss []sismo.Sismo) error {
	s.called = true
	if s.err != nil {
		return s.err
	}
	s.got = ss
	return nil
}

const feedBody = `{"features": [
	{"attributes": {"code": 2024115, "fechaevento": 1700000000000, "hora": "17:13:20",
		"ref": "15 km al SO de Mala, Cañete - Lima", "magnitud": 4.5, "int_": "III",
		"prof": 42, "profundidad": "Superficial", "departamento": "LIMA",
		"sentido": "Sentido", "ultimo": "1"}},
	{"attributes": {"code": null, "fechaevento": null, "hora": null, "ref": null,
		"magnitud": null, "int_": null, "prof": null, "profundidad": null,
		"departamento": null, "sentido": null, "ultimo": null}}
]}`

func TestHandle(t *testing.T) {

	tt := []struct {
		name        string
		feedErr     error
		storeErr    error
		status      int
		count       int
		storeCalled bool
		err         string
	}{
		{name: "happy", status: http.StatusOK, count: 2, storeCalled: true},
		{name: "feed down", feedErr: errors.New("could not fetch from feed: timeout"),
			status: http.StatusInternalServerError, err: "could not fetch from feed: timeout"},
		{name: "store down", storeErr: errors.New("could not insert batch: throttled"),
			status: http.StatusInternalServerError, storeCalled: true,
			err: "could not insert batch: throttled"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			ff := &fakeFeed{body: feedBody, err: tc.feedErr}
			fs := &fakeStore{err: tc.storeErr}

			resp, err := NewHandler(ff, fs).Handle(nil)
			if err != nil {
				t.Fatalf("handler returned a Go error: %v", err)
			}

			if resp.StatusCode != tc.status {
				t.Errorf("expected status %v, got %v", tc.status, resp.StatusCode)
			}
			if ct := resp.Headers["Content-Type"]; ct != "application/json; charset=utf-8" {
				t.Errorf("wrong content type: %v", ct)
			}
			if ao := resp.Headers["Access-Control-Allow-Origin"]; ao != "*" {
				t.Errorf("wrong origin header: %v", ao)
			}
			if fs.called != tc.storeCalled {
				t.Errorf("expected store called %v, got %v", tc.storeCalled, fs.called)
			}

			if tc.err != "" {
				if got := gjson.Get(resp.Body, "error").String(); got != tc.err {
					t.Errorf("expected error body %q, got %q", tc.err, got)
				}
				return
			}

			if ff.gotLimit != 10 {
				t.Errorf("expected limit 10, got %v", ff.gotLimit)
			}

			records := gjson.Parse(resp.Body).Array()
			if len(records) != tc.count {
				t.Fatalf("expected %v records in body, got %v", tc.count, len(records))
			}
			if len(fs.got) != tc.count {
				t.Fatalf("expected %v records stored, got %v", tc.count, len(fs.got))
			}

			first := records[0]
			if v := first.Get("codigo").String(); v != "2024115" {
				t.Errorf("expected codigo 2024115, got %v", v)
			}
			if v := first.Get("fechaEvento").String(); v != "2023-11-14T22:13:20" {
				t.Errorf("expected converted fechaEvento, got %v", v)
			}

			// the all-null feature still yields a complete row
			second := records[1].Map()
			if len(second) != 12 {
				t.Errorf("expected 12 fields, got %v", len(second))
			}
			for k, v := range second {
				if k == "id" {
					continue
				}
				if v.String() != "" {
					t.Errorf("expected empty %v, got %v", k, v.String())
				}
			}
		})
	}
}

func TestHandleEmptyFeed(t *testing.T) {

	ff := &fakeFeed{body: `{"features": []}`}
	fs := &fakeStore{}

	resp, _ := NewHandler(ff, fs).Handle(nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", resp.StatusCode)
	}
	if resp.Body != "[]" {
		t.Errorf("expected empty array body, got %v", resp.Body)
	}
	if !fs.called {
		t.Error("expected the store to be cleared")
	}
}

// A feed timeout surfaces as a 500 and the store is never touched.
func TestHandleFeedTimeout(t *testing.T) {

	testSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer testSrv.Close()

	os.Setenv("ARCGIS_URL", testSrv.URL)
	defer os.Unsetenv("ARCGIS_URL")

	fc, err := feed.NewClient(&http.Client{Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("could not create feed client: %v", err)
	}

	fs := &fakeStore{}
	resp, err := NewHandler(fc, fs).Handle(nil)
	if err != nil {
		t.Fatalf("handler returned a Go error: %v", err)
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", resp.StatusCode)
	}
	if msg := gjson.Get(resp.Body, "error").String(); !strings.Contains(msg, "could not fetch from feed") {
		t.Errorf("unexpected error body: %v", resp.Body)
	}
	if fs.called {
		t.Error("store must not be touched when the fetch fails")
	}
}
