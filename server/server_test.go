package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/luhtfiimanal/go-ssr"
)

type fakeEvents []ssr.Event

func (f fakeEvents) List(limit int) ([]ssr.Event, error) {
	if limit > 0 && limit < len(f) {
		return f[:limit], nil
	}
	return f, nil
}

func newTestServer(t *testing.T, events EventLister) (*HTTPServer, *ssr.LogicalDevice, *ssr.MemDevice, *ssr.MemDevice) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	opts := ssr.DefaultOptions()
	opts.Capacity = 16
	opts.DataRegionSize = 16 * 512
	opts.Format = true
	opts.Logger = log.New(io.Discard, "", 0)
	g := opts.Geometry()
	a, b := ssr.NewMemDevice(g.MirrorSize()), ssr.NewMemDevice(g.MirrorSize())
	dev, err := ssr.New(a, b, opts)
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return NewHTTPServer("127.0.0.1:0", NewHandler(dev, events)), dev, a, b
}

func do(s *HTTPServer, method, target string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, target, body))
	return w
}

func TestWriteThenReadSectors(t *testing.T) {
	s, _, _, _ := newTestServer(t, nil)

	payload := bytes.Repeat([]byte{0xAA}, 1024)
	w := do(s, http.MethodPut, "/v1/device/sectors/2", bytes.NewReader(payload))
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status %d: %s", w.Code, w.Body)
	}

	w = do(s, http.MethodGet, "/v1/device/sectors/2?count=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status %d: %s", w.Code, w.Body)
	}
	if !bytes.Equal(w.Body.Bytes(), payload) {
		t.Fatal("read back different data")
	}

	w = do(s, http.MethodGet, "/v1/device/sectors/0", nil)
	if w.Code != http.StatusOK || w.Body.Len() != 512 {
		t.Fatalf("GET sector 0: status %d, %d bytes", w.Code, w.Body.Len())
	}
}

func TestErrorStatuses(t *testing.T) {
	s, _, _, _ := newTestServer(t, nil)

	cases := []struct {
		name, method, target string
		body                 []byte
		want                 int
	}{
		{"bad sector", http.MethodGet, "/v1/device/sectors/abc", nil, http.StatusBadRequest},
		{"bad count", http.MethodGet, "/v1/device/sectors/0?count=0", nil, http.StatusBadRequest},
		{"out of range", http.MethodGet, "/v1/device/sectors/16", nil, http.StatusRequestedRangeNotSatisfiable},
		{"range past end", http.MethodGet, "/v1/device/sectors/15?count=2", nil, http.StatusRequestedRangeNotSatisfiable},
		{"unaligned", http.MethodPut, "/v1/device/sectors/0", []byte("short"), http.StatusBadRequest},
		{"negative", http.MethodPut, "/v1/device/sectors/-1", make([]byte, 512), http.StatusRequestedRangeNotSatisfiable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(s, tc.method, tc.target, bytes.NewReader(tc.body))
			if w.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tc.want, w.Body)
			}
		})
	}
}

func TestUnrecoverableSector(t *testing.T) {
	s, dev, a, b := newTestServer(t, nil)
	off := dev.Geometry().DataOffset(5)
	a.Poke(off, []byte{1})
	b.Poke(off, []byte{2})

	w := do(s, http.MethodGet, "/v1/device/sectors/5", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", w.Code, w.Body)
	}
}

func TestScrubRepairsAndStats(t *testing.T) {
	s, dev, _, b := newTestServer(t, nil)
	b.Poke(dev.Geometry().DataOffset(3), []byte{0xff})

	w := do(s, http.MethodPost, "/v1/device/scrub", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scrub status %d: %s", w.Code, w.Body)
	}
	var rep ssr.ScrubReport
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Scanned != 16 || len(rep.Repaired) != 1 || rep.Repaired[0] != 3 {
		t.Fatalf("report = %+v", rep)
	}

	w = do(s, http.MethodGet, "/v1/device/stats", nil)
	var st ssr.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Repairs != 1 || st.ChecksumMismatches != 1 {
		t.Fatalf("stats = %+v", st)
	}

	w = do(s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ssr_repairs_total") {
		t.Fatalf("metrics missing repairs counter:\n%s", w.Body)
	}

	w = do(s, http.MethodPost, "/v1/device/flush", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("flush status %d", w.Code)
	}
}

func TestInfo(t *testing.T) {
	s, dev, _, _ := newTestServer(t, nil)
	w := do(s, http.MethodGet, "/v1/device", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var info struct {
		ID       string       `json:"id"`
		Geometry ssr.Geometry `json:"geometry"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.ID != dev.ID().String() || info.Geometry != dev.Geometry() {
		t.Fatalf("info = %+v", info)
	}
}

func TestEvents(t *testing.T) {
	s, _, _, _ := newTestServer(t, nil)
	if w := do(s, http.MethodGet, "/v1/device/events", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status without journal %d, want 404", w.Code)
	}

	evs := fakeEvents{
		{Kind: ssr.EventRepaired, Sector: 9},
		{Kind: ssr.EventUnrecoverable, Sector: 4},
	}
	s, _, _, _ = newTestServer(t, evs)
	w := do(s, http.MethodGet, "/v1/device/events?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var got []ssr.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Sector != 9 {
		t.Fatalf("events = %+v", got)
	}
}
