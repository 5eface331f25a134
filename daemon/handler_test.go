package daemon

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/adapters/memory"
	"github.com/artpar/confchan/domain/value"
)

func newTestServer(t *testing.T) (*memory.Store, *httptest.Server) {
	t.Helper()
	store := memory.NewStore()
	h := NewHandler(store, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h, zerolog.Nop(), RouterConfig{}))
	t.Cleanup(srv.Close)
	return store, srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetSetProperty(t *testing.T) {
	_, srv := newTestServer(t)
	url := srv.URL + "/api/channels/panel/property?path=/size"

	resp := doJSON(t, http.MethodGet, url, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get missing: status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, url, value.Int32(24))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put: status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, url, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", resp.StatusCode)
	}
	var got value.Value
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(value.Int32(24)) {
		t.Errorf("got %v, want 24", got)
	}
}

func TestSetPropertyRejectsBadInput(t *testing.T) {
	_, srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/channels/panel/property?path=/size",
		map[string]string{"type": "unset"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("put unset: status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/channels/panel/property?path=size",
		value.Int32(1))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("put relative path: status = %d, want 400", resp.StatusCode)
	}
}

func TestListProperties(t *testing.T) {
	store, srv := newTestServer(t)
	store.Seed("panel", "/plugins/clock/format", value.String("%H:%M"))
	store.Seed("panel", "/plugins/clockx", value.Int32(1))
	store.Seed("panel", "/size", value.Int32(24))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/channels/panel/properties?path=/plugins/clock", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Properties map[string]value.Value `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Properties) != 1 {
		t.Errorf("properties = %v, want only /plugins/clock/format", body.Properties)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/channels/panel/properties", nil)
	var all struct {
		Properties map[string]value.Value `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(all.Properties) != 3 {
		t.Errorf("root list size = %d, want 3", len(all.Properties))
	}
}

func TestResetProperty(t *testing.T) {
	store, srv := newTestServer(t)
	store.Seed("panel", "/plugins/clock/format", value.String("%H:%M"))
	store.Seed("panel", "/plugins/clock/tz", value.String("UTC"))

	resp := doJSON(t, http.MethodDelete,
		srv.URL+"/api/channels/panel/property?path=/plugins/clock&recursive=true", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/channels/panel/property?path=/plugins/clock/tz", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after reset: status = %d, want 404", resp.StatusCode)
	}
}

func TestIsLocked(t *testing.T) {
	store, srv := newTestServer(t)
	store.Lock("panel", "/size")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/channels/panel/locked?path=/size", nil)
	var body struct {
		Locked bool `json:"locked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Locked {
		t.Error("locked = false, want true")
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/channels/panel/property?path=/size", value.Int32(1))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("put locked: status = %d, want 500", resp.StatusCode)
	}
}

func TestListChannels(t *testing.T) {
	store, srv := newTestServer(t)
	store.Seed("panel", "/size", value.Int32(24))
	store.Seed("displays", "/brightness", value.Int32(80))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/channels", nil)
	var body struct {
		Channels []string `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"displays", "panel"}
	if len(body.Channels) != 2 || body.Channels[0] != want[0] || body.Channels[1] != want[1] {
		t.Errorf("channels = %v, want %v", body.Channels, want)
	}
}

func TestStreamEvents(t *testing.T) {
	store, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/channels/panel/events")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	// Initial comment confirms the subscription is live.
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ":") {
		t.Fatalf("greeting line = %q, err = %v", line, err)
	}

	go func() {
		// Give the reader a beat, then emit through the store.
		time.Sleep(50 * time.Millisecond)
		store.Set(t.Context(), "panel", "/size", value.Int32(24))
		store.Set(t.Context(), "displays", "/brightness", value.Int32(80))
		store.Set(t.Context(), "panel", "/mode", value.String("deskbar"))
	}()

	events := readSSEEvents(t, reader, 2)
	if events[0].Path != "/size" || !events[0].Value.Equal(value.Int32(24)) {
		t.Errorf("first event = %+v", events[0])
	}
	// The displays event must be filtered out.
	if events[1].Channel != "panel" || events[1].Path != "/mode" {
		t.Errorf("second event = %+v", events[1])
	}
}

func readSSEEvents(t *testing.T, reader *bufio.Reader, n int) []wireEvent {
	t.Helper()
	var events []wireEvent
	deadline := time.After(5 * time.Second)
	lines := make(chan string)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()
	for len(events) < n {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream ended with %d/%d events", len(events), n)
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev wireEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev); err != nil {
				t.Fatalf("decode event %q: %v", line, err)
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out with %d/%d events", len(events), n)
		}
	}
	return events
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/api/channels/panel/property": "/api/channels/{channel}/property",
		"/api/channels/panel/events":   "/api/channels/{channel}/events",
		"/api/channels":                "/api/channels",
		"/health":                      "/health",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
