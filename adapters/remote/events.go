package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// wireEvent mirrors the daemon's SSE payload shape.
type wireEvent struct {
	Channel string      `json:"channel"`
	Path    string      `json:"path"`
	Value   value.Value `json:"value"`
}

// Subscribe opens the daemon's event stream for one channel. The feed
// channel is closed when the stream ends, whether by Close or by the
// connection dropping.
func (c *Client) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	u := fmt.Sprintf("%s/api/channels/%s/events", c.baseURL, url.PathEscape(channel))
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: create stream request: %v", property.ErrRemoteFailure, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: open event stream: %v", property.ErrRemoteFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, decodeError(resp)
	}

	sub := &streamSubscription{
		cancel: cancel,
		events: make(chan ports.Event, 64),
		done:   make(chan struct{}),
	}
	go sub.readLoop(resp)
	return sub, nil
}

type streamSubscription struct {
	cancel context.CancelFunc
	events chan ports.Event
	done   chan struct{}
	once   sync.Once
}

func (s *streamSubscription) Events() <-chan ports.Event { return s.events }

// Close cancels the stream request. The reader goroutine then closes
// the feed channel.
func (s *streamSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
	return nil
}

// readLoop parses the SSE stream line by line and forwards decoded
// events until the connection ends.
func (s *streamSubscription) readLoop(resp *http.Response) {
	defer close(s.events)
	defer resp.Body.Close()

	var dataLines []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()

		// Empty line terminates one event.
		if line == "" {
			if len(dataLines) > 0 {
				s.dispatch(strings.Join(dataLines, "\n"))
				dataLines = nil
			}
			continue
		}

		// Comments carry keepalives.
		if strings.HasPrefix(line, ":") {
			continue
		}

		colon := strings.Index(line, ":")
		if colon == -1 {
			continue
		}
		field := line[:colon]
		val := line[colon+1:]
		if len(val) > 0 && val[0] == ' ' {
			val = val[1:]
		}
		if field == "data" {
			dataLines = append(dataLines, val)
		}
	}
}

func (s *streamSubscription) dispatch(data string) {
	var ev wireEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		// A malformed frame is dropped rather than tearing the
		// stream down.
		return
	}
	select {
	case s.events <- ports.Event{Channel: ev.Channel, Path: ev.Path, Value: ev.Value}:
	case <-s.done:
	}
}

// Ensure interface compliance.
var _ ports.Subscription = (*streamSubscription)(nil)
