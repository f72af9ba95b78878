package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeService is a scripted checking service. respond returns the frames
// sent back for one outbound message.
type fakeService struct {
	server  *httptest.Server
	respond func(action, text string) []string
	conns   atomic.Int32
	cookies chan string
	closes  chan int
}

func newFakeService(t *testing.T, respond func(action, text string) []string) *fakeService {
	t.Helper()
	f := &fakeService{
		respond: respond,
		cookies: make(chan string, 16),
		closes:  make(chan int, 16),
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.conns.Add(1)
		f.cookies <- r.Header.Get("Cookie")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					f.closes <- ce.Code
				}
				return
			}
			var msg struct {
				Action string   `json:"action"`
				Ch     []string `json:"ch"`
			}
			_ = json.Unmarshal(data, &msg)
			var text string
			if len(msg.Ch) > 0 {
				text = strings.TrimSuffix(strings.TrimPrefix(msg.Ch[0], "+0:0:"), ":0")
			}
			for _, reply := range f.respond(msg.Action, text) {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

// checker answers like a healthy service, sending alerts[text] for each submission
func checker(alerts map[string][]string) func(action, text string) []string {
	return func(action, text string) []string {
		switch action {
		case ActionStart:
			return []string{`{"action":"start","sid":1}`}
		case ActionSubmit:
			out := []string{`{"action":"submit_ot","rev":0}`, `{"action":"emotions","emotions":[]}`}
			out = append(out, alerts[text]...)
			return append(out, `{"action":"finished","score":97,"dialect":"american"}`)
		}
		return nil
	}
}

// staticCredential implements Credentialer
type staticCredential string

func (s staticCredential) Credential(context.Context) string { return string(s) }
