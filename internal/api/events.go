package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/txflow"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Message is one frame on the event stream.
type Message struct {
	Type    string           `json:"type"` // "session" or "form"
	Session *sessionResponse `json:"session,omitempty"`
	Form    *txflow.Snapshot `json:"form,omitempty"`
}

type hub struct {
	log    *logrus.Entry
	unsubs []func()

	mu      sync.Mutex
	clients map[chan Message]struct{}
	closed  bool
}

func newHub(sessions *session.Manager, forms *txflow.Forms, log *logrus.Entry) *hub {
	h := &hub{log: log, clients: make(map[chan Message]struct{})}
	if sessions != nil {
		h.unsubs = append(h.unsubs, sessions.Subscribe(func(s *session.Session) {
			body := sessionBody(s)
			h.broadcast(Message{Type: "session", Session: &body})
		}))
	}
	if forms != nil {
		h.unsubs = append(h.unsubs, forms.Subscribe(func(ev txflow.Event) {
			snap := ev.Snapshot
			h.broadcast(Message{Type: "form", Form: &snap})
		}))
	}
	return h
}

func (h *hub) add() chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Message, clientBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	h.clients[ch] = struct{}{}
	return ch
}

func (h *hub) remove(ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// broadcast never blocks; a client that falls behind loses frames.
func (h *hub) broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- m:
		default:
			h.log.WithField("type", m.Type).Warn("event client too slow, dropping frame")
		}
	}
}

func (h *hub) close() {
	for _, u := range h.unsubs {
		u()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// events streams session and form changes. The first frames are the
// current session and both forms.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.hub.add()
	defer s.hub.remove(ch)

	// The stream is one-way; reading only notices the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	body := sessionBody(s.Sessions.Current())
	initial := []Message{{Type: "session", Session: &body}}
	for _, snap := range s.Forms.Snapshots() {
		snap := snap
		initial = append(initial, Message{Type: "form", Form: &snap})
	}
	for _, m := range initial {
		if err := write(conn, m); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case m, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
					time.Now().Add(writeTimeout))
				return
			}
			if err := write(conn, m); err != nil {
				s.Log.WithError(err).Debug("event client write failed")
				return
			}
		}
	}
}

func write(conn *websocket.Conn, m Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(m)
}
