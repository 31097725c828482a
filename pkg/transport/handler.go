package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"companion-notes/pkg/domain"
	"companion-notes/pkg/session"
	"companion-notes/pkg/summary"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultMaxMessageBytes  = 1 << 20
	writeTimeout            = 5 * time.Second
)

// Summarizer turns a finished session into study points.
// Implemented by summary.Service.
type Summarizer interface {
	Summarize(ctx context.Context, in summary.SummarizeInput) (summary.Result, error)
}

// Handler accepts voice-transport events over a WebSocket and drives one
// session.Controller per connection.
type Handler struct {
	Notes     session.NoteSaver
	Snapshots session.SnapshotStore
	History   session.HistoryStore

	// Summaries, when set, summarizes the transcript after the call ends.
	Summaries Summarizer

	HandshakeTimeout time.Duration
	MaxMessageBytes  int64
	AllowedOrigins   []string
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(v); err != nil {
		log.Printf("transport: write failed: %v", err)
	}
}

func (c *conn) fail(code, message string) {
	c.send(ErrorFrame{Type: TypeError, Code: code, Message: message})

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(writeTimeout))
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects or the call ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: h.originAllowed}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	maxBytes := h.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxMessageBytes
	}
	ws.SetReadLimit(maxBytes)

	c := &conn{ws: ws}
	ctx := r.Context()

	hello, err := h.readHello(ws)
	if err != nil {
		c.fail("bad_request", err.Error())
		return
	}

	ctrl, err := h.newController(c, hello)
	if err != nil {
		c.fail("bad_request", err.Error())
		return
	}
	if err := ctrl.Connect(ctx); err != nil {
		log.Printf("transport: %v", err)
	}
	c.send(HelloAck{Type: TypeHelloAck, SessionKey: ctrl.SnapshotKey(), SavedPoints: len(ctrl.SeenKeys()), AutoSave: ctrl.AutoSave()})

	h.readLoop(ctx, c, ctrl, hello)
}

func (h *Handler) readHello(ws *websocket.Conn) (Hello, error) {
	timeout := h.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	_ = ws.SetReadDeadline(time.Now().Add(timeout))
	defer ws.SetReadDeadline(time.Time{})

	messageType, data, err := ws.ReadMessage()
	if err != nil {
		return Hello{}, errors.New("failed to read hello")
	}
	if messageType != websocket.TextMessage {
		return Hello{}, errors.New("first frame must be hello")
	}

	var hello Hello
	if err := json.Unmarshal(data, &hello); err != nil || hello.Type != TypeHello {
		return Hello{}, errors.New("first frame must be hello")
	}
	if strings.TrimSpace(hello.CompanionID) == "" {
		return Hello{}, errors.New("companionId is required")
	}
	return hello, nil
}

func (h *Handler) newController(c *conn, hello Hello) (*session.Controller, error) {
	path := hello.notesPath()

	cfg := session.Config{
		UserID:      hello.UserID,
		CompanionID: hello.CompanionID,
		SessionID:   hello.SessionID,
		Topic:       hello.Topic,
		Subject:     hello.Subject,
		Path:        path,
		Notes:       h.Notes,
		Snapshots:   h.Snapshots,
		History:     h.History,
		OnRefresh: func() {
			c.send(Refresh{Type: TypeRefresh, Path: path})
		},
		OnKeyPointsSaved: func(keys []string) {
			c.send(NotesSaved{Type: TypeNotesSaved, Points: keys})
		},
	}
	if hello.AutoSave != nil {
		cfg.DisableAutoSave = !*hello.AutoSave
	}

	return session.NewController(cfg)
}

func (h *Handler) readLoop(ctx context.Context, c *conn, ctrl *session.Controller, hello Hello) {
	// Saves still running when the client leaves settle before the handler returns.
	defer ctrl.Wait()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("transport: session %s read error: %v", hello.CompanionID, err)
			}
			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			c.send(ErrorFrame{Type: TypeError, Code: "bad_request", Message: err.Error()})
			continue
		}

		switch f := frame.(type) {
		case Control:
			h.applyControl(c, ctrl, f)
		case domain.TranscriptMessage:
			ctrl.HandleMessage(ctx, f)
			if ctrl.Status() == session.StatusFinished {
				h.finish(ctx, c, ctrl, hello)
				return
			}
		}
	}
}

func (h *Handler) applyControl(c *conn, ctrl *session.Controller, f Control) {
	switch f.Op {
	case OpPause:
		ctrl.Pause()
	case OpResume:
		ctrl.Resume()
	case OpAutoSaveOn:
		ctrl.SetAutoSave(true)
	case OpAutoSaveOff:
		ctrl.SetAutoSave(false)
	default:
		c.send(ErrorFrame{Type: TypeError, Code: "bad_request", Message: "unknown control op " + f.Op})
	}
}

// finish reports the archived session and, when configured, its summary.
func (h *Handler) finish(ctx context.Context, c *conn, ctrl *session.Controller, hello Hello) {
	hist := ctrl.History()
	c.send(SessionEnded{Type: TypeSessionEnded, SessionID: hist.SessionID, Fragments: len(hist.Transcript), NotesSaved: hist.NotesSaved})

	if h.Summaries != nil {
		res, err := h.Summaries.Summarize(ctx, summary.SummarizeInput{
			UserID:      hello.UserID,
			CompanionID: hello.CompanionID,
			SessionID:   hist.SessionID,
			Topic:       hello.Topic,
			Subject:     hello.Subject,
			Transcript:  summary.FormatTranscript(hist.Transcript),
			Path:        hello.notesPath(),
		})
		switch {
		case errors.Is(err, summary.ErrNotEnoughContent):
			c.send(ErrorFrame{Type: TypeError, Code: "not_enough_content", Message: err.Error()})
		case err != nil:
			log.Printf("transport: summarize session %s failed: %v", hist.SessionID, err)
			c.send(ErrorFrame{Type: TypeError, Code: "summary_failed", Message: "failed to generate summary"})
		default:
			c.send(SummaryFrame{Type: TypeSummary, Points: res.Points, Saved: res.Saved})
		}
	}

	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
	c.mu.Unlock()
}

func (h *Handler) originAllowed(r *http.Request) bool {
	if len(h.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}
