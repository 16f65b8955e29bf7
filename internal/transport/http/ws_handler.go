package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/app"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// answerPayload matches the inbound player answer shapes. The choice
// field is polymorphic on the wire: a number for quiz/survey blocks, an
// array of numbers for jumble.
type answerPayload struct {
	Type           domain.QuestionType `json:"type"`
	Choice         json.RawMessage     `json:"choice,omitempty"`
	Text           string              `json:"text,omitempty"`
	QuestionIndex  int                 `json:"questionIndex"`
	ReactionTimeMs int64               `json:"reactionTimeMs,omitempty"`
}

type kickPayload struct {
	CID string `json:"cid"`
}

type skipPayload struct {
	Index int `json:"index"`
}

type sessionCreatedPayload struct {
	SessionID string `json:"sessionId"`
	GamePin   string `json:"gamePin"`
}

type notificationPayload struct {
	Message string `json:"message"`
	OK      bool   `json:"ok"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// game use cases. Hosts connect with role=host and either quizId (new
// session) or pin (reattach); players connect with pin, cid, and name.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("role") == "host" {
		h.serveHost(w, r)
		return
	}
	h.servePlayer(w, r)
}

func (h *WSHandler) serveHost(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	quizID := r.URL.Query().Get("quizId")
	pin := r.URL.Query().Get("pin")
	if userID == "" || (quizID == "" && pin == "") {
		http.Error(w, "missing userId and one of quizId or pin", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send, stopWriter := startWriter(conn)
	defer stopWriter()

	if pin == "" {
		session, err := h.service.CreateSession(r.Context(), quizID, userID)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		pin = session.Pin()
		send <- outboundMessage[any]{Type: "sessionCreated", Payload: sessionCreatedPayload{
			SessionID: session.ID(),
			GamePin:   pin,
		}}
	} else {
		session, ok := h.service.Session(pin)
		if !ok || session.HostUserID() != userID {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.ErrSessionNotFound.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "sessionCreated", Payload: sessionCreatedPayload{
			SessionID: session.ID(),
			GamePin:   pin,
		}}
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), pin)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		return
	}
	defer cancel()

	stopForward := forwardEvents(updates, send, nil)
	defer stopForward()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleHostCommand(r, send, pin, userID, inbound)
	}
}

func (h *WSHandler) handleHostCommand(r *http.Request, send chan<- outboundMessage[any], pin, userID string, inbound inboundMessage) {
	ctx := r.Context()
	var err error
	switch inbound.Type {
	case "start":
		_, err = h.service.StartGame(ctx, pin, userID)
	case "next":
		_, err = h.service.NextBlock(ctx, pin, userID)
		if err == nil {
			h.finalizeIfTerminal(ctx, send, pin, userID)
		}
	case "skip":
		var payload skipPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid skip payload"}}
			return
		}
		_, err = h.service.SkipToBlock(ctx, pin, userID, payload.Index)
		if err == nil {
			h.finalizeIfTerminal(ctx, send, pin, userID)
		}
	case "reveal":
		_, err = h.service.RevealQuestion(ctx, pin, userID)
	case "timeup":
		err = h.service.TimeUp(ctx, pin, userID)
	case "kick":
		var payload kickPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid kick payload"}}
			return
		}
		err = h.service.Kick(ctx, pin, userID, payload.CID)
	case "podium":
		err = h.service.ShowPodium(ctx, pin, userID)
		if err == nil {
			h.tryFinalize(ctx, send, pin, userID)
		}
	case "end":
		err = h.service.EndGame(ctx, pin, userID)
		if err == nil {
			h.tryFinalize(ctx, send, pin, userID)
		}
	case "finalize":
		h.tryFinalize(ctx, send, pin, userID)
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		return
	}
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
}

// finalizeIfTerminal persists results when an advance command landed on
// the podium. Advancing past the last block is a valid way to finish a
// game, so it triggers the same finalize path as podium/end commands.
func (h *WSHandler) finalizeIfTerminal(ctx context.Context, send chan<- outboundMessage[any], pin, userID string) {
	session, ok := h.service.Session(pin)
	if !ok || !session.Status().Terminal() {
		return
	}
	h.tryFinalize(ctx, send, pin, userID)
}

// tryFinalize reports the persistence outcome on the notification side
// channel. An already-finalized session is reported as success so
// repeated podium/end commands stay quiet.
func (h *WSHandler) tryFinalize(ctx context.Context, send chan<- outboundMessage[any], pin, userID string) {
	err := h.service.Finalize(ctx, pin, userID)
	if err == nil || errors.Is(err, domain.ErrAlreadyFinalized) {
		send <- outboundMessage[any]{Type: "notification", Payload: notificationPayload{Message: "session results saved", OK: true}}
		return
	}
	log.Printf("finalize failed for pin %s: %v", pin, err)
	send <- outboundMessage[any]{Type: "notification", Payload: notificationPayload{Message: fmt.Sprintf("saving results failed: %v", err), OK: false}}
}

func (h *WSHandler) servePlayer(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin")
	cid := r.URL.Query().Get("cid")
	nickname := r.URL.Query().Get("name")
	avatarID := r.URL.Query().Get("avatar")
	if pin == "" || cid == "" || nickname == "" {
		http.Error(w, "missing pin, cid, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send, stopWriter := startWriter(conn)
	defer stopWriter()

	session, err := h.service.Join(r.Context(), pin, cid, nickname, avatarID)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), pin)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), pin, cid)

	send <- outboundMessage[any]{Type: "joined", Payload: struct {
		GamePin string            `json:"gamePin"`
		Status  domain.GameStatus `json:"status"`
	}{GamePin: pin, Status: session.Status()}}

	// When a question closes, each player also gets their personal
	// result alongside the shared questionEnd event.
	stopForward := forwardEvents(updates, send, func(ev app.SessionEvent) {
		if ev.Type != app.EventQuestionEnd {
			return
		}
		payload, ok := ev.Payload.(app.QuestionEndPayload)
		if !ok {
			return
		}
		result, err := h.service.PlayerResult(r.Context(), pin, cid, payload.GameBlockIndex)
		if err != nil {
			log.Printf("player result for %s: %v", cid, err)
			return
		}
		send <- outboundMessage[any]{Type: "result", Payload: result}
	})
	defer stopForward()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			sub, err := decodeSubmission(inbound.Payload)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			record, err := h.service.SubmitAnswer(r.Context(), pin, cid, sub)
			if err != nil {
				// Protocol violations (duplicates, wrong state) are
				// rejected without touching session state.
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerAck", Payload: struct {
				QuestionIndex int `json:"questionIndex"`
			}{QuestionIndex: record.QuestionIndex}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}
}

// decodeSubmission maps the wire answer shapes onto the domain event.
// The choice field is a single index for quiz/survey and an ordered
// index sequence for jumble.
func decodeSubmission(raw json.RawMessage) (domain.AnswerSubmission, error) {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.AnswerSubmission{}, err
	}
	sub := domain.AnswerSubmission{
		Type:           payload.Type,
		QuestionIndex:  payload.QuestionIndex,
		Text:           payload.Text,
		ReactionTimeMs: payload.ReactionTimeMs,
	}
	if len(payload.Choice) == 0 {
		return sub, nil
	}
	switch payload.Type {
	case domain.QuestionJumble:
		if err := json.Unmarshal(payload.Choice, &sub.Choices); err != nil {
			return domain.AnswerSubmission{}, err
		}
	default:
		if err := json.Unmarshal(payload.Choice, &sub.Choice); err != nil {
			return domain.AnswerSubmission{}, err
		}
	}
	return sub, nil
}

// startWriter serializes all writes through one goroutine so concurrent
// event forwarding and reply sending never interleave on the socket.
func startWriter(conn *websocket.Conn) (chan outboundMessage[any], func()) {
	send := make(chan outboundMessage[any], 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	stop := func() {
		close(send)
		<-done
	}
	return send, stop
}

// forwardEvents pumps session events onto the send channel until the
// subscription closes or stop is called. The optional hook runs after
// each forwarded event.
func forwardEvents(updates <-chan app.SessionEvent, send chan<- outboundMessage[any], hook func(app.SessionEvent)) func() {
	closeSignals := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
				if hook != nil {
					hook(ev)
				}
			case <-closeSignals:
				return
			}
		}
	}()
	return func() {
		close(closeSignals)
		<-done
	}
}
