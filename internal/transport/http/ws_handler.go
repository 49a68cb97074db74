package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizmentor/internal/app"
)

// WSHandler runs the live attempt session over a websocket: answers and
// navigation come in, save-status, countdown, and the graded result go out.
type WSHandler struct {
	attempts *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService) *WSHandler {
	return &WSHandler{
		attempts: attempts,
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

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type navigatePayload struct {
	Direction string `json:"direction"` // "next" or "prev"
}

type positionPayload struct {
	Index int `json:"index"`
}

type saveStatusPayload struct {
	Status app.SaveStatus `json:"status"`
}

type countdownPayload struct {
	Remaining int `json:"remaining"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into an attempt
// session, starting (or resuming) the attempt for the given student.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, attempt, err := h.attempts.Start(r.Context(), quizID, studentID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.attempts.Subscribe(session.AttemptID())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// A single writer goroutine owns the connection; everything else goes
	// through the send channel to avoid concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- toOutbound(update):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: attempt}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := h.attempts.Answer(r.Context(), session.AttemptID(), payload.QuestionID, payload.Answer); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid navigate payload"}}
				continue
			}
			var index int
			var err error
			switch payload.Direction {
			case "next":
				index, err = h.attempts.Advance(session.AttemptID())
			case "prev":
				index, err = h.attempts.Retreat(session.AttemptID())
			default:
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "direction must be next or prev"}}
				continue
			}
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "position", Payload: positionPayload{Index: index}}
		case "submit":
			if _, _, _, err := h.attempts.Submit(r.Context(), session.AttemptID()); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
			// The graded result reaches the client via the subscription's
			// submitted event.
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func toOutbound(event app.SessionEvent) outboundMessage[any] {
	switch event.Type {
	case app.EventState:
		return outboundMessage[any]{Type: string(event.Type), Payload: event.State}
	case app.EventSaveStatus:
		return outboundMessage[any]{Type: string(event.Type), Payload: saveStatusPayload{Status: event.SaveStatus}}
	case app.EventCountdown:
		return outboundMessage[any]{Type: string(event.Type), Payload: countdownPayload{Remaining: event.Remaining}}
	case app.EventSubmitted:
		return outboundMessage[any]{Type: string(event.Type), Payload: event.Result}
	default:
		return outboundMessage[any]{Type: string(event.Type), Payload: event}
	}
}
