package http

import (
	"encoding/json"
	"log"
	"net/http"

	"event-feedback-service/internal/app"
	"event-feedback-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams dashboard updates to players and presenters and accepts
// answer submissions and presenter navigation over the same connection.
type WSHandler struct {
	service  *app.FeedbackService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.FeedbackService) *WSHandler {
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

type viewPayload struct {
	Action string `json:"action"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS handles /ws?eventId=&userId=&role=player|presenter (role defaults to player).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	userID := r.URL.Query().Get("userId")
	role := app.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = app.RolePlayer
	}
	if eventID == "" || userID == "" || !role.Valid() {
		http.Error(w, "missing eventId or userId, or unknown role", http.StatusBadRequest)
		return
	}
	if err := domain.CheckRespondentID(userID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	joined, err := h.service.Join(ctx, eventID, userID, role)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Leave(ctx, eventID, userID, role)

	updates, cancel, err := h.service.Subscribe(ctx, eventID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	out := newOutbox(16)

	// single writer goroutine: gorilla connections allow one concurrent writer
	go func() {
		defer close(out.done)
		for msg := range out.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error event=%s user=%s: %v", eventID, userID, err)
				// unblock ReadJSON so the deferred Leave runs
				conn.Close()
				return
			}
		}
	}()

	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok || !out.push(outboundMessage[any]{Type: "dashboard", Payload: update}, closeSignals) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msgType string, payload any) bool {
		return out.push(outboundMessage[any]{Type: msgType, Payload: payload}, nil)
	}
	fail := func(message string) bool {
		return reply("error", errorPayload{Message: message})
	}

	alive := reply("joined", joined)
	for alive {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submissionBody
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				alive = fail("invalid submit payload")
				continue
			}
			resp, err := h.service.SubmitResponse(ctx, eventID, userID, app.Submission{
				Ratings:     payload.Ratings,
				TextAnswers: payload.TextResponses,
			})
			if err != nil {
				alive = fail(err.Error())
				continue
			}
			alive = reply("submitted", resp)
		case "view":
			if role != app.RolePresenter {
				alive = fail("only presenters can change the view")
				continue
			}
			var payload viewPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				alive = fail("invalid view payload")
				continue
			}
			if _, err := h.service.NavigatePresenter(ctx, eventID, payload.Action); err != nil {
				alive = fail(err.Error())
			}
		default:
			alive = fail("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(out.send)
	<-out.done
}

// outbox queues messages for the writer goroutine. Once the writer has
// stopped, pushes fail instead of blocking on a full queue.
type outbox struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(size int) *outbox {
	return &outbox{send: make(chan outboundMessage[any], size), done: make(chan struct{})}
}

// push reports whether msg was queued. A nil stop channel never fires.
func (o *outbox) push(msg outboundMessage[any], stop <-chan struct{}) bool {
	select {
	case o.send <- msg:
		return true
	case <-o.done:
		return false
	case <-stop:
		return false
	}
}
