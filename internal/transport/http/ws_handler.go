package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/domain"
)

type WSHandler struct {
	service  *app.ProgressService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ProgressService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// progression use cases. Every committed mutation is pushed back as a
// progress message, followed by one achievement message per unlock.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learnerID := r.URL.Query().Get("learnerId")
	if learnerID == "" {
		http.Error(w, "missing learnerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	logger := h.logger.With(zap.String("learner", learnerID))

	ctx := r.Context()
	updates, cancel, err := h.service.Subscribe(ctx, learnerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: msgError, Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", zap.Error(err))
				// Keep draining so producers never block on a dead connection.
				for range send {
				}
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
				for _, msg := range updateMessages(update) {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// The streak is brought up to date once per session, before any inbound action.
	if _, err := h.service.Open(ctx, learnerID); err != nil {
		send <- errorMessage(err)
	}
	h.sendChallenges(ctx, learnerID, send)
	logger.Info("learner connected")

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, learnerID, inbound, send); err != nil {
			logger.Debug("ws message rejected", zap.String("type", inbound.Type), zap.Error(err))
			send <- errorMessage(err)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	logger.Info("learner disconnected")
}

// dispatch runs one inbound action. Progress messages arrive through the
// subscription, so only challenge boards are sent from here.
func (h *WSHandler) dispatch(ctx context.Context, learnerID string, inbound inboundMessage, send chan<- outboundMessage[any]) error {
	switch inbound.Type {
	case msgGrantXP:
		var p grantXPPayload
		if err := decodePayload(inbound.Payload, &p); err != nil {
			return err
		}
		_, err := h.service.GrantXP(ctx, learnerID, p.Amount, p.Reason)
		return err
	case msgCompleteLesson:
		var p completeLessonPayload
		if err := decodePayload(inbound.Payload, &p); err != nil {
			return err
		}
		if _, err := h.service.CompleteLesson(ctx, learnerID, p.LessonID, p.ModuleID); err != nil {
			return err
		}
	case msgPassQuiz:
		var p passQuizPayload
		if err := decodePayload(inbound.Payload, &p); err != nil {
			return err
		}
		if _, err := h.service.PassQuiz(ctx, learnerID, p.LessonID, *p.Score); err != nil {
			return err
		}
	case msgCompleteExercise:
		var p completeExercisePayload
		if err := decodePayload(inbound.Payload, &p); err != nil {
			return err
		}
		if _, err := h.service.CompleteExercise(ctx, learnerID, p.LessonID); err != nil {
			return err
		}
	case msgChatMessage:
		if _, err := h.service.SendChatMessage(ctx, learnerID); err != nil {
			return err
		}
	case msgClaimChallenge:
		var p claimChallengePayload
		if err := decodePayload(inbound.Payload, &p); err != nil {
			return err
		}
		if _, err := h.service.ClaimChallenge(ctx, learnerID, p.ChallengeID); err != nil {
			return err
		}
	case msgReset:
		_, err := h.service.Reset(ctx, learnerID)
		return err
	default:
		return errUnsupportedMessage
	}
	h.sendChallenges(ctx, learnerID, send)
	return nil
}

func (h *WSHandler) sendChallenges(ctx context.Context, learnerID string, send chan<- outboundMessage[any]) {
	challenges, err := h.service.Challenges(ctx, learnerID)
	if err != nil {
		send <- errorMessage(err)
		return
	}
	send <- outboundMessage[any]{Type: msgChallenges, Payload: challenges}
}

func updateMessages(update domain.ProgressUpdate) []outboundMessage[any] {
	msgs := make([]outboundMessage[any], 0, 1+len(update.Unlocked))
	msgs = append(msgs, outboundMessage[any]{Type: msgProgress, Payload: progressPayload{
		Operation:       update.Operation,
		ProgressSummary: app.Summarize(update.State),
	}})
	for _, a := range update.Unlocked {
		msgs = append(msgs, outboundMessage[any]{Type: msgAchievement, Payload: a})
	}
	return msgs
}

type progressPayload struct {
	Operation string `json:"operation"`
	domain.ProgressSummary
}

var errUnsupportedMessage = errors.New("unsupported message type")

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: msgError, Payload: errorPayload{Message: err.Error()}}
}
