package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Josephvarghes/Edu-Stack/internal/app"
	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler drives one quiz attempt over a websocket. Each inbound message maps
// to one service call and gets exactly one reply.
type WSHandler struct {
	service  *app.AttemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws_handler").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if strings.EqualFold(allowed, origin) {
						return true
					}
				}
				return false
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Indices are pointers so a missing field is rejected instead of read as 0.
type questionPayload struct {
	QuestionIndex *int `json:"questionIndex"`
}

type answerPayload struct {
	QuestionIndex       *int `json:"questionIndex"`
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
	IsSavedForReview    bool `json:"isSavedForReview"`
	TimeSpent           *int `json:"timeSpent"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
}

// ServeWS upgrades GET /quizzes/:quizId/ws and serves messages until the client leaves.
func (h *WSHandler) ServeWS(c *gin.Context) {
	quizID := c.Param("quizId")
	user := userID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("user_id", user).Msg("ws write error")
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- h.handle(ctx, user, quizID, inbound):
		case <-writerDone:
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, user, quizID string, in inboundMessage) outboundMessage[any] {
	var (
		typ     string
		payload any
		err     error
	)
	switch in.Type {
	case "start":
		typ = "started"
		payload, err = h.service.Start(ctx, user, quizID)
	case "active":
		typ = "progress"
		payload, err = h.service.Active(ctx, user, quizID)
	case "question":
		var p questionPayload
		if jerr := json.Unmarshal(in.Payload, &p); jerr != nil || p.QuestionIndex == nil {
			return wsError(ErrValidation, "questionIndex is required")
		}
		typ = "question"
		payload, err = h.service.QuestionAt(ctx, user, quizID, *p.QuestionIndex)
	case "answer":
		var p answerPayload
		if jerr := json.Unmarshal(in.Payload, &p); jerr != nil {
			return wsError(ErrValidation, "invalid answer payload")
		}
		if p.QuestionIndex == nil || p.SelectedOptionIndex == nil {
			return wsError(ErrValidation, "questionIndex and selectedOptionIndex are required")
		}
		typ = "answerResult"
		payload, err = h.service.SubmitAnswer(ctx, user, quizID, domain.AnswerSubmission{
			QuestionIndex:       *p.QuestionIndex,
			SelectedOptionIndex: *p.SelectedOptionIndex,
			IsSavedForReview:    p.IsSavedForReview,
			TimeSpent:           p.TimeSpent,
		})
	case "preview":
		typ = "preview"
		payload, err = h.service.Preview(ctx, user, quizID)
	case "review":
		typ = "review"
		payload, err = h.service.ReviewStatuses(ctx, user, quizID)
	case "submit":
		typ = "result"
		payload, err = h.service.Finalize(ctx, user, quizID)
	default:
		return wsError(ErrValidation, "unsupported message type")
	}
	if err != nil {
		_, code := classify(err)
		if code == ErrInternal {
			h.log.Error().Err(err).Str("user_id", user).Str("quiz_id", quizID).Str("type", in.Type).Msg("ws request failed")
		}
		return wsError(code, Message(code))
	}
	return outboundMessage[any]{Type: typ, Payload: payload}
}

func wsError(code ErrCode, msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: msg}}
}
