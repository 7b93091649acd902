package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrCode identifies an API error independently of its message.
type ErrCode string

const (
	ErrTokenRequired     ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid      ErrCode = "TOKEN_INVALID"
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrQuizNotFound      ErrCode = "QUIZ_NOT_FOUND"
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptInProgress ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrAttemptCompleted  ErrCode = "ATTEMPT_COMPLETED"
	ErrQuestionIndex     ErrCode = "QUESTION_INDEX_OUT_OF_RANGE"
	ErrOptionIndex       ErrCode = "OPTION_INDEX_OUT_OF_RANGE"
	ErrInternal          ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrTokenRequired:     "Authentication is required.",
	ErrTokenInvalid:      "Authentication token is invalid.",
	ErrForbidden:         "You may not access this resource.",
	ErrValidation:        "Validation failed. Check your input.",
	ErrQuizNotFound:      "Quiz not found.",
	ErrAttemptNotFound:   "No quiz attempt found.",
	ErrAttemptInProgress: "A quiz attempt is already in progress.",
	ErrAttemptCompleted:  "The quiz attempt is already completed.",
	ErrQuestionIndex:     "Question index is out of range.",
	ErrOptionIndex:       "Option index is out of range.",
	ErrInternal:          "Internal server error.",
}

// Message returns the human-readable message for code.
func Message(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[ErrInternal]
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Data     interface{} `json:"data"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ContextKeyRequestID is the gin context key for the request id.
const ContextKeyRequestID = "request_id"

// RequestID reuses X-Request-ID when the client sends one and generates it otherwise.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Data: data, Metadata: metadata(c)})
}

func fail(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	c.AbortWithStatusJSON(status, Response{
		Error:    &ErrorBody{Code: code, Message: Message(code), Fields: fields},
		Metadata: metadata(c),
	})
}

// failWithError maps a service error to its status and code.
func failWithError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, code, nil)
}

var codes = []struct {
	err  error
	code ErrCode
}{
	{domain.ErrQuizNotFound, ErrQuizNotFound},
	{domain.ErrAttemptNotFound, ErrAttemptNotFound},
	{domain.ErrAttemptInProgress, ErrAttemptInProgress},
	{domain.ErrAttemptCompleted, ErrAttemptCompleted},
	{domain.ErrQuestionIndex, ErrQuestionIndex},
	{domain.ErrOptionIndex, ErrOptionIndex},
	{domain.ErrInvalidAnswer, ErrValidation},
	{domain.ErrInvalidQuiz, ErrValidation},
	{domain.ErrForbidden, ErrForbidden},
}

func classify(err error) (int, ErrCode) {
	code := ErrInternal
	for _, c := range codes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound, code
	case domain.KindConflict:
		return http.StatusConflict, code
	case domain.KindInvalidInput:
		return http.StatusBadRequest, code
	case domain.KindForbidden:
		return http.StatusForbidden, code
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}

func metadata(c *gin.Context) Metadata {
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
