package http

import (
	"net/http"
	"strconv"

	"github.com/Josephvarghes/Edu-Stack/internal/app"
	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/gin-gonic/gin"
)

// AttemptHandler exposes the attempt use cases over REST.
type AttemptHandler struct {
	service *app.AttemptService
}

func NewAttemptHandler(service *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{service: service}
}

type answerRequest struct {
	QuestionIndex       *int `json:"questionIndex" binding:"required,min=0"`
	SelectedOptionIndex *int `json:"selectedOptionIndex" binding:"required,min=0"`
	IsSavedForReview    bool `json:"isSavedForReview"`
	TimeSpent           *int `json:"timeSpent" binding:"omitempty,min=0"`
}

func (r answerRequest) submission() domain.AnswerSubmission {
	return domain.AnswerSubmission{
		QuestionIndex:       *r.QuestionIndex,
		SelectedOptionIndex: *r.SelectedOptionIndex,
		IsSavedForReview:    r.IsSavedForReview,
		TimeSpent:           r.TimeSpent,
	}
}

type listQuizzesQuery struct {
	CourseID string `form:"courseId" json:"courseId"`
	Subject  string `form:"subject" json:"subject"`
	IsActive *bool  `form:"isActive" json:"isActive"`
	Page     int    `form:"page" json:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=50"`
}

// List GET /quizzes
func (h *AttemptHandler) List(c *gin.Context) {
	var q listQuizzesQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.service.ListQuizzes(c.Request.Context(), domain.QuizFilter{
		CourseID: q.CourseID,
		Subject:  q.Subject,
		IsActive: q.IsActive,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, page)
}

// Details GET /quizzes/:quizId
func (h *AttemptHandler) Details(c *gin.Context) {
	details, err := h.service.QuizDetails(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, details)
}

// Start POST /quizzes/:quizId/start
func (h *AttemptHandler) Start(c *gin.Context) {
	res, err := h.service.Start(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusCreated, res)
}

// Active GET /quizzes/:quizId/active
func (h *AttemptHandler) Active(c *gin.Context) {
	progress, err := h.service.Active(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, progress)
}

// Question GET /quizzes/:quizId/questions/:index
func (h *AttemptHandler) Question(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	view, err := h.service.QuestionAt(c.Request.Context(), userID(c), c.Param("quizId"), index)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, view)
}

// QuestionByAttempt GET /attempts/:attemptId/questions/:index
func (h *AttemptHandler) QuestionByAttempt(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	view, err := h.service.QuestionByAttempt(c.Request.Context(), userID(c), c.Param("attemptId"), index)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, view)
}

// Answer POST /quizzes/:quizId/answers
func (h *AttemptHandler) Answer(c *gin.Context) {
	var req answerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.SubmitAnswer(c.Request.Context(), userID(c), c.Param("quizId"), req.submission())
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, res)
}

// Preview GET /quizzes/:quizId/preview
func (h *AttemptHandler) Preview(c *gin.Context) {
	p, err := h.service.Preview(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, p)
}

// Review GET /quizzes/:quizId/review
func (h *AttemptHandler) Review(c *gin.Context) {
	r, err := h.service.ReviewStatuses(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, r)
}

// Submit POST /quizzes/:quizId/submit
func (h *AttemptHandler) Submit(c *gin.Context) {
	res, err := h.service.Finalize(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, res)
}

// Summary GET /quizzes/:quizId/summary
func (h *AttemptHandler) Summary(c *gin.Context) {
	s, err := h.service.Summary(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, s)
}

// History GET /quizzes/:quizId/attempts?limit=
func (h *AttemptHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, ErrValidation, map[string]string{"limit": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	attempts, err := h.service.History(c.Request.Context(), userID(c), c.Param("quizId"), limit)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, attempts)
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrValidation, map[string]string{"index": "index must be an integer"})
		return 0, false
	}
	return index, true
}
