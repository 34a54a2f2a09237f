package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/service"
)

type LessonService interface {
	Start(ctx context.Context, userID int64, total, maxNew int, langs service.Languages) (*service.StartResult, error)
	Next(ctx context.Context, sessionID, userID int64, langs service.Languages) (*service.NextResult, error)
	Answer(ctx context.Context, sessionID, userID, exerciseID int64, submitted string, langs service.Languages) (*service.AnswerResult, error)
	Summary(ctx context.Context, sessionID, userID int64) (*entities.SessionSummary, error)
	GetSession(ctx context.Context, sessionID, userID int64) (*service.SessionDetails, error)
}

type CuratedListService interface {
	List(ctx context.Context, userID int64) ([]entities.CuratedItem, error)
	Add(ctx context.Context, userID, itemID int64) error
	Remove(ctx context.Context, userID, itemID int64) error
}

// LanguageCatalog is the cached list of supported languages.
type LanguageCatalog interface {
	All(ctx context.Context) ([]entities.Language, error)
	Has(ctx context.Context, code string) (bool, error)
}

// Pinger checks that storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the lesson API.
type Handler struct {
	lessons   LessonService
	curated   CuratedListService
	languages LanguageCatalog
	db        Pinger
	defaults  service.Languages
	logger    *zap.Logger
}

func NewHandler(
	lessons LessonService,
	curated CuratedListService,
	languages LanguageCatalog,
	db Pinger,
	defaults service.Languages,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		lessons:   lessons,
		curated:   curated,
		languages: languages,
		db:        db,
		defaults:  defaults,
		logger:    logger,
	}
}

type startRequest struct {
	TotalExercises *int   `json:"total_exercises" binding:"omitempty,min=1"`
	MaxNewItems    *int   `json:"max_new_items" binding:"omitempty,min=0"`
	NativeLang     string `json:"native_lang"`
	TargetLang     string `json:"target_lang"`
}

type startResponse struct {
	SessionID      int64                       `json:"session_id"`
	TotalExercises int                         `json:"total_exercises"`
	NativeLang     string                      `json:"native_lang"`
	TargetLang     string                      `json:"target_lang"`
	Exercises      []*entities.SessionExercise `json:"exercises"`
}

func (h *Handler) StartLesson(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}

	total, maxNew := 0, -1
	if req.TotalExercises != nil {
		total = *req.TotalExercises
	}
	if req.MaxNewItems != nil {
		maxNew = *req.MaxNewItems
	}

	langs, ok := h.resolveLanguages(c, req.NativeLang, req.TargetLang)
	if !ok {
		return
	}

	res, err := h.lessons.Start(c.Request.Context(), currentUser(c), total, maxNew, langs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, startResponse{
		SessionID:      res.Session.ID,
		TotalExercises: res.Session.TotalExercises,
		NativeLang:     res.Session.NativeLang,
		TargetLang:     res.Session.TargetLang,
		Exercises:      res.Exercises,
	})
}

type nextQuery struct {
	SessionID  int64  `form:"session_id" binding:"required,min=1"`
	NativeLang string `form:"native_lang"`
	TargetLang string `form:"target_lang"`
}

type exerciseProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type exerciseResponse struct {
	ID       int64                 `json:"id"`
	ItemID   int64                 `json:"item_id"`
	Type     entities.ExerciseType `json:"type"`
	Prompt   string                `json:"prompt"`
	Options  []string              `json:"options"`
	Progress exerciseProgress      `json:"progress"`
}

type nextResponse struct {
	Done            bool                      `json:"done"`
	Exercise        *exerciseResponse         `json:"exercise,omitempty"`
	SessionProgress *entities.SessionProgress `json:"session_progress,omitempty"`
}

func toNextResponse(res *service.NextResult) nextResponse {
	if res.Done {
		progress := res.Session
		return nextResponse{Done: true, SessionProgress: &progress}
	}
	return nextResponse{
		Exercise: &exerciseResponse{
			ID:       res.ExerciseID,
			ItemID:   res.Exercise.ItemID,
			Type:     res.Exercise.Type,
			Prompt:   res.Exercise.Prompt,
			Options:  res.Exercise.Options,
			Progress: exerciseProgress{Current: res.Current, Total: res.Total},
		},
	}
}

func (h *Handler) NextExercise(c *gin.Context) {
	var q nextQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	langs := service.Languages{Native: q.NativeLang, Target: q.TargetLang}
	if !h.checkLanguages(c, langs) {
		return
	}

	res, err := h.lessons.Next(c.Request.Context(), q.SessionID, currentUser(c), langs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toNextResponse(res))
}

type answerRequest struct {
	SessionID  int64  `json:"session_id" binding:"required,min=1"`
	ExerciseID int64  `json:"exercise_id" binding:"required,min=1"`
	Answer     string `json:"answer"`
	NativeLang string `json:"native_lang"`
	TargetLang string `json:"target_lang"`
}

type progressResponse struct {
	ItemID       int64           `json:"item_id"`
	Status       entities.Status `json:"status"`
	CorrectCount int             `json:"correct_count"`
	WrongCount   int             `json:"wrong_count"`
	LastSeenAt   *time.Time      `json:"last_seen_at"`
	NextReviewAt *time.Time      `json:"next_review_at"`
}

type answerResponse struct {
	IsCorrect       bool                     `json:"is_correct"`
	CorrectAnswer   string                   `json:"correct_answer"`
	Progress        progressResponse         `json:"progress"`
	SessionProgress entities.SessionProgress `json:"session_progress"`
	Next            *nextResponse            `json:"next,omitempty"`
}

func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	langs := service.Languages{Native: req.NativeLang, Target: req.TargetLang}
	if !h.checkLanguages(c, langs) {
		return
	}

	res, err := h.lessons.Answer(c.Request.Context(), req.SessionID, currentUser(c), req.ExerciseID, req.Answer, langs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := answerResponse{
		IsCorrect:     res.IsCorrect,
		CorrectAnswer: res.CorrectAnswer,
		Progress: progressResponse{
			ItemID:       res.Progress.ItemID,
			Status:       res.Progress.Status,
			CorrectCount: res.Progress.CorrectCount,
			WrongCount:   res.Progress.WrongCount,
			LastSeenAt:   res.Progress.LastSeenAt,
			NextReviewAt: res.Progress.NextReviewAt,
		},
		SessionProgress: res.Session,
	}
	if res.Next != nil {
		next := toNextResponse(res.Next)
		resp.Next = &next
	}

	c.JSON(http.StatusOK, resp)
}

type sessionQuery struct {
	SessionID int64 `form:"session_id" binding:"required,min=1"`
}

func (h *Handler) Summary(c *gin.Context) {
	var q sessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	summary, err := h.lessons.Summary(c.Request.Context(), q.SessionID, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type sessionResponse struct {
	ID                 int64      `json:"id"`
	TotalExercises     int        `json:"total_exercises"`
	CompletedExercises int        `json:"completed_exercises"`
	CorrectAnswers     int        `json:"correct_answers"`
	WrongAnswers       int        `json:"wrong_answers"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at"`
}

type sessionDetailsResponse struct {
	Session   sessionResponse             `json:"session"`
	Exercises []*entities.SessionExercise `json:"exercises"`
}

func (h *Handler) GetSession(c *gin.Context) {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	details, err := h.lessons.GetSession(c.Request.Context(), sessionID, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	s := details.Session
	c.JSON(http.StatusOK, sessionDetailsResponse{
		Session: sessionResponse{
			ID:                 s.ID,
			TotalExercises:     s.TotalExercises,
			CompletedExercises: s.CompletedExercises,
			CorrectAnswers:     s.CorrectAnswers,
			WrongAnswers:       s.WrongAnswers,
			StartedAt:          s.StartedAt,
			FinishedAt:         s.FinishedAt,
		},
		Exercises: details.Exercises,
	})
}

func (h *Handler) ListVocabulary(c *gin.Context) {
	items, err := h.curated.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) AddVocabulary(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}

	if err := h.curated.Add(c.Request.Context(), currentUser(c), itemID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveVocabulary(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}

	if err := h.curated.Remove(c.Request.Context(), currentUser(c), itemID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListLanguages(c *gin.Context) {
	langs, err := h.languages.All(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"languages": langs})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolveLanguages applies the configured defaults and rejects unknown codes.
func (h *Handler) resolveLanguages(c *gin.Context, native, target string) (service.Languages, bool) {
	langs := service.Languages{Native: native, Target: target}
	if langs.Native == "" {
		langs.Native = h.defaults.Native
	}
	if langs.Target == "" {
		langs.Target = h.defaults.Target
	}
	return langs, h.checkLanguages(c, langs)
}

// checkLanguages rejects unknown codes and identical native and target
// languages. Empty codes are left for the session to fill in.
func (h *Handler) checkLanguages(c *gin.Context, langs service.Languages) bool {
	if langs.Native != "" && langs.Native == langs.Target {
		badRequest(c, "native and target languages must differ")
		return false
	}

	for _, code := range []string{langs.Native, langs.Target} {
		if code == "" {
			continue
		}
		known, err := h.languages.Has(c.Request.Context(), code)
		if err != nil {
			h.writeError(c, err)
			return false
		}
		if !known {
			badRequest(c, "unknown language code "+strconv.Quote(code))
			return false
		}
	}

	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
