package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/service"
)

const testSecret = "test-secret"

type fakeLessons struct {
	startTotal, startMaxNew int
	startLangs              service.Languages
	nextLangs               service.Languages
	answerSubmitted         string

	next    *service.NextResult
	answer  *service.AnswerResult
	summary *entities.SessionSummary
	err     error
}

func (f *fakeLessons) Start(_ context.Context, _ int64, total, maxNew int, langs service.Languages) (*service.StartResult, error) {
	f.startTotal, f.startMaxNew, f.startLangs = total, maxNew, langs
	if f.err != nil {
		return nil, f.err
	}
	s := entities.NewLearningSession(42, total, time.Now())
	s.ID = 9
	s.NativeLang, s.TargetLang = langs.Native, langs.Target
	return &service.StartResult{Session: s, Exercises: []*entities.SessionExercise{{ID: 1, SessionID: 9, ItemID: 3}}}, nil
}

func (f *fakeLessons) Next(_ context.Context, _, _ int64, langs service.Languages) (*service.NextResult, error) {
	f.nextLangs = langs
	if f.err != nil {
		return nil, f.err
	}
	return f.next, nil
}

func (f *fakeLessons) Answer(_ context.Context, _, _, _ int64, submitted string, _ service.Languages) (*service.AnswerResult, error) {
	f.answerSubmitted = submitted
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f *fakeLessons) Summary(context.Context, int64, int64) (*entities.SessionSummary, error) {
	return f.summary, f.err
}

func (f *fakeLessons) GetSession(_ context.Context, sessionID, userID int64) (*service.SessionDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := entities.NewLearningSession(userID, 2, time.Now())
	s.ID = sessionID
	return &service.SessionDetails{Session: s}, nil
}

type fakeCurated struct {
	added, removed []int64
	err            error
}

func (f *fakeCurated) List(context.Context, int64) ([]entities.CuratedItem, error) {
	return []entities.CuratedItem{}, f.err
}

func (f *fakeCurated) Add(_ context.Context, _, itemID int64) error {
	f.added = append(f.added, itemID)
	return f.err
}

func (f *fakeCurated) Remove(_ context.Context, _, itemID int64) error {
	f.removed = append(f.removed, itemID)
	return f.err
}

type fakeCatalog struct{}

func (fakeCatalog) All(context.Context) ([]entities.Language, error) {
	return []entities.Language{{ID: 1, Code: "en", Name: "English"}, {ID: 2, Code: "es", Name: "Spanish"}}, nil
}

func (fakeCatalog) Has(_ context.Context, code string) (bool, error) {
	return code == "en" || code == "es", nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, int, time.Duration) {}

type fixture struct {
	router  *gin.Engine
	lessons *fakeLessons
	curated *fakeCurated
	pinger  *fakePinger
}

func newFixture(t *testing.T, rateLimit int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{lessons: &fakeLessons{}, curated: &fakeCurated{}, pinger: &fakePinger{}}
	h := NewHandler(f.lessons, f.curated, fakeCatalog{}, f.pinger, service.Languages{Native: "en", Target: "es"}, zap.NewNop())
	f.router = NewRouter(h, RouterConfig{
		JWTSecret:  testSecret,
		RateLimit:  rateLimit,
		RateWindow: time.Minute,
	}, nopObserver{}, http.NotFoundHandler(), zap.NewNop())
	return f
}

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.doAs(t, signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42}), method, target, body)
}

func (f *fixture) doAs(t *testing.T, token, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestAuth(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong algorithm", signToken(t, jwt.SigningMethodHS384, jwt.MapClaims{"user_id": 42}), http.StatusUnauthorized},
		{"no user claim", signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}), http.StatusUnauthorized},
		{"expired", signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"user_id claim", signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42}), http.StatusOK},
		{"id claim as string", signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"id": "42"}), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.doAs(t, tt.token, http.MethodGet, "/api/vocabulary", "")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t, 0)

	w := f.doAs(t, "", http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.pinger.err = errors.New("connection refused")
	w = f.doAs(t, "", http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStartLesson(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(t, http.MethodPost, "/api/lesson/start", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, f.lessons.startTotal)
	assert.Equal(t, -1, f.lessons.startMaxNew)
	assert.Equal(t, service.Languages{Native: "en", Target: "es"}, f.lessons.startLangs)

	var resp startResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(9), resp.SessionID)
	assert.Equal(t, "es", resp.TargetLang)
	assert.Len(t, resp.Exercises, 1)

	w = f.do(t, http.MethodPost, "/api/lesson/start", `{"total_exercises": 12, "max_new_items": 0}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 12, f.lessons.startTotal)
	assert.Equal(t, 0, f.lessons.startMaxNew)

	w = f.do(t, http.MethodPost, "/api/lesson/start", `{"total_exercises": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/lesson/start", `{"target_lang": "xx"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/lesson/start", `{"native_lang": "es"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.lessons.err = fmt.Errorf("compose session: %w", entities.ErrNoContentAvailable)
	w = f.do(t, http.MethodPost, "/api/lesson/start", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "no_content", decodeError(t, w).Code)
}

func TestNextExercise(t *testing.T) {
	f := newFixture(t, 0)
	f.lessons.next = &service.NextResult{
		ExerciseID: 5,
		Exercise: &entities.Exercise{
			ItemID:        3,
			Type:          entities.ExerciseTargetToNative,
			Prompt:        "perro",
			Options:       []string{"cat", "dog", "house", "tree"},
			CorrectAnswer: "dog",
		},
		Current: 2,
		Total:   10,
	}

	w := f.do(t, http.MethodGet, "/api/lesson/next?session_id=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Languages{}, f.lessons.nextLangs)
	assert.NotContains(t, w.Body.String(), "correct_answer")

	var resp nextResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Done)
	require.NotNil(t, resp.Exercise)
	assert.Equal(t, int64(5), resp.Exercise.ID)
	assert.Equal(t, exerciseProgress{Current: 2, Total: 10}, resp.Exercise.Progress)

	f.lessons.next = &service.NextResult{Done: true, Session: entities.SessionProgress{TotalExercises: 10, CompletedExercises: 10}}
	w = f.do(t, http.MethodGet, "/api/lesson/next?session_id=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = nextResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Done)
	assert.Nil(t, resp.Exercise)
	require.NotNil(t, resp.SessionProgress)
	assert.Equal(t, 10, resp.SessionProgress.CompletedExercises)
}

func TestNextExercise_Validation(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name  string
		query string
	}{
		{"missing session", ""},
		{"unknown language", "?session_id=9&target_lang=xx"},
		{"same languages", "?session_id=9&native_lang=es&target_lang=es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/lesson/next"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubmitAnswer(t *testing.T) {
	f := newFixture(t, 0)
	reviewAt := time.Now().Add(10 * time.Minute)
	f.lessons.answer = &service.AnswerResult{
		IsCorrect:     true,
		CorrectAnswer: "dog",
		Progress: &entities.Progress{
			ItemID:       3,
			Status:       entities.StatusLearning,
			CorrectCount: 1,
			NextReviewAt: &reviewAt,
		},
		Session: entities.SessionProgress{TotalExercises: 10, CompletedExercises: 1, CorrectAnswers: 1},
		Next:    &service.NextResult{Done: true},
	}

	w := f.do(t, http.MethodPost, "/api/lesson/answer", `{"session_id": 9, "exercise_id": 5, "answer": "dog"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dog", f.lessons.answerSubmitted)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, entities.StatusLearning, resp.Progress.Status)
	assert.Equal(t, 1, resp.SessionProgress.CompletedExercises)
	require.NotNil(t, resp.Next)
	assert.True(t, resp.Next.Done)

	w = f.do(t, http.MethodPost, "/api/lesson/answer", `{"session_id": 9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"session not found", entities.ErrSessionNotFound, http.StatusNotFound, "not_found"},
		{"exercise not found", fmt.Errorf("load exercise: %w", entities.ErrExerciseNotFound), http.StatusNotFound, "not_found"},
		{"already answered", entities.ErrAlreadyAnswered, http.StatusConflict, "already_answered"},
		{"language mismatch", fmt.Errorf("answer exercise: %w", entities.ErrLanguageMismatch), http.StatusBadRequest, "language_mismatch"},
		{"missing translation", fmt.Errorf("%w: item 3", entities.ErrTranslationPairMissing), http.StatusInternalServerError, "translation_missing"},
		{"transient", fmt.Errorf("%w: deadlock", entities.ErrTransient), http.StatusServiceUnavailable, "unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.lessons.err = tt.err

			w := f.do(t, http.MethodPost, "/api/lesson/answer", `{"session_id": 9, "exercise_id": 5, "answer": "dog"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestSummaryAndSession(t *testing.T) {
	f := newFixture(t, 0)
	f.lessons.summary = &entities.SessionSummary{
		SessionID:    9,
		Accuracy:     66.67,
		LearnedWords: 1,
		Mistakes:     []entities.Mistake{{ItemID: 3, WrongCount: 1}},
	}

	w := f.do(t, http.MethodGet, "/api/lesson/summary?session_id=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":9,"accuracy":66.67,"learned_words":1,"mistakes":[{"item_id":3,"wrong_count":1}]}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/lesson/sessions/9", "")
	require.Equal(t, http.StatusOK, w.Code)
	var details sessionDetailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.Equal(t, int64(9), details.Session.ID)

	w = f.do(t, http.MethodGet, "/api/lesson/sessions/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVocabulary(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(t, http.MethodGet, "/api/vocabulary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/vocabulary/3", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodDelete, "/api/vocabulary/3", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{3}, f.curated.added)
	assert.Equal(t, []int64{3}, f.curated.removed)

	w = f.do(t, http.MethodPost, "/api/vocabulary/0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.curated.err = entities.ErrItemNotFound
	w = f.do(t, http.MethodPost, "/api/vocabulary/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListLanguages(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(t, http.MethodGet, "/api/languages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"es"`)
}
