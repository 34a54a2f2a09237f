package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

var errInjected = errors.New("injected failure")

type progressKey struct {
	userID int64
	itemID int64
}

// memStore implements every repository used by the service on plain maps.
type memStore struct {
	native string

	nextID     int64
	sessions   map[int64]entities.LearningSession
	exercises  map[int64]entities.SessionExercise
	progress   map[progressKey]entities.Progress
	logs       []entities.ExerciseLogEntry
	candidates []entities.Candidate
	pairs      map[int64]entities.TranslationPair
	// pairLangs is the language pair of the last TranslationPair lookup.
	pairLangs Languages

	failOn string
	// raceInsert makes the next Insert lose against a concurrent writer.
	raceInsert *entities.Progress
}

func newMemStore() *memStore {
	return &memStore{
		native:    "en",
		sessions:  make(map[int64]entities.LearningSession),
		exercises: make(map[int64]entities.SessionExercise),
		progress:  make(map[progressKey]entities.Progress),
		pairs:     make(map[int64]entities.TranslationPair),
	}
}

func (m *memStore) addPair(itemID int64, native, target string) {
	m.pairs[itemID] = entities.TranslationPair{ItemID: itemID, NativeText: native, TargetText: target}
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return errInjected
	}
	return nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type memSnapshot struct {
	nextID    int64
	sessions  map[int64]entities.LearningSession
	exercises map[int64]entities.SessionExercise
	progress  map[progressKey]entities.Progress
	logs      []entities.ExerciseLogEntry
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		nextID:    m.nextID,
		sessions:  make(map[int64]entities.LearningSession, len(m.sessions)),
		exercises: make(map[int64]entities.SessionExercise, len(m.exercises)),
		progress:  make(map[progressKey]entities.Progress, len(m.progress)),
		logs:      append([]entities.ExerciseLogEntry(nil), m.logs...),
	}
	for k, v := range m.sessions {
		s.sessions[k] = v
	}
	for k, v := range m.exercises {
		s.exercises[k] = v
	}
	for k, v := range m.progress {
		s.progress[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.nextID = s.nextID
	m.sessions = s.sessions
	m.exercises = s.exercises
	m.progress = s.progress
	m.logs = s.logs
}

// CandidateRepository

func (m *memStore) List(_ context.Context, _ int64, limit int, _ time.Time) ([]entities.Candidate, error) {
	if err := m.fail("List"); err != nil {
		return nil, err
	}
	out := append([]entities.Candidate(nil), m.candidates...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ContentRepository

func (m *memStore) TranslationPair(_ context.Context, itemID int64, nativeLang, targetLang string) (*entities.TranslationPair, error) {
	m.pairLangs = Languages{Native: nativeLang, Target: targetLang}
	p, ok := m.pairs[itemID]
	if !ok {
		return nil, entities.ErrTranslationPairMissing
	}
	return &p, nil
}

func (m *memStore) RandomTranslations(_ context.Context, itemID int64, language, exclude string, limit int) ([]string, error) {
	ids := make([]int64, 0, len(m.pairs))
	for id := range m.pairs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if id == itemID || len(out) == limit {
			continue
		}
		text := m.pairs[id].TargetText
		if language == m.native {
			text = m.pairs[id].NativeText
		}
		if text == exclude || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	return out, nil
}

// ProgressRepository

func (m *memStore) GetForUpdate(_ context.Context, userID, itemID int64) (*entities.Progress, error) {
	p, ok := m.progress[progressKey{userID, itemID}]
	if !ok {
		return nil, entities.ErrProgressNotFound
	}
	return &p, nil
}

func (m *memStore) Insert(_ context.Context, p *entities.Progress) (bool, error) {
	if err := m.fail("Insert"); err != nil {
		return false, err
	}
	key := progressKey{p.UserID, p.ItemID}
	if m.raceInsert != nil {
		m.progress[key] = *m.raceInsert
		m.raceInsert = nil
	}
	if _, ok := m.progress[key]; ok {
		return false, nil
	}
	m.progress[key] = *p
	return true, nil
}

func (m *memStore) Update(_ context.Context, p *entities.Progress) error {
	key := progressKey{p.UserID, p.ItemID}
	if _, ok := m.progress[key]; !ok {
		return entities.ErrProgressNotFound
	}
	m.progress[key] = *p
	return nil
}

func (m *memStore) CountLearnedInSession(_ context.Context, userID, sessionID int64) (int, error) {
	items := map[int64]bool{}
	for _, ex := range m.exercises {
		if ex.SessionID != sessionID {
			continue
		}
		if p, ok := m.progress[progressKey{userID, ex.ItemID}]; ok && p.Status == entities.StatusLearned {
			items[ex.ItemID] = true
		}
	}
	return len(items), nil
}

// sessionRepo adapts memStore to SessionRepository, whose method names
// overlap with the candidate and progress repositories.
type sessionRepo struct{ m *memStore }

func (r sessionRepo) Create(_ context.Context, s *entities.LearningSession) error {
	s.ID = r.m.id()
	r.m.sessions[s.ID] = *s
	return nil
}

func (r sessionRepo) CreateExercises(_ context.Context, exercises []*entities.SessionExercise) error {
	if err := r.m.fail("CreateExercises"); err != nil {
		return err
	}
	for _, ex := range exercises {
		ex.ID = r.m.id()
		r.m.exercises[ex.ID] = *ex
	}
	return nil
}

func (r sessionRepo) Get(_ context.Context, sessionID, userID int64) (*entities.LearningSession, error) {
	s, ok := r.m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, entities.ErrSessionNotFound
	}
	return &s, nil
}

func (r sessionRepo) GetForUpdate(ctx context.Context, sessionID, userID int64) (*entities.LearningSession, error) {
	return r.Get(ctx, sessionID, userID)
}

func (r sessionRepo) UpdateCounters(_ context.Context, s *entities.LearningSession) error {
	if err := r.m.fail("UpdateCounters"); err != nil {
		return err
	}
	r.m.sessions[s.ID] = *s
	return nil
}

func (r sessionRepo) GetExerciseForUpdate(_ context.Context, sessionID, exerciseID int64) (*entities.SessionExercise, error) {
	ex, ok := r.m.exercises[exerciseID]
	if !ok || ex.SessionID != sessionID {
		return nil, entities.ErrExerciseNotFound
	}
	return &ex, nil
}

func (r sessionRepo) FirstPending(ctx context.Context, sessionID int64) (*entities.SessionExercise, error) {
	exercises, _ := r.ListExercises(ctx, sessionID)
	for _, ex := range exercises {
		if !ex.IsAnswered() {
			return ex, nil
		}
	}
	return nil, entities.ErrExerciseNotFound
}

func (r sessionRepo) ListExercises(_ context.Context, sessionID int64) ([]*entities.SessionExercise, error) {
	var out []*entities.SessionExercise
	for _, ex := range r.m.exercises {
		if ex.SessionID == sessionID {
			ex := ex
			out = append(out, &ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r sessionRepo) SetResult(_ context.Context, exerciseID int64, result entities.ExerciseResult) error {
	ex := r.m.exercises[exerciseID]
	if ex.Result != nil {
		return entities.ErrAlreadyAnswered
	}
	ex.Result = &result
	r.m.exercises[exerciseID] = ex
	return nil
}

func (r sessionRepo) Mistakes(_ context.Context, sessionID int64) ([]entities.Mistake, error) {
	counts := map[int64]int{}
	for _, ex := range r.m.exercises {
		if ex.SessionID == sessionID && ex.Result != nil && *ex.Result == entities.ResultWrong {
			counts[ex.ItemID]++
		}
	}
	var out []entities.Mistake
	for id, n := range counts {
		out = append(out, entities.Mistake{ItemID: id, WrongCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WrongCount != out[j].WrongCount {
			return out[i].WrongCount > out[j].WrongCount
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// ExerciseLogRepository

func (m *memStore) Append(_ context.Context, e *entities.ExerciseLogEntry) error {
	m.logs = append(m.logs, *e)
	return nil
}

// UnitOfWork

func (m *memStore) Sessions() SessionRepository  { return sessionRepo{m} }
func (m *memStore) Progress() ProgressRepository { return m }
func (m *memStore) Log() ExerciseLogRepository   { return m }

// memTransactor restores the store snapshot when fn fails.
type memTransactor struct {
	m     *memStore
	calls int
}

func (t *memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	t.calls++
	snap := t.m.snapshot()
	if err := fn(ctx, t.m); err != nil {
		t.m.restore(snap)
		return err
	}
	return nil
}

type memCuratedList struct {
	items map[progressKey]entities.CuratedItem
}

func (c *memCuratedList) List(_ context.Context, userID int64) ([]entities.CuratedItem, error) {
	var out []entities.CuratedItem
	for k, v := range c.items {
		if k.userID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (c *memCuratedList) Add(_ context.Context, userID, itemID int64, now time.Time) error {
	if itemID <= 0 {
		return entities.ErrItemNotFound
	}
	key := progressKey{userID, itemID}
	if _, ok := c.items[key]; !ok {
		c.items[key] = entities.CuratedItem{UserID: userID, ItemID: itemID, AddedAt: now}
	}
	return nil
}

func (c *memCuratedList) Remove(_ context.Context, userID, itemID int64) error {
	delete(c.items, progressKey{userID, itemID})
	return nil
}

type countingMetrics struct {
	started  int
	correct  int
	wrong    int
	finished int
	learned  int
}

func (c *countingMetrics) SessionStarted(int) { c.started++ }
func (c *countingMetrics) AnswerRecorded(_ entities.ExerciseType, isCorrect bool) {
	if isCorrect {
		c.correct++
	} else {
		c.wrong++
	}
}
func (c *countingMetrics) SessionFinished() { c.finished++ }
func (c *countingMetrics) ItemLearned()     { c.learned++ }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
