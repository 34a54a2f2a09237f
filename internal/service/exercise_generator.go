package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

const (
	// DistractorCount is how many wrong options are offered per exercise.
	DistractorCount = 3
	// MaxOptions caps the options shown to the learner.
	MaxOptions = DistractorCount + 1
)

// Languages names the learner's native and target language codes.
type Languages struct {
	Native string
	Target string
}

// Randomizer is the source of randomness used to render exercises.
type Randomizer interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) Intn(n int) int                     { return rand.Intn(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// ExerciseGenerator renders items as multiple choice questions.
type ExerciseGenerator struct {
	content ContentRepository
	rnd     Randomizer
}

// NewExerciseGenerator creates a generator backed by the global math/rand source.
func NewExerciseGenerator(content ContentRepository) *ExerciseGenerator {
	return &ExerciseGenerator{content: content, rnd: globalRand{}}
}

// NewExerciseGeneratorWithRand creates a generator with an explicit randomness source.
func NewExerciseGeneratorWithRand(content ContentRepository, rnd Randomizer) *ExerciseGenerator {
	return &ExerciseGenerator{content: content, rnd: rnd}
}

// Generate renders an exercise for itemID. When forced is empty a direction
// is picked uniformly at random.
func (g *ExerciseGenerator) Generate(ctx context.Context, itemID int64, langs Languages, forced entities.ExerciseType) (*entities.Exercise, error) {
	exType := forced
	if exType == "" {
		exType = entities.ExerciseTypes[g.rnd.Intn(len(entities.ExerciseTypes))]
	}
	if !exType.Valid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidExerciseType, exType)
	}

	pair, err := g.content.TranslationPair(ctx, itemID, langs.Native, langs.Target)
	if err != nil {
		return nil, err
	}

	prompt, answer, answerLang := orient(pair, exType, langs)

	distractors, err := g.content.RandomTranslations(ctx, itemID, answerLang, answer, DistractorCount)
	if err != nil {
		return nil, fmt.Errorf("load distractors: %w", err)
	}

	options := make([]string, 0, len(distractors)+1)
	options = append(options, answer)
	for _, d := range distractors {
		if d != answer {
			options = append(options, d)
		}
	}
	g.rnd.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}

	return &entities.Exercise{
		ItemID:        itemID,
		Type:          exType,
		Prompt:        prompt,
		Options:       options,
		CorrectAnswer: answer,
	}, nil
}

// CorrectAnswer returns the canonical answer of itemID in the given direction.
func (g *ExerciseGenerator) CorrectAnswer(ctx context.Context, itemID int64, exType entities.ExerciseType, langs Languages) (string, error) {
	if !exType.Valid() {
		return "", fmt.Errorf("%w: %q", entities.ErrInvalidExerciseType, exType)
	}

	pair, err := g.content.TranslationPair(ctx, itemID, langs.Native, langs.Target)
	if err != nil {
		return "", err
	}

	_, answer, _ := orient(pair, exType, langs)
	return answer, nil
}

// orient returns the prompt, the answer and the answer's language for a direction.
func orient(pair *entities.TranslationPair, exType entities.ExerciseType, langs Languages) (string, string, string) {
	if exType == entities.ExerciseNativeToTarget {
		return pair.NativeText, pair.TargetText, langs.Target
	}
	return pair.TargetText, pair.NativeText, langs.Native
}
