package entities

import "time"

// ExerciseType is the direction an item is tested in.
type ExerciseType string

const (
	// ExerciseTargetToNative shows the target-language text and expects the native one (recognition).
	ExerciseTargetToNative ExerciseType = "target_to_native"
	// ExerciseNativeToTarget shows the native-language text and expects the target one (production).
	ExerciseNativeToTarget ExerciseType = "native_to_target"
)

// ExerciseTypes lists every supported direction.
var ExerciseTypes = []ExerciseType{ExerciseTargetToNative, ExerciseNativeToTarget}

// Valid reports whether t is a supported direction.
func (t ExerciseType) Valid() bool {
	return t == ExerciseTargetToNative || t == ExerciseNativeToTarget
}

// ExerciseTypeForPosition assigns alternating directions by position in the plan.
func ExerciseTypeForPosition(orderIndex int) ExerciseType {
	if orderIndex%2 == 0 {
		return ExerciseTargetToNative
	}
	return ExerciseNativeToTarget
}

// Exercise is a rendered multiple choice question for one item.
type Exercise struct {
	ItemID        int64        `json:"item_id"`
	Type          ExerciseType `json:"exercise_type"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"-"`
}

// PlannedExercise is one composed slot before it is persisted.
type PlannedExercise struct {
	ItemID int64
	Type   ExerciseType
}

// Candidate is an item ranked for inclusion in a session.
type Candidate struct {
	ItemID        int64
	Status        Status
	NextReviewAt  *time.Time
	InCuratedList bool
	Due           bool
	Score         int
}

// Priority weights, summed per candidate.
const (
	WeightCuratedList = 50
	WeightDue         = 40
	WeightLearning    = 25
	WeightNew         = 10
)

// PriorityScore sums the indicator weights of a candidate.
func PriorityScore(inCuratedList, due bool, status Status) int {
	score := 0
	if inCuratedList {
		score += WeightCuratedList
	}
	if due {
		score += WeightDue
	}
	switch status {
	case StatusLearning:
		score += WeightLearning
	case StatusNew, "":
		score += WeightNew
	}
	return score
}
