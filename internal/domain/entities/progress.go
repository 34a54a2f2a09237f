package entities

import "time"

// Status represents the mastery state of an item for a learner.
type Status string

const (
	StatusNew      Status = "new"      // never answered
	StatusLearning Status = "learning" // answered at least once
	StatusLearned  Status = "learned"  // enough correct answers with few mistakes
)

const (
	// MinCorrectForLearned is the correct answer count required to promote learning to learned.
	MinCorrectForLearned = 3
	// MaxWrongForLearned is the highest wrong answer count that still allows promotion.
	MaxWrongForLearned = 1
)

// reviewIntervals is indexed by the correct answer count, capped at the last tier.
var reviewIntervals = []time.Duration{
	10 * time.Minute, // 0 correct
	10 * time.Minute, // 1 correct
	24 * time.Hour,   // 2 correct
	72 * time.Hour,   // 3+ correct
}

// Progress stores the mastery state of one item for one learner.
// A missing row is equivalent to a Progress in StatusNew with zero counts.
type Progress struct {
	UserID int64
	ItemID int64

	Status       Status
	CorrectCount int
	WrongCount   int
	LastSeenAt   *time.Time // nil until the first answer
	NextReviewAt *time.Time // nil until the first answer
}

// NewProgress creates the implicit progress of an item the learner has never answered.
func NewProgress(userID, itemID int64) *Progress {
	return &Progress{
		UserID: userID,
		ItemID: itemID,
		Status: StatusNew,
	}
}

// ApplyAnswer updates counters, status and review schedule after one answer.
//
// Status moves new -> learning on any answer and learning -> learned once the
// learner has MinCorrectForLearned correct answers and at most
// MaxWrongForLearned wrong ones. A wrong answer never demotes the status.
func (p *Progress) ApplyAnswer(isCorrect bool, now time.Time) {
	if isCorrect {
		p.CorrectCount++
	} else {
		p.WrongCount++
	}

	p.Status = nextStatus(p.Status, p.CorrectCount, p.WrongCount)

	next := now.Add(ReviewInterval(p.CorrectCount))
	p.LastSeenAt = &now
	p.NextReviewAt = &next
}

// IsDue reports whether the item is due for review at now.
func (p *Progress) IsDue(now time.Time) bool {
	return p.NextReviewAt != nil && !p.NextReviewAt.After(now)
}

// ReviewInterval returns the delay until the next review for the given correct answer count.
func ReviewInterval(correctCount int) time.Duration {
	if correctCount < 0 {
		correctCount = 0
	}
	if correctCount >= len(reviewIntervals) {
		correctCount = len(reviewIntervals) - 1
	}
	return reviewIntervals[correctCount]
}

func nextStatus(current Status, correct, wrong int) Status {
	switch current {
	case StatusNew, "":
		return StatusLearning
	case StatusLearning:
		if correct >= MinCorrectForLearned && wrong <= MaxWrongForLearned {
			return StatusLearned
		}
		return StatusLearning
	default:
		return current
	}
}
