package service

import (
	"sort"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// MaxConsecutiveCurated is how many curated list items may follow each other
// while other items are still available.
const MaxConsecutiveCurated = 2

// SessionComposer turns ranked candidates into a quota-balanced, interleaved plan.
type SessionComposer struct {
	maxConsecutiveCurated int
}

// NewSessionComposer creates a new SessionComposer.
func NewSessionComposer() *SessionComposer {
	return &SessionComposer{maxConsecutiveCurated: MaxConsecutiveCurated}
}

type rankedCandidate struct {
	entities.Candidate
	rank int
}

// Compose selects up to total candidates and orders them into a plan.
// Candidates must be ranked best first. The plan is shorter than total when
// there are not enough distinct candidates.
func (c *SessionComposer) Compose(candidates []entities.Candidate, total, maxNew int) ([]entities.PlannedExercise, error) {
	if len(candidates) == 0 {
		return nil, entities.ErrNoContentAvailable
	}
	if total <= 0 {
		return nil, nil
	}

	newBucket, review, reinforcement := partition(candidates)

	newTarget, reviewTarget, reinforcementTarget := quotas(total, maxNew)

	selected := make([]rankedCandidate, 0, total)
	selected, newBucket = takeInto(selected, newBucket, newTarget)
	selected, review = takeInto(selected, review, reviewTarget)
	selected, reinforcement = takeInto(selected, reinforcement, reinforcementTarget)

	// Back-fill whatever the short buckets left open.
	for _, bucket := range [][]rankedCandidate{review, reinforcement, newBucket} {
		if len(selected) == total {
			break
		}
		selected, _ = takeInto(selected, bucket, total-len(selected))
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].rank < selected[j].rank })

	ordered := c.interleave(selected)

	plan := make([]entities.PlannedExercise, len(ordered))
	for i, rc := range ordered {
		plan[i] = entities.PlannedExercise{
			ItemID: rc.ItemID,
			Type:   entities.ExerciseTypeForPosition(i),
		}
	}

	return plan, nil
}

// quotas returns the new, review and reinforcement targets for a session of total items.
func quotas(total, maxNew int) (int, int, int) {
	share := total * 40 / 100
	newTarget := min(share, max(maxNew, 0))
	reviewTarget := share
	return newTarget, reviewTarget, total - newTarget - reviewTarget
}

// partition splits candidates into buckets, keeping rank order and dropping
// repeated item IDs.
func partition(candidates []entities.Candidate) (newBucket, review, reinforcement []rankedCandidate) {
	seen := make(map[int64]struct{}, len(candidates))
	for i, cand := range candidates {
		if _, ok := seen[cand.ItemID]; ok {
			continue
		}
		seen[cand.ItemID] = struct{}{}

		rc := rankedCandidate{Candidate: cand, rank: i}
		switch {
		case cand.Status == entities.StatusNew || cand.Status == "":
			newBucket = append(newBucket, rc)
		case cand.Status == entities.StatusLearning && cand.Due:
			review = append(review, rc)
		default:
			reinforcement = append(reinforcement, rc)
		}
	}
	return newBucket, review, reinforcement
}

// takeInto appends up to n items from bucket to out and returns both updated slices.
func takeInto(out, bucket []rankedCandidate, n int) ([]rankedCandidate, []rankedCandidate) {
	if n <= 0 {
		return out, bucket
	}
	if n > len(bucket) {
		n = len(bucket)
	}
	return append(out, bucket[:n]...), bucket[n:]
}

// interleave emits curated items first, forcing one other item after every
// run of maxConsecutiveCurated curated ones. Both streams keep rank order.
func (c *SessionComposer) interleave(selected []rankedCandidate) []rankedCandidate {
	var curated, other []rankedCandidate
	for _, rc := range selected {
		if rc.InCuratedList {
			curated = append(curated, rc)
		} else {
			other = append(other, rc)
		}
	}

	out := make([]rankedCandidate, 0, len(selected))
	run := 0
	for len(curated) > 0 || len(other) > 0 {
		switch {
		case len(curated) == 0:
			out = append(out, other[0])
			other = other[1:]
		case run < c.maxConsecutiveCurated:
			out = append(out, curated[0])
			curated = curated[1:]
			run++
		case len(other) > 0:
			out = append(out, other[0])
			other = other[1:]
			run = 0
		default:
			out = append(out, curated[0])
			curated = curated[1:]
			run = 0
		}
	}

	return out
}
