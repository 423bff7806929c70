package service

import "esgadvisor/internal/model"

// Per-turn score weights. A first-pass answer that stands on its own earns
// the full increment the original advisor applied per classified turn; an
// answer that only resolved after a follow-up earns half.
const (
	FirstAnswerWeight = 10
	FollowUpWeight    = 5
)

// ScoreAccumulator applies classification verdicts to a score vector. It
// is the only component that mutates scores; every write clamps to the
// score domain. Pure and deterministic given its inputs.
type ScoreAccumulator struct {
	firstAnswerWeight int
	followUpWeight    int
}

// NewScoreAccumulator creates an accumulator with the default weights.
func NewScoreAccumulator() *ScoreAccumulator {
	return &ScoreAccumulator{
		firstAnswerWeight: FirstAnswerWeight,
		followUpWeight:    FollowUpWeight,
	}
}

// Apply folds one verdict into the scores. A None/unclear dimension is a
// valid, silent outcome. An insufficient verdict contributes nothing yet:
// the stimulus earns its weight on the turn that resolves it, at the
// follow-up tier when that took a re-prompt.
func (a *ScoreAccumulator) Apply(scores model.ScoreVector, verdict *model.Verdict, turn model.Turn) {
	if verdict.Dimension == model.DimensionNone || !verdict.Sufficient {
		return
	}
	weight := a.firstAnswerWeight
	if turn == model.TurnAwaitingFollowUp {
		weight = a.followUpWeight
	}
	scores.Add(verdict.Dimension, weight)
}
