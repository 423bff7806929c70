package service

import (
	"context"

	"esgadvisor/internal/model"
)

// Oracle is the narrow contract the interview engine consumes: classify a
// single free-text answer against the current stimulus, and synthesize a
// profile narrative from the full transcript. Both calls may block, fail,
// and return non-deterministic text; the engine never retries them.
type Oracle interface {
	Classify(ctx context.Context, stimulus model.Stimulus, answer string, recent []model.TranscriptEntry) (*model.Verdict, error)
	Summarize(ctx context.Context, transcript []model.TranscriptEntry) (string, error)
}
