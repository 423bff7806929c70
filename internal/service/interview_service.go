package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"esgadvisor/internal/cache"
	"esgadvisor/internal/catalog"
	"esgadvisor/internal/model"
	"esgadvisor/internal/repository"
)

// Observer event names pushed through the Broadcaster.
const (
	EventAnswerReceived     = "answer_received"
	EventFollowUpIssued     = "follow_up_issued"
	EventStimulusAdvanced   = "stimulus_advanced"
	EventInterviewCompleted = "interview_completed"
	EventProfileReady       = "profile_ready"
)

// recentWindow is how many trailing transcript entries accompany a
// classification request, matching the original advisor's context window.
const recentWindow = 4

// InterviewService drives the interview through the stimulus catalog. It
// owns every InterviewState mutation: handlers read, the oracle judges,
// but only the transitions here write. Each transition works on a clone of
// the stored state and writes it back only after every fallible step
// succeeded, so a failed oracle call leaves the session exactly as it was.
type InterviewService struct {
	catalog      *catalog.Catalog
	sessions     cache.SessionCache
	profiles     repository.ProfileRepository
	oracle       Oracle
	scorer       *ScoreAccumulator
	maxFollowUps int // per stimulus; 0 means unbounded
	broadcaster  Broadcaster

	locks sync.Map // sessionID -> *sync.Mutex
	now   func() time.Time
}

// NewInterviewService creates a new interview service. maxFollowUps caps
// how many re-prompts one stimulus may issue; 0 preserves the unbounded
// behavior of the original advisor.
func NewInterviewService(
	cat *catalog.Catalog,
	sessions cache.SessionCache,
	profiles repository.ProfileRepository,
	oracle Oracle,
	maxFollowUps int,
) *InterviewService {
	return &InterviewService{
		catalog:      cat,
		sessions:     sessions,
		profiles:     profiles,
		oracle:       oracle,
		scorer:       NewScoreAccumulator(),
		maxFollowUps: maxFollowUps,
		now:          time.Now,
	}
}

// SetBroadcaster sets the broadcaster for observer events
func (s *InterviewService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// lock returns the per-session mutex, creating it on first use. One
// in-flight transition per session; sessions never share state.
func (s *InterviewService) lock(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start creates a fresh session: index 0, awaiting the first answer, the
// analyst greeting and first stimulus already on the transcript.
func (s *InterviewService) Start(ctx context.Context) (*model.InterviewState, error) {
	first, ok := s.catalog.At(0)
	if !ok {
		return nil, fmt.Errorf("stimulus catalog is empty")
	}

	now := s.now()
	state := &model.InterviewState{
		SessionID:     "itv_" + uuid.New().String()[:8],
		StimulusIndex: 0,
		Turn:          model.TurnAwaitingFirstAnswer,
		Scores:        model.NewScoreVector(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	state.Append(model.SpeakerAnalyst, catalog.Greeting, now)
	state.Append(model.SpeakerAnalyst, presentStimulus(first), now)

	if err := s.sessions.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("storing new session: %w", err)
	}
	return state, nil
}

// Current returns what the shell should present: the stimulus at the
// current index paired with its opening question, or the pending
// follow-up. Idempotent between submissions.
func (s *InterviewService) Current(ctx context.Context, sessionID string) (*model.PromptView, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.promptFor(state)
}

func (s *InterviewService) promptFor(state *model.InterviewState) (*model.PromptView, error) {
	if state.Turn == model.TurnComplete {
		return nil, fmt.Errorf("%w: interview already complete", model.ErrInvalidTransition)
	}
	stimulus, ok := s.catalog.At(state.StimulusIndex)
	if !ok {
		return nil, fmt.Errorf("stimulus index %d out of range", state.StimulusIndex)
	}
	view := &model.PromptView{
		StimulusIndex: state.StimulusIndex,
		StimulusText:  stimulus.Text,
		Question:      stimulus.OpeningQuestion,
	}
	if state.Turn == model.TurnAwaitingFollowUp {
		view.Question = state.PendingFollowUp
		view.IsFollowUp = true
	}
	return view, nil
}

// SubmitAnswer is the single transition function of the interview. It
// classifies the answer, folds the verdict into the scores, and either
// re-prompts on the same stimulus or advances. The stored state changes
// only when every step succeeded.
func (s *InterviewService) SubmitAnswer(ctx context.Context, sessionID, text string) (*model.SubmitAnswerResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrInvalidInput
	}

	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Turn == model.TurnComplete {
		return nil, fmt.Errorf("%w: interview already complete", model.ErrInvalidTransition)
	}

	stimulus, ok := s.catalog.At(state.StimulusIndex)
	if !ok {
		return nil, fmt.Errorf("stimulus index %d out of range", state.StimulusIndex)
	}

	next := state.Clone()
	now := s.now()
	next.Append(model.SpeakerUser, text, now)

	verdict, err := s.oracle.Classify(ctx, stimulus, text, next.RecentTranscript(recentWindow))
	if err != nil {
		return nil, err
	}
	if err := verdict.Validate(); err != nil {
		return nil, err
	}
	verdict.Normalize()

	s.scorer.Apply(next.Scores, verdict, state.Turn)

	event := EventStimulusAdvanced
	capReached := s.maxFollowUps > 0 && next.FollowUpCount >= s.maxFollowUps

	if !verdict.Sufficient && !capReached {
		next.Turn = model.TurnAwaitingFollowUp
		next.PendingFollowUp = verdict.FollowUp
		next.FollowUpCount++
		next.Append(model.SpeakerAnalyst, verdict.FollowUp, now)
		event = EventFollowUpIssued
	} else {
		// Sufficient answer, or the follow-up budget for this stimulus
		// is spent and we move on without a score increment.
		next.StimulusIndex++
		next.PendingFollowUp = ""
		next.FollowUpCount = 0
		if next.StimulusIndex == s.catalog.Len() {
			next.Turn = model.TurnComplete
			event = EventInterviewCompleted
		} else {
			next.Turn = model.TurnAwaitingFirstAnswer
			upcoming, _ := s.catalog.At(next.StimulusIndex)
			next.Append(model.SpeakerAnalyst, presentStimulus(upcoming), now)
		}
	}
	next.UpdatedAt = now

	if err := s.sessions.Set(ctx, next); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	resp := &model.SubmitAnswerResponse{
		Turn:          next.Turn,
		StimulusIndex: next.StimulusIndex,
		Scores:        next.Scores.Clone(),
	}
	if next.Turn != model.TurnComplete {
		resp.NextPrompt, _ = s.promptFor(next)
	}

	s.broadcast(sessionID, EventAnswerReceived, map[string]interface{}{
		"text":      text,
		"dimension": verdict.Dimension,
	})
	s.broadcast(sessionID, event, resp)

	return resp, nil
}

// Finalize is valid only once the last stimulus has been answered. It asks
// the oracle for the profile narrative, parses it into the final score
// vector, persists the record, and archives the session. A failed
// persistence write is reported alongside the Profile but does not void
// it; a failed parse leaves the session intact so the caller may retry.
func (s *InterviewService) Finalize(ctx context.Context, sessionID string) (*model.Profile, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Turn != model.TurnComplete {
		return nil, fmt.Errorf("%w: interview not complete", model.ErrInvalidTransition)
	}

	narrative, err := s.oracle.Summarize(ctx, state.Transcript)
	if err != nil {
		return nil, err
	}

	scores, err := ParseProfile(narrative)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		Scores:    scores,
		Narrative: narrative,
	}

	record := &model.ProfileRecord{
		SessionID:   sessionID,
		Answers:     state.UserAnswers(),
		Scores:      scores.Clone(),
		Narrative:   narrative,
		CompletedAt: s.now(),
	}
	if err := s.profiles.Append(ctx, record); err != nil {
		// The profile is already computed; the lost record is the
		// caller's problem to report, not a reason to discard it.
		return profile, fmt.Errorf("appending profile record: %w", err)
	}

	s.broadcast(sessionID, EventProfileReady, profile)

	// Archive: the session has served its purpose, and deleting it makes
	// a second finalize fail with ErrSessionNotFound.
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return profile, fmt.Errorf("archiving session: %w", err)
	}
	s.locks.Delete(sessionID)

	return profile, nil
}

// Transcript returns the audit record of a session.
func (s *InterviewService) Transcript(ctx context.Context, sessionID string) ([]model.TranscriptEntry, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Transcript, nil
}

func (s *InterviewService) broadcast(sessionID, event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToObservers(sessionID, event, payload)
	}
}

func presentStimulus(stimulus model.Stimulus) string {
	return stimulus.Text + "\n\n" + stimulus.OpeningQuestion
}
