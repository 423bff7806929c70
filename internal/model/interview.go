package model

import "time"

// Turn is the interview sub-state within the current stimulus.
type Turn string

const (
	TurnAwaitingFirstAnswer Turn = "awaiting_first_answer"
	TurnAwaitingFollowUp    Turn = "awaiting_follow_up"
	TurnComplete            Turn = "complete"
)

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerUser    Speaker = "user"
	SpeakerAnalyst Speaker = "analyst"
)

// TranscriptEntry is one utterance in the interview, append-only.
type TranscriptEntry struct {
	Speaker Speaker   `json:"speaker" bson:"speaker"`
	Text    string    `json:"text" bson:"text"`
	At      time.Time `json:"at" bson:"at"`
}

// InterviewState is the mutable per-session state. It is owned by the
// session store and mutated exclusively through InterviewService
// transitions; handlers and the oracle never touch it directly.
type InterviewState struct {
	SessionID       string            `json:"sessionId"`
	StimulusIndex   int               `json:"stimulusIndex"`
	Turn            Turn              `json:"turn"`
	PendingFollowUp string            `json:"pendingFollowUp,omitempty"`
	FollowUpCount   int               `json:"followUpCount"` // follow-ups issued for the current stimulus
	Transcript      []TranscriptEntry `json:"transcript"`
	Scores          ScoreVector       `json:"scores"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Append records an utterance at the end of the transcript.
func (s *InterviewState) Append(speaker Speaker, text string, at time.Time) {
	s.Transcript = append(s.Transcript, TranscriptEntry{Speaker: speaker, Text: text, At: at})
}

// RecentTranscript returns up to n trailing entries, oldest first. The
// original advisor fed the last four messages to the oracle as context.
func (s *InterviewState) RecentTranscript(n int) []TranscriptEntry {
	if n <= 0 || len(s.Transcript) <= n {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-n:]
}

// UserAnswers returns the raw user utterances in submission order.
func (s *InterviewState) UserAnswers() []string {
	answers := make([]string, 0, len(s.Transcript))
	for _, e := range s.Transcript {
		if e.Speaker == SpeakerUser {
			answers = append(answers, e.Text)
		}
	}
	return answers
}

// Clone deep-copies the state. Transitions work on a clone and store it
// back only on success, so a failed oracle call leaves the session intact.
func (s *InterviewState) Clone() *InterviewState {
	out := *s
	out.Transcript = make([]TranscriptEntry, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	out.Scores = s.Scores.Clone()
	return &out
}
