package model

import "time"

// Profile is the terminal artifact of a session: the parsed, clamped score
// vector plus the raw oracle narrative kept for audit and display.
type Profile struct {
	Scores    ScoreVector `json:"scores"`
	Narrative string      `json:"narrative"`
}

// ProfileRecord is the persistence form of a completed interview, written
// exactly once per session after a successful finalize.
type ProfileRecord struct {
	ID          string      `json:"id" bson:"_id,omitempty"`
	SessionID   string      `json:"sessionId" bson:"sessionId"`
	Answers     []string    `json:"answers" bson:"answers"` // raw user utterances, in order
	Scores      ScoreVector `json:"scores" bson:"scores"`
	Narrative   string      `json:"narrative" bson:"narrative"`
	CompletedAt time.Time   `json:"completedAt" bson:"completedAt"`
}

// SubmitAnswerRequest is the request body for an answer submission.
type SubmitAnswerRequest struct {
	Text string `json:"text"`
}

// SubmitAnswerResponse reports the transition outcome so the shell can
// decide what to present next.
type SubmitAnswerResponse struct {
	Turn          Turn        `json:"turn"`
	StimulusIndex int         `json:"stimulusIndex"`
	Scores        ScoreVector `json:"scores"`
	NextPrompt    *PromptView `json:"nextPrompt,omitempty"` // nil once complete
}

// StartInterviewResponse is returned when a session is created.
type StartInterviewResponse struct {
	SessionID string      `json:"sessionId"`
	Token     string      `json:"token"`
	Greeting  string      `json:"greeting"`
	Prompt    *PromptView `json:"prompt"`
}
