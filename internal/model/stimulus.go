package model

// SeedQuestion is a candidate follow-up prompt for a stimulus, optionally
// targeted at one profile dimension.
type SeedQuestion struct {
	Dimension Dimension `json:"dimension,omitempty" bson:"dimension,omitempty"`
	Prompt    string    `json:"prompt" bson:"prompt"`
}

// Stimulus is one news item presented to the investor to elicit an opinion.
type Stimulus struct {
	ID              int            `json:"id" bson:"id"` // ordinal position, zero-indexed
	Text            string         `json:"text" bson:"text"`
	OpeningQuestion string         `json:"openingQuestion" bson:"openingQuestion"`
	SeedQuestions   []SeedQuestion `json:"seedQuestions,omitempty" bson:"seedQuestions,omitempty"`
}

// PromptView is what the shell renders for the current turn: the stimulus
// text plus either its opening question or the pending follow-up.
type PromptView struct {
	StimulusIndex int    `json:"stimulusIndex"`
	StimulusText  string `json:"stimulusText"`
	Question      string `json:"question"`
	IsFollowUp    bool   `json:"isFollowUp"`
}
