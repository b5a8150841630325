package model

import "time"

// Demographics is the start form payload.
type Demographics struct {
	FirstName *string  `json:"first_name,omitempty"`
	Gender    string   `json:"gender"`
	Handicap  *float64 `json:"handicap,omitempty"`
}

// Example is the professional golfer matched to a persona.
type Example struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Persona is the server-computed playing style.
type Persona struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Tagline  string  `json:"tagline"`
	Watchout string  `json:"watchout"`
	Reset    string  `json:"reset"`
	Truth    string  `json:"truth"`
	Example  Example `json:"example"`
}

// AssessmentSession is the client's read-only projection of the server session.
type AssessmentSession struct {
	ID          string             `json:"id"`
	PublicToken string             `json:"public_token"`
	FirstName   *string            `json:"first_name,omitempty"`
	Gender      string             `json:"gender"`
	Handicap    *float64           `json:"handicap,omitempty"`
	Locale      string             `json:"locale,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Scores      map[string]float64 `json:"scores,omitempty"`
	Persona     *Persona           `json:"persona,omitempty"`
}

// DisplayName returns the first name or an empty string.
func (s AssessmentSession) DisplayName() string {
	if s.FirstName == nil {
		return ""
	}
	return *s.FirstName
}

// TipList splits advice into dos and don'ts.
type TipList struct {
	Dos   []string `json:"dos"`
	Donts []string `json:"donts"`
}

// Tips groups advice for practice and for play.
type Tips struct {
	Practice TipList `json:"practice"`
	Play     TipList `json:"play"`
}

// StartResult is the response to POST /assessments/start.
type StartResult struct {
	Session AssessmentSession `json:"assessment_session"`
	Frames  []Frame           `json:"frames"`
}

// CompletionResult is the response to POST /assessments/{id}/complete.
type CompletionResult struct {
	Session  AssessmentSession `json:"assessment_session"`
	Tips     Tips              `json:"tips"`
	ShareURL string            `json:"share_url"`
}

// PublicResult is the response to GET /assessments/public/{token}.
type PublicResult struct {
	Assessment AssessmentSession `json:"assessment"`
	Tips       Tips              `json:"tips"`
}

// PublicResultFrom projects a completion into the public result shape.
func PublicResultFrom(c CompletionResult) PublicResult {
	return PublicResult{Assessment: c.Session, Tips: c.Tips}
}
