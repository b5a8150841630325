// Package types contains the view projections rendered by the HTTP layer.
package types

import "github.com/okian/bethegolf/internal/domain/model"

// AttemptView is the read shape of one assessment attempt.
type AttemptView struct {
	ID          string             `json:"id"`
	State       string             `json:"state"`
	Locale      string             `json:"locale"`
	FrameIndex  int                `json:"frame_index"`
	FrameCount  int                `json:"frame_count"`
	Frame       *model.Frame       `json:"frame,omitempty"`
	Selection   model.Selection    `json:"selection"`
	CanAdvance  bool               `json:"can_advance"`
	Answered    int                `json:"answered"`
	Error       string             `json:"error,omitempty"`
	ResultToken string             `json:"result_token,omitempty"`
	ShareURL    string             `json:"share_url,omitempty"`
	Persona     *model.Persona     `json:"persona,omitempty"`
	Tips        *model.Tips        `json:"tips,omitempty"`
	Scores      map[string]float64 `json:"scores,omitempty"`
}

// Progress returns the completed fraction in [0,1].
func (v AttemptView) Progress() float64 {
	if v.FrameCount == 0 {
		return 0
	}
	return float64(v.Answered) / float64(v.FrameCount)
}

// ShareLink is one social network intent.
type ShareLink struct {
	Network string `json:"network"`
	Label   string `json:"label"`
	URL     string `json:"url"`
}

// ResultView is the read shape of a public result page.
type ResultView struct {
	Token    string             `json:"token"`
	Locale   string             `json:"locale"`
	Name     string             `json:"first_name,omitempty"`
	Persona  *model.Persona     `json:"persona,omitempty"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	Tips     model.Tips         `json:"tips"`
	ShareURL string             `json:"share_url"`
	Filename string             `json:"filename"`
	Links    []ShareLink        `json:"links,omitempty"`
}
