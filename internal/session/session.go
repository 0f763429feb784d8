package session

import "strings"

// Separator joins the steps of a cumulative USSD input string.
const Separator = "*"

// Callback is one gateway request. The gateway resubmits the whole
// input history in Text on every turn, so nothing is stored between calls.
type Callback struct {
	SessionID   string `json:"sessionId"`
	ServiceCode string `json:"serviceCode"`
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

// Input is the cumulative input split into positional steps.
type Input struct {
	Raw   string
	Steps []string
}

// Parse splits raw on Separator. An empty string has no steps.
func Parse(raw string) Input {
	if raw == "" {
		return Input{Raw: raw}
	}
	return Input{Raw: raw, Steps: strings.Split(raw, Separator)}
}

// Depth is the number of steps entered so far.
func (in Input) Depth() int {
	return len(in.Steps)
}

// Empty reports whether the user has not entered anything yet.
func (in Input) Empty() bool {
	return len(in.Steps) == 0
}

// Step returns step i, or "" when out of range.
func (in Input) Step(i int) string {
	if i < 0 || i >= len(in.Steps) {
		return ""
	}
	return in.Steps[i]
}

// Last returns the most recent step.
func (in Input) Last() string {
	return in.Step(len(in.Steps) - 1)
}
