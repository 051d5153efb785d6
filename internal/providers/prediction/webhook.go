package prediction

import (
	"encoding/json"
	"strings"
)

// Terminal prediction statuses reported by the provider.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Callback is the body the provider posts to the prediction webhook.
// Output is either a single URL or a list of URLs depending on the model.
type Callback struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// FirstOutput returns the first output URL, or "" when there is none.
func (c Callback) FirstOutput() string {
	if len(c.Output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(c.Output, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(c.Output, &many); err == nil {
		for _, u := range many {
			if u = strings.TrimSpace(u); u != "" {
				return u
			}
		}
	}
	return ""
}

// ErrorText flattens the provider error field.
func (c Callback) ErrorText() string {
	return errorText(c.Error)
}
