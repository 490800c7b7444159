package agent

// Envelope is the JSON wrapper the agent CLI writes to stdout when invoked
// with --json. A successful invocation always carries at least one payload.
type Envelope struct {
	RunID   string `json:"runId"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Result  Result `json:"result"`
}

// Result holds the agent's reply payloads plus optional provider metadata.
type Result struct {
	Payloads []Payload              `json:"payloads"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
}

// Payload is one unit of reply text, optionally paired with a media reference.
type Payload struct {
	Text     string `json:"text"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// Text returns the text of the first payload, or "" when the envelope is
// empty. Extraction only ever looks at the first payload.
func (e *Envelope) Text() string {
	if e == nil || len(e.Result.Payloads) == 0 {
		return ""
	}
	return e.Result.Payloads[0].Text
}
