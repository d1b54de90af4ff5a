package models

// MatchSignals are the identifying attributes supplied to the match
// aggregator. At least one must be non-empty.
type MatchSignals struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Empty reports whether no signal is present
func (s MatchSignals) Empty() bool {
	return s.Phone == "" && s.Email == "" && s.Name == ""
}

// MatchCandidate is a scored contact produced by the match aggregator.
// Transient: lives for one request, never persisted.
type MatchCandidate struct {
	ContactID   string     `json:"contact_id"`
	DisplayName string     `json:"display_name"`
	Endpoints   []Endpoint `json:"endpoints"`
	Confidence  float64    `json:"confidence"`
}
