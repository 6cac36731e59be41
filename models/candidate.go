package models

// Candidate is a registry entry. VoteCount is a derived projection of the
// chain; the chain stays authoritative and every count must be reproducible
// by replaying it.
type Candidate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Manifesto  string `json:"manifesto"`
	VoteCount  int    `json:"voteCount"`
}
