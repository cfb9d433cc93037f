package history

// Turn is one finalized question/answer/sources record.
// Turns are never modified after they are appended.
type Turn struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

// NewTurn copies sources so the turn does not share a slice with the caller.
// Nil sources become an empty slice so snapshots serialize them as [].
func NewTurn(question, answer string, sources []string) Turn {
	return Turn{
		Question: question,
		Answer:   answer,
		Sources:  append([]string{}, sources...),
	}
}
