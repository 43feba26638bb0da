package domain

import "time"

type ConversationTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSnapshot is the transcript of one session generation. A reset
// starts a new generation.
type ConversationSnapshot struct {
	Generation int64
	Turns      []ConversationTurn
}

// LastTurns returns the trailing window of turns. A limit <= 0 keeps all.
func LastTurns(turns []ConversationTurn, limit int) []ConversationTurn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
