package session

import "sync"

// Answer is one player's submission for one question. CorrectChoice is a
// display copy of the engine's answer; scores come from the engine only.
type Answer struct {
	Choice        string `json:"choice" bson:"choice"`
	CorrectChoice string `json:"correct" bson:"correct"`
}

// AnswerLedger keeps one map per question index, created when first touched.
type AnswerLedger struct {
	mu      sync.Mutex
	answers []map[string]Answer
}

func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{}
}

// Record stores the answer of player for question index, replacing any
// earlier submission for the same pair.
func (l *AnswerLedger) Record(index int, player, choice, correctChoice string) {
	if index < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.answers) <= index {
		l.answers = append(l.answers, make(map[string]Answer))
	}
	l.answers[index][player] = Answer{Choice: choice, CorrectChoice: correctChoice}
}

// Snapshot returns a copy of the answers for index; untouched indices yield
// an empty map.
func (l *AnswerLedger) Snapshot(index int) map[string]Answer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Answer)
	if index < 0 || index >= len(l.answers) {
		return out
	}
	for player, a := range l.answers[index] {
		out[player] = a
	}
	return out
}

// All returns a copy of every recorded index.
func (l *AnswerLedger) All() []map[string]Answer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]map[string]Answer, len(l.answers))
	for i, m := range l.answers {
		cp := make(map[string]Answer, len(m))
		for player, a := range m {
			cp[player] = a
		}
		out[i] = cp
	}
	return out
}

func (l *AnswerLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.answers)
}
