package database

import (
	"time"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

const (
	GameCollectionName = "games"
)

// GameRecord is the archived final state of one game.
type GameRecord struct {
	GameID            string                      `bson:"game_id" json:"id"`
	Category          string                      `bson:"category" json:"category"`
	NumberOfQuestions int                         `bson:"number_of_questions" json:"numberOfQuestions"`
	Players           map[string]int              `bson:"players" json:"players"`
	Answers           []map[string]session.Answer `bson:"answers" json:"answers"`
	Reason            string                      `bson:"reason" json:"reason"`
	EndedAt           time.Time                   `bson:"ended_at" json:"endedAt"`
}
