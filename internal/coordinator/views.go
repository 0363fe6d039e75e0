package coordinator

import (
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

// CreateRequest describes a new game. Zero values take the configured defaults.
type CreateRequest struct {
	Player            string
	Category          string
	NumberOfPlayers   int
	NumberOfQuestions int
	AnswerTimeLimit   int
	StartTimeLimit    int
	ResultTimeLimit   int
}

type LobbyView struct {
	SessionID       string        `json:"id"`
	Players         []string      `json:"players"`
	Count           int           `json:"count"`
	ExpectedPlayers int           `json:"expectedPlayers"`
	Started         bool          `json:"started"`
	Phase           session.Phase `json:"phase"`
}

type ReadyView struct {
	Ready     bool                        `json:"ready"`
	Questions map[string]session.Question `json:"questions,omitempty"`
}

type QuestionView struct {
	SessionID         string        `json:"id"`
	Index             int           `json:"question"`
	Text              string        `json:"text"`
	Choices           []string      `json:"choices"`
	Stage             session.Stage `json:"stage"`
	NumberOfQuestions int           `json:"numberOfQuestions"`
	AnswerTimeLimit   int           `json:"answerTimeLimit"`
}

// AnswerRequest submits one choice. A negative Question means the question
// the engine currently has open.
type AnswerRequest struct {
	SessionID string
	Player    string
	Question  int
	Choice    string
}

type Ack struct {
	SessionID string `json:"id"`
	Player    string `json:"player"`
	Question  int    `json:"question"`
	Choice    string `json:"choice"`
}

type ProgressView struct {
	Ready           bool          `json:"ready"`
	ShowScores      bool          `json:"showScores"`
	CurrentQuestion int           `json:"currentQuestion"`
	Stage           session.Stage `json:"stage"`
}

type ResultsView struct {
	SessionID     string                    `json:"id"`
	Question      int                       `json:"question"`
	Text          string                    `json:"text,omitempty"`
	CorrectChoice string                    `json:"correct,omitempty"`
	Answers       map[string]session.Answer `json:"results"`
	ResultLimit   int                       `json:"resultTimeLimit"`
}

type EndView struct {
	SessionID string         `json:"id"`
	Players   map[string]int `json:"players"`
	Final     bool           `json:"final"`
	Evicted   bool           `json:"evicted"`
	Archived  bool           `json:"archived"`
}
