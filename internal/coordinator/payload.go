package coordinator

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

// GameInput starts a game workflow and is echoed back by the details query.
type GameInput struct {
	Category          string
	NumberOfPlayers   int
	NumberOfQuestions int
	AnswerTimeLimit   int
	StartTimeLimit    int
	ResultTimeLimit   int
}

func gameInput(p session.Params) GameInput {
	return GameInput{
		Category:          p.Category,
		NumberOfPlayers:   p.ExpectedPlayers,
		NumberOfQuestions: p.ExpectedQuestions,
		AnswerTimeLimit:   p.AnswerTimeLimit,
		StartTimeLimit:    p.StartTimeLimit,
		ResultTimeLimit:   p.ResultTimeLimit,
	}
}

func (in GameInput) params() session.Params {
	return session.Params{
		Category:          in.Category,
		ExpectedPlayers:   in.NumberOfPlayers,
		ExpectedQuestions: in.NumberOfQuestions,
		AnswerTimeLimit:   in.AnswerTimeLimit,
		StartTimeLimit:    in.StartTimeLimit,
		ResultTimeLimit:   in.ResultTimeLimit,
	}
}

// PlayerInput registers one player with a running game.
type PlayerInput struct {
	GameWorkflowId string
	Player         string
}

type StartSignal struct {
	Action string `json:"action"`
}

type AnswerSignal struct {
	Action   string `json:"action"`
	Player   string `json:"player"`
	Question int    `json:"question"`
	Answer   string `json:"answer"`
}

// roster is the decoded player query. The engine may answer with a list of
// names, a name to score map, or a name to {"score": n} map.
type roster struct {
	names  []string
	scores map[string]int
}

func (r *roster) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		r.names = list
		r.scores = make(map[string]int, len(list))
		for _, name := range list {
			r.scores[name] = 0
		}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode player list: %w", err)
	}
	r.scores = make(map[string]int, len(raw))
	for name, value := range raw {
		var score int
		if err := json.Unmarshal(value, &score); err != nil {
			var entry struct {
				Score int `json:"score"`
			}
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("decode score of %s: %w", name, err)
			}
			score = entry.Score
		}
		r.scores[name] = score
	}
	r.names = make([]string, 0, len(raw))
	for name := range raw {
		r.names = append(r.names, name)
	}
	slices.Sort(r.names)
	return nil
}
