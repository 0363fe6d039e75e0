package session

import "strings"

// Stage is the engine-reported phase of one question cycle. The zero value
// orders before every stage the engine reports.
type Stage int

const (
	StageUnknown Stage = iota
	StageStart
	StageAnswers
	StageResult
	StageScores
)

func ParseStage(s string) Stage {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return StageStart
	case "answers":
		return StageAnswers
	case "result", "results":
		return StageResult
	case "scores":
		return StageScores
	default:
		return StageUnknown
	}
}

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageAnswers:
		return "answers"
	case StageResult:
		return "result"
	case StageScores:
		return "scores"
	default:
		return "unknown"
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	*s = ParseStage(string(text))
	return nil
}

// Phase is the coordinator-level lifecycle of a session.
type Phase string

const (
	PhaseCreated         Phase = "created"
	PhaseAwaitingPlayers Phase = "awaiting_players"
	PhaseStarted         Phase = "started"
	PhaseQuestion        Phase = "question"
	PhaseAnswering       Phase = "answering"
	PhaseRevealing       Phase = "revealing"
	PhaseEnded           Phase = "ended"
)
