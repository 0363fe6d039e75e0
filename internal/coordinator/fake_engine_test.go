package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"sync"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/database"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

var testNames = Names{
	GameWorkflow:   "TriviaGameWorkflow",
	PlayerWorkflow: "AddPlayerWorkflow",
	StartSignal:    "start-game-signal",
	AnswerSignal:   "answer-signal",
	ProgressQuery:  "getProgress",
	PlayersQuery:   "getPlayers",
	QuestionsQuery: "getQuestions",
	DetailsQuery:   "getDetails",
}

type fakeGame struct {
	input     GameInput
	players   []string
	scores    map[string]int
	progress  *session.Progress
	questions map[string]session.Question
	answers   map[int]map[string]string
	status    gateway.Status
}

// fakeEngine plays a tiny trivia game in memory. Every player must answer
// before the game moves to the next question; the last question ends on the
// score screen.
type fakeEngine struct {
	mu    sync.Mutex
	games map[string]*fakeGame
	calls map[string]int

	// reject maps player names to the moderation message returned for them.
	reject map[string]string
	// holdProgress keeps progress empty even after the start signal.
	holdProgress bool
	// holdQuestions keeps the question bank empty.
	holdQuestions bool
	// failQuery makes the named query fail with the given error.
	failQuery map[string]error
	listErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		games:     make(map[string]*fakeGame),
		calls:     make(map[string]int),
		reject:    make(map[string]string),
		failQuery: make(map[string]error),
	}
}

func (f *fakeEngine) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeEngine) set(fn func(f *fakeEngine)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeEngine) game(id string) *fakeGame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.games[id]
}

func (f *fakeEngine) players(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.games[id].players)
}

// seed registers a running game that no coordinator has cached.
func (f *fakeEngine) seed(id string, input GameInput, players ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := newFakeGame(input)
	for _, p := range players {
		g.players = append(g.players, p)
		g.scores[p] = 0
	}
	f.games[id] = g
}

func (f *fakeEngine) terminate(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.games[id]; ok {
		g.status = gateway.StatusTerminated
	}
}

func newFakeGame(input GameInput) *fakeGame {
	return &fakeGame{
		input:   input,
		scores:  make(map[string]int),
		answers: make(map[int]map[string]string),
		status:  gateway.StatusRunning,
	}
}

func fakeBank(n int) map[string]session.Question {
	bank := make(map[string]session.Question, n)
	for i := range n {
		bank[strconv.Itoa(i)] = session.Question{
			Text:    fmt.Sprintf("Question %d?", i),
			Choices: []string{"A", "B", "C", "D"},
			Answer:  "A",
		}
	}
	return bank
}

func (f *fakeEngine) Start(_ context.Context, workflowType, id string, input any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["start:"+workflowType]++
	if g, ok := f.games[id]; ok && g.status.Live() {
		return fmt.Errorf("start %s: %w", id, gateway.ErrAlreadyStarted)
	}
	f.games[id] = newFakeGame(input.(GameInput))
	return nil
}

func (f *fakeEngine) ExecuteAndAwait(_ context.Context, workflowType, id string, input any, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["execute:"+workflowType]++
	in := input.(PlayerInput)
	if id != in.GameWorkflowId+"-player-"+in.Player {
		return fmt.Errorf("unexpected player workflow id %q", id)
	}
	if msg, ok := f.reject[in.Player]; ok {
		return &gateway.RejectedError{Message: msg, Type: "ModerationError"}
	}
	g, ok := f.games[in.GameWorkflowId]
	if !ok || !g.status.Live() {
		return fmt.Errorf("game %s: %w", in.GameWorkflowId, gateway.ErrNotFound)
	}
	if !slices.Contains(g.players, in.Player) {
		g.players = append(g.players, in.Player)
		g.scores[in.Player] = 0
	}
	return nil
}

func (f *fakeEngine) Signal(_ context.Context, id, name string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["signal:"+name]++
	g, ok := f.games[id]
	if !ok || !g.status.Live() {
		return fmt.Errorf("signal %s: %w", id, gateway.ErrNotFound)
	}
	switch p := payload.(type) {
	case StartSignal:
		g.questions = fakeBank(g.input.NumberOfQuestions)
		g.progress = &session.Progress{NumberOfQuestions: g.input.NumberOfQuestions, Stage: session.StageAnswers}
	case AnswerSignal:
		if g.progress == nil || p.Question != g.progress.CurrentQuestion {
			return nil
		}
		if g.answers[p.Question] == nil {
			g.answers[p.Question] = make(map[string]string)
		}
		g.answers[p.Question][p.Player] = p.Answer
		if len(g.answers[p.Question]) < len(g.players) {
			return nil
		}
		for player, answer := range g.answers[p.Question] {
			if answer == g.questions[strconv.Itoa(p.Question)].Answer {
				g.scores[player]++
			}
		}
		if p.Question == g.progress.NumberOfQuestions-1 {
			g.progress.Stage = session.StageScores
		} else {
			g.progress.CurrentQuestion++
			g.progress.Stage = session.StageAnswers
		}
	}
	return nil
}

func (f *fakeEngine) Query(_ context.Context, id, name string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["query:"+name]++
	if err, ok := f.failQuery[name]; ok {
		return err
	}
	g, ok := f.games[id]
	if !ok {
		return fmt.Errorf("query %s: %w", id, gateway.ErrNotFound)
	}

	var value any
	switch name {
	case testNames.ProgressQuery:
		if g.progress == nil || f.holdProgress {
			return gateway.ErrNotReady
		}
		value = g.progress
	case testNames.PlayersQuery:
		if len(g.players) == 0 {
			return gateway.ErrNotReady
		}
		scores := make(map[string]map[string]int, len(g.scores))
		for p, s := range g.scores {
			scores[p] = map[string]int{"score": s}
		}
		value = scores
	case testNames.QuestionsQuery:
		if g.questions == nil || f.holdQuestions {
			return gateway.ErrNotReady
		}
		value = g.questions
	case testNames.DetailsQuery:
		value = g.input
	default:
		return fmt.Errorf("unknown query %s", name)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeEngine) Describe(_ context.Context, id string) (gateway.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return gateway.StatusUnknown, gateway.ErrNotFound
	}
	return g.status, nil
}

func (f *fakeEngine) List(_ context.Context, filter gateway.ListFilter) iter.Seq2[gateway.Execution, error] {
	return func(yield func(gateway.Execution, error) bool) {
		f.mu.Lock()
		if f.listErr != nil {
			err := f.listErr
			f.mu.Unlock()
			yield(gateway.Execution{}, err)
			return
		}
		var out []gateway.Execution
		for id, g := range f.games {
			if filter.RunningOnly && !g.status.Live() {
				continue
			}
			out = append(out, gateway.Execution{ID: id, Type: filter.WorkflowType, Status: g.status})
		}
		f.mu.Unlock()
		for _, e := range out {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (f *fakeEngine) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["cancel"]++
	g, ok := f.games[id]
	if !ok {
		return gateway.ErrNotFound
	}
	g.status = gateway.StatusCanceled
	return nil
}

func (f *fakeEngine) Close() {}

type memoryArchive struct {
	mu      sync.Mutex
	records map[string]*database.GameRecord
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{records: make(map[string]*database.GameRecord)}
}

func (a *memoryArchive) SaveGame(_ context.Context, record *database.GameRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[record.GameID] = record
	return nil
}

func (a *memoryArchive) GetGame(_ context.Context, id string) (*database.GameRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	record, ok := a.records[id]
	if !ok {
		return nil, database.ErrGameNotFound
	}
	return record, nil
}
