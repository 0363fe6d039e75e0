package session

import (
	"slices"
	"strconv"
	"sync"
	"time"
)

// Question is one entry of the engine's question bank. Answer is the correct
// choice and is kept for display.
type Question struct {
	Text    string   `json:"question" bson:"question"`
	Choices []string `json:"choices" bson:"choices"`
	Answer  string   `json:"answer" bson:"answer"`
}

// Progress is the engine's view of where the game is.
type Progress struct {
	NumberOfQuestions int   `json:"numberOfQuestions"`
	CurrentQuestion   int   `json:"currentQuestion"`
	Stage             Stage `json:"stage"`
}

// Final reports whether p is the score screen after the last question.
func (p Progress) Final() bool {
	return p.Stage == StageScores && p.NumberOfQuestions > 0 && p.CurrentQuestion >= p.NumberOfQuestions-1
}

// Params are fixed when the session is created.
type Params struct {
	Category          string
	ExpectedPlayers   int
	ExpectedQuestions int
	AnswerTimeLimit   int
	StartTimeLimit    int
	ResultTimeLimit   int
}

// Session is the local cache of one game. Params, ID and CreatedAt never
// change; everything else is guarded by mu.
type Session struct {
	ID        string
	Params    Params
	CreatedAt time.Time
	ledger    *AnswerLedger

	mu             sync.Mutex
	players        []string
	holds          map[string]int
	started        bool
	startSignalled bool
	progress       Progress
	hasProgress    bool
	questions      map[string]Question
	ended          bool
	joinURL        string
}

func New(id string, params Params, now time.Time) *Session {
	return &Session{
		ID:        id,
		Params:    params,
		CreatedAt: now,
		ledger:    NewAnswerLedger(),
		progress:  Progress{NumberOfQuestions: params.ExpectedQuestions},
	}
}

func (s *Session) Ledger() *AnswerLedger {
	return s.ledger
}

// SetPlayers merges names reported by the engine into the ordered player set,
// never growing it past the expected player count. Seats held by HoldSeat are
// only given to their holder. It returns true only on the call that fills the
// quota.
func (s *Session) SetPlayers(names []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if len(s.players) >= s.Params.ExpectedPlayers {
			break
		}
		if name == "" || slices.Contains(s.players, name) {
			continue
		}
		if s.holds[name] == 0 && len(s.players)+s.heldLocked() >= s.Params.ExpectedPlayers {
			continue
		}
		s.players = append(s.players, name)
	}
	if !s.started && len(s.players) >= s.Params.ExpectedPlayers {
		s.started = true
		return true
	}
	return false
}

func (s *Session) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.players)
}

func (s *Session) HasPlayer(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.players, name)
}

func (s *Session) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players) >= s.Params.ExpectedPlayers
}

// HoldSeat keeps a seat for name while the engine adds it. A seated name
// needs no seat and holds under the same name share one. It returns false
// when every free seat is already held. release must be called once the
// join is settled.
func (s *Session) HoldSeat(name string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.players, name) {
		return func() {}, true
	}
	if s.holds[name] == 0 && len(s.players)+s.heldLocked() >= s.Params.ExpectedPlayers {
		return nil, false
	}
	if s.holds == nil {
		s.holds = make(map[string]int)
	}
	s.holds[name]++
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.holds[name]--; s.holds[name] <= 0 {
				delete(s.holds, name)
			}
		})
	}, true
}

// heldLocked counts held seats whose name is not seated yet.
func (s *Session) heldLocked() int {
	n := 0
	for name := range s.holds {
		if !slices.Contains(s.players, name) {
			n++
		}
	}
	return n
}

func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) StartSignalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startSignalled
}

// MarkStartSignalled records that the engine accepted the start signal and
// reported its question count. Returns false if it was already recorded.
func (s *Session) MarkStartSignalled(numberOfQuestions int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startSignalled {
		return false
	}
	s.startSignalled = true
	s.started = true
	if numberOfQuestions > 0 {
		s.progress.NumberOfQuestions = numberOfQuestions
	}
	return true
}

// Observe folds a freshly queried progress into the cache. The cached
// (question, stage) pair only moves forward, and the final score screen is
// terminal. It returns the cached progress after the merge.
func (s *Session) Observe(p Progress) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.NumberOfQuestions > 0 && !s.progress.Final() {
		s.progress.NumberOfQuestions = p.NumberOfQuestions
	}
	switch {
	case !s.hasProgress:
		s.progress.CurrentQuestion = p.CurrentQuestion
		s.progress.Stage = p.Stage
	case s.progress.Final():
	case p.CurrentQuestion > s.progress.CurrentQuestion:
		s.progress.CurrentQuestion = p.CurrentQuestion
		s.progress.Stage = p.Stage
	case p.CurrentQuestion == s.progress.CurrentQuestion && p.Stage > s.progress.Stage:
		s.progress.Stage = p.Stage
	}
	s.hasProgress = true
	return s.progress
}

func (s *Session) Progress() (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress, s.hasProgress
}

// SetQuestions caches the question bank the first time it is called with a
// non-empty bank. It returns true when the bank was stored.
func (s *Session) SetQuestions(bank map[string]Question) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions != nil || len(bank) == 0 {
		return false
	}
	s.questions = make(map[string]Question, len(bank))
	for k, q := range bank {
		q.Choices = slices.Clone(q.Choices)
		s.questions[k] = q
	}
	return true
}

func (s *Session) Questions() (map[string]Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions == nil {
		return nil, false
	}
	out := make(map[string]Question, len(s.questions))
	for k, q := range s.questions {
		q.Choices = slices.Clone(q.Choices)
		out[k] = q
	}
	return out, true
}

// Question resolves index against the cached bank.
func (s *Session) Question(index int) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) {
		return Question{}, ErrQuestionOutOfRange
	}
	q, ok := s.questions[strconv.Itoa(index)]
	if !ok {
		return Question{}, ErrQuestionOutOfRange
	}
	q.Choices = slices.Clone(q.Choices)
	return q, nil
}

func (s *Session) MarkEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

func (s *Session) SetJoinURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinURL = url
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.ended || (s.hasProgress && s.progress.Final()):
		return PhaseEnded
	case len(s.players) == 0:
		return PhaseCreated
	case !s.started:
		return PhaseAwaitingPlayers
	case !s.hasProgress:
		return PhaseStarted
	}
	switch s.progress.Stage {
	case StageAnswers:
		return PhaseAnswering
	case StageResult, StageScores:
		return PhaseRevealing
	default:
		return PhaseQuestion
	}
}

// Snapshot is a point-in-time copy of a session for rendering.
type Snapshot struct {
	ID                string    `json:"id"`
	Category          string    `json:"category"`
	Players           []string  `json:"players"`
	ExpectedPlayers   int       `json:"expectedPlayers"`
	NumberOfQuestions int       `json:"numberOfQuestions"`
	Started           bool      `json:"started"`
	StartSignalled    bool      `json:"startSignalled"`
	Phase             Phase     `json:"phase"`
	Stage             Stage     `json:"stage"`
	CurrentQuestion   int       `json:"currentQuestion"`
	AnswerTimeLimit   int       `json:"answerTimeLimit"`
	ResultTimeLimit   int       `json:"resultTimeLimit"`
	JoinURL           string    `json:"joinUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:                s.ID,
		Category:          s.Params.Category,
		Players:           slices.Clone(s.players),
		ExpectedPlayers:   s.Params.ExpectedPlayers,
		NumberOfQuestions: s.progress.NumberOfQuestions,
		Started:           s.started,
		StartSignalled:    s.startSignalled,
		Phase:             s.phaseLocked(),
		Stage:             s.progress.Stage,
		CurrentQuestion:   s.progress.CurrentQuestion,
		AnswerTimeLimit:   s.Params.AnswerTimeLimit,
		ResultTimeLimit:   s.Params.ResultTimeLimit,
		JoinURL:           s.joinURL,
		CreatedAt:         s.CreatedAt,
	}
}
