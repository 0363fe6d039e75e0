package coordinator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

const maxNameLength = 32

var playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidatePlayerName trims name and checks it is a short ASCII alphanumeric word.
func ValidatePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", invalid("player", "name is required")
	case len(name) > maxNameLength:
		return "", invalid("player", fmt.Sprintf("name is longer than %d characters", maxNameLength))
	case !playerNamePattern.MatchString(name):
		return "", invalid("player", "name may only contain letters and digits")
	}
	return name, nil
}

func (co *Coordinator) params(req CreateRequest) (session.Params, error) {
	p := co.cfg.Limits.Defaults
	if req.Category != "" {
		p.Category = strings.TrimSpace(req.Category)
	}
	if req.NumberOfPlayers != 0 {
		p.ExpectedPlayers = req.NumberOfPlayers
	}
	if req.NumberOfQuestions != 0 {
		p.ExpectedQuestions = req.NumberOfQuestions
	}
	if req.AnswerTimeLimit != 0 {
		p.AnswerTimeLimit = req.AnswerTimeLimit
	}
	if req.StartTimeLimit != 0 {
		p.StartTimeLimit = req.StartTimeLimit
	}
	if req.ResultTimeLimit != 0 {
		p.ResultTimeLimit = req.ResultTimeLimit
	}

	maxPlayers, maxQuestions := co.cfg.Limits.MaxPlayers, co.cfg.Limits.MaxQuestions
	switch {
	case p.ExpectedPlayers < 1 || (maxPlayers > 0 && p.ExpectedPlayers > maxPlayers):
		return p, invalid("players", fmt.Sprintf("must be between 1 and %d", maxPlayers))
	case p.ExpectedQuestions < 1 || (maxQuestions > 0 && p.ExpectedQuestions > maxQuestions):
		return p, invalid("questions", fmt.Sprintf("must be between 1 and %d", maxQuestions))
	case p.AnswerTimeLimit < 1:
		return p, invalid("answer_time_limit", "must be positive")
	case p.StartTimeLimit < 1:
		return p, invalid("start_time_limit", "must be positive")
	case p.ResultTimeLimit < 1:
		return p, invalid("result_time_limit", "must be positive")
	case p.Category == "":
		return p, invalid("category", "is required")
	}
	return p, nil
}

// Create allocates a session id, starts the game workflow and joins the
// creator. If the creator cannot be added the session is rolled back.
func (co *Coordinator) Create(ctx context.Context, req CreateRequest) (session.Snapshot, error) {
	player, err := ValidatePlayerName(req.Player)
	if err != nil {
		return session.Snapshot{}, err
	}
	params, err := co.params(req)
	if err != nil {
		return session.Snapshot{}, err
	}

	sess, err := co.allocate(ctx, params)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := co.addPlayer(ctx, sess, player); err != nil {
		co.rollback(ctx, sess, err)
		return session.Snapshot{}, err
	}
	co.writeJoinLink(sess)
	logger.InfoF("Session %s created by %s (%d players, %d questions, %s)",
		sess.ID, player, params.ExpectedPlayers, params.ExpectedQuestions, params.Category)
	return sess.Snapshot(), nil
}

// allocate reserves a fresh id both locally and in the engine.
func (co *Coordinator) allocate(ctx context.Context, params session.Params) (*session.Session, error) {
	for attempt := 1; attempt <= co.cfg.IDAttempts; attempt++ {
		id := co.nextID()
		sess, err := co.registry.Create(id, params)
		if errors.Is(err, session.ErrSessionAlreadyExists) {
			logger.DebugF("Session id %s is taken locally, attempt %d", id, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		err = co.gateway.Start(ctx, co.cfg.Names.GameWorkflow, id, gameInput(params))
		if errors.Is(err, gateway.ErrAlreadyStarted) {
			co.registry.Delete(id)
			logger.DebugF("Session id %s is taken by the engine, attempt %d", id, attempt)
			continue
		}
		if err != nil {
			co.registry.Delete(id)
			return nil, fmt.Errorf("start game %s: %w", id, err)
		}
		return sess, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrIDSpaceExhausted, co.cfg.IDAttempts)
}

func (co *Coordinator) rollback(ctx context.Context, sess *session.Session, cause error) {
	co.ended.Add(sess.ID, co.now())
	co.registry.Delete(sess.ID)
	if err := co.gateway.Cancel(context.WithoutCancel(ctx), sess.ID); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		logger.WarnF("Cancel rolled back session %s: %v", sess.ID, err)
	}
	logger.WarnF("Session %s rolled back: %v", sess.ID, cause)
}

// addPlayer holds a seat for player, runs the player workflow to completion
// and refreshes the roster. A player the engine accepted but who did not get
// a local seat is reported as ErrSessionFull.
func (co *Coordinator) addPlayer(ctx context.Context, sess *session.Session, player string) error {
	release, ok := sess.HoldSeat(player)
	if !ok {
		return fmt.Errorf("%s in session %s: %w", player, sess.ID, ErrSessionFull)
	}
	defer release()

	input := PlayerInput{GameWorkflowId: sess.ID, Player: player}
	if err := co.gateway.ExecuteAndAwait(ctx, co.cfg.Names.PlayerWorkflow, playerWorkflowID(sess.ID, player), input, nil); err != nil {
		return fmt.Errorf("add %s to session %s: %w", player, sess.ID, err)
	}
	if err := co.refreshPlayers(ctx, sess, player); err != nil {
		return fmt.Errorf("refresh players of session %s: %w", sess.ID, err)
	}
	if !sess.HasPlayer(player) {
		logger.WarnF("Engine added %s to session %s but no seat was left", player, sess.ID)
		return fmt.Errorf("%s in session %s: %w", player, sess.ID, ErrSessionFull)
	}
	return nil
}

// Join adds player to an existing session. Joining again under a name that
// is already seated is allowed and does not change the roster.
func (co *Coordinator) Join(ctx context.Context, id, player string) (session.Snapshot, error) {
	name, err := ValidatePlayerName(player)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess, err := co.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := co.addPlayer(ctx, sess, name); err != nil {
		return sess.Snapshot(), err
	}
	logger.InfoF("Player %s joined session %s", name, id)
	return sess.Snapshot(), nil
}

// Start signals the engine once the roster is full and waits for the first
// progress report. Calling it again after a successful start is a no-op.
func (co *Coordinator) Start(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if sess.StartSignalled() {
		return sess.Snapshot(), nil
	}
	if !sess.Started() {
		return sess.Snapshot(), ErrAwaitingPlayers
	}

	_, err, _ = co.group.Do("start:"+id, func() (any, error) {
		if sess.StartSignalled() {
			return nil, nil
		}
		// Detached from the first caller: every caller waiting on the flight shares it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*co.cfg.Poll.Timeout)
		defer cancel()
		if err := co.gateway.Signal(ctx, id, co.cfg.Names.StartSignal, StartSignal{Action: "StartGame"}); err != nil {
			return nil, fmt.Errorf("signal start of %s: %w", id, err)
		}
		p, err := co.pollProgress(ctx, sess)
		if err != nil {
			return nil, err
		}
		if sess.MarkStartSignalled(p.NumberOfQuestions) {
			logger.InfoF("Session %s started with %d questions", id, p.NumberOfQuestions)
		}
		return nil, nil
	})
	return sess.Snapshot(), err
}

// Lobby reports the current roster. The engine's list is merged in when
// reachable, otherwise the cached roster is served.
func (co *Coordinator) Lobby(ctx context.Context, id string) (LobbyView, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return LobbyView{}, err
	}
	if err := co.refreshPlayers(ctx, sess, ""); err != nil {
		return LobbyView{}, err
	}
	snap := sess.Snapshot()
	return LobbyView{
		SessionID:       id,
		Players:         snap.Players,
		Count:           len(snap.Players),
		ExpectedPlayers: snap.ExpectedPlayers,
		Started:         snap.Started,
		Phase:           snap.Phase,
	}, nil
}

// End returns the final scores. Once the engine reports the final score
// screen, or the workflow is gone, the session is evicted and archived.
// Sessions that were already evicted are served from the archive.
func (co *Coordinator) End(ctx context.Context, id string) (EndView, error) {
	sess, err := co.lookup(id)
	if err != nil {
		if co.archive == nil {
			return EndView{}, err
		}
		record, aerr := co.archive.GetGame(ctx, id)
		if aerr != nil {
			return EndView{}, errors.Join(err, aerr)
		}
		return EndView{SessionID: id, Players: record.Players, Final: true, Evicted: true, Archived: true}, nil
	}

	scores := co.scores(ctx, sess)
	final := false
	if p, err := co.queryProgress(ctx, id); err == nil {
		final = sess.Observe(p).Final()
	} else if cached, ok := sess.Progress(); ok {
		final = cached.Final()
	}
	if !final {
		status, err := co.gateway.Describe(ctx, id)
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			final = true
		case err == nil && !status.Live() && status != gateway.StatusUnknown:
			final = true
		}
	}

	view := EndView{SessionID: id, Players: scores, Final: final}
	if final {
		view.Evicted = co.evict(ctx, sess, scores, "game ended")
		view.Archived = view.Evicted && co.archive != nil
	}
	return view, nil
}

// List sweeps the registry against the engine and returns every live session.
// A failed sweep is logged and the cached sessions are served as they are.
func (co *Coordinator) List(ctx context.Context) []session.Snapshot {
	if _, err := co.sweeper.Sweep(ctx); err != nil {
		logger.WarnF("Sweep failed: %v", err)
	}
	ids := co.registry.ListIDs()
	out := make([]session.Snapshot, 0, len(ids))
	for _, id := range ids {
		sess, err := co.registry.Get(id)
		if err != nil {
			continue
		}
		out = append(out, sess.Snapshot())
	}
	return out
}

// Snapshot returns the cached view of one session.
func (co *Coordinator) Snapshot(id string) (session.Snapshot, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Defaults returns the parameters a CreateRequest falls back to.
func (co *Coordinator) Defaults() session.Params {
	return co.cfg.Limits.Defaults
}
