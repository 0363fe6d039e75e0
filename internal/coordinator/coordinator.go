// Package coordinator turns client requests into engine calls and keeps the
// local session cache consistent with what the engine reports.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	c "github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/config"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/database"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

// Names are the engine's workflow, signal and query names.
type Names struct {
	GameWorkflow   string
	PlayerWorkflow string
	StartSignal    string
	AnswerSignal   string
	ProgressQuery  string
	PlayersQuery   string
	QuestionsQuery string
	DetailsQuery   string
}

// Limits bound and default the parameters of a new game.
type Limits struct {
	Defaults     session.Params
	MaxPlayers   int
	MaxQuestions int
}

type Config struct {
	Names      Names
	Poll       PollPolicy
	Limits     Limits
	IDDigits   int
	IDAttempts int
	SweepGrace time.Duration
	BaseURL    string
}

// ConfigFrom maps the file configuration onto the coordinator.
func ConfigFrom(cfg c.Config) Config {
	return Config{
		Names: Names{
			GameWorkflow:   cfg.Engine.GameWorkflow,
			PlayerWorkflow: cfg.Engine.PlayerWorkflow,
			StartSignal:    cfg.Engine.StartSignal,
			AnswerSignal:   cfg.Engine.AnswerSignal,
			ProgressQuery:  cfg.Engine.ProgressQuery,
			PlayersQuery:   cfg.Engine.PlayersQuery,
			QuestionsQuery: cfg.Engine.QuestionsQuery,
			DetailsQuery:   cfg.Engine.DetailsQuery,
		},
		Poll: PollPolicy{
			Timeout:         cfg.Poll.TimeoutDuration(),
			InitialInterval: cfg.Poll.InitialIntervalDuration(),
			MaxInterval:     cfg.Poll.MaxIntervalDuration(),
		},
		Limits: Limits{
			Defaults: session.Params{
				Category:          cfg.Game.Category,
				ExpectedPlayers:   cfg.Game.NumberOfPlayers,
				ExpectedQuestions: cfg.Game.NumberOfQuestions,
				AnswerTimeLimit:   cfg.Game.AnswerTimeLimit,
				StartTimeLimit:    cfg.Game.StartTimeLimit,
				ResultTimeLimit:   cfg.Game.ResultTimeLimit,
			},
			MaxPlayers:   cfg.Game.MaxPlayers,
			MaxQuestions: cfg.Game.MaxQuestions,
		},
		IDDigits:   cfg.Game.IDDigits,
		IDAttempts: cfg.Game.IDAttempts,
		SweepGrace: cfg.Sweep.GraceDuration(),
		BaseURL:    cfg.HTTP.BaseURL,
	}
}

// Archive keeps the final state of evicted games. *database.DBStore implements it.
type Archive interface {
	SaveGame(ctx context.Context, record *database.GameRecord) error
	GetGame(ctx context.Context, gameID string) (*database.GameRecord, error)
}

// Artifacts stores the per-session join link. *artifact.Store implements it.
type Artifacts interface {
	WriteJoinLink(id, url string) error
	Remove(id string) error
}

type Option func(*Coordinator)

func WithArchive(a Archive) Option {
	return func(co *Coordinator) { co.archive = a }
}

func WithArtifacts(a Artifacts) Option {
	return func(co *Coordinator) { co.artifacts = a }
}

// WithIDSource replaces the random session id generator.
func WithIDSource(next func() string) Option {
	return func(co *Coordinator) { co.nextID = next }
}

type Coordinator struct {
	gateway   gateway.Gateway
	registry  *session.Registry
	cfg       Config
	archive   Archive
	artifacts Artifacts
	nextID    func() string
	now       func() time.Time
	group     singleflight.Group
	// ended remembers evicted ids so the sweeper does not adopt a game
	// whose workflow is still winding down.
	ended   *expirable.LRU[string, time.Time]
	sweeper *Sweeper
}

func New(gw gateway.Gateway, registry *session.Registry, cfg Config, opts ...Option) *Coordinator {
	if cfg.IDDigits <= 0 {
		cfg.IDDigits = 6
	}
	if cfg.IDAttempts <= 0 {
		cfg.IDAttempts = 8
	}
	cfg.Poll = cfg.Poll.withDefaults()
	co := &Coordinator{
		gateway:  gw,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
		ended:    expirable.NewLRU[string, time.Time](1024, nil, 30*time.Minute),
	}
	co.nextID = co.randomID
	for _, opt := range opts {
		opt(co)
	}
	co.sweeper = &Sweeper{co: co}
	return co
}

func (co *Coordinator) Sweeper() *Sweeper {
	return co.sweeper
}

func (co *Coordinator) randomID() string {
	var b strings.Builder
	b.Grow(co.cfg.IDDigits)
	for range co.cfg.IDDigits {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// JoinURL is the link encoded in the session's QR artifact.
func (co *Coordinator) JoinURL(id string) string {
	return strings.TrimRight(co.cfg.BaseURL, "/") + "/" + url.PathEscape(id) + "/join"
}

func (co *Coordinator) lookup(id string) (*session.Session, error) {
	sess, err := co.registry.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return sess, nil
}

func playerWorkflowID(sessionID, player string) string {
	return fmt.Sprintf("%s-player-%s", sessionID, player)
}

func (co *Coordinator) queryProgress(ctx context.Context, id string) (session.Progress, error) {
	var p session.Progress
	if err := co.gateway.Query(ctx, id, co.cfg.Names.ProgressQuery, &p); err != nil {
		return p, err
	}
	return p, nil
}

func (co *Coordinator) queryRoster(ctx context.Context, id string) (roster, error) {
	var r roster
	if err := co.gateway.Query(ctx, id, co.cfg.Names.PlayersQuery, &r); err != nil {
		return r, err
	}
	return r, nil
}

// pollProgress waits until the engine reports progress and folds it into sess.
func (co *Coordinator) pollProgress(ctx context.Context, sess *session.Session) (session.Progress, error) {
	p, err := poll(ctx, co.cfg.Poll, "progress of "+sess.ID, func(ctx context.Context) (session.Progress, error) {
		return co.queryProgress(ctx, sess.ID)
	})
	if err != nil {
		return session.Progress{}, err
	}
	return sess.Observe(p), nil
}

// ensureQuestions waits for the question bank if it is not cached yet.
func (co *Coordinator) ensureQuestions(ctx context.Context, sess *session.Session) error {
	if _, ok := sess.Questions(); ok {
		return nil
	}
	bank, err := poll(ctx, co.cfg.Poll, "questions of "+sess.ID, func(ctx context.Context) (map[string]session.Question, error) {
		var bank map[string]session.Question
		err := co.gateway.Query(ctx, sess.ID, co.cfg.Names.QuestionsQuery, &bank)
		return bank, err
	})
	if err != nil {
		return err
	}
	if sess.SetQuestions(bank) {
		logger.DebugF("Cached %d questions for session %s", len(bank), sess.ID)
	}
	return nil
}

// refreshPlayers merges the engine's player list into sess. joined is a name
// the engine just accepted and is merged even if the list lags behind.
func (co *Coordinator) refreshPlayers(ctx context.Context, sess *session.Session, joined string) error {
	r, err := co.queryRoster(ctx, sess.ID)
	if err != nil && !gateway.Retryable(err) {
		return err
	}
	var names []string
	if joined != "" {
		names = append(names, joined)
	}
	names = append(names, r.names...)
	if sess.SetPlayers(names) {
		logger.InfoF("Session %s has all %d players", sess.ID, sess.Params.ExpectedPlayers)
	}
	return nil
}

// scores returns the engine's scores, falling back to zero for every local player.
func (co *Coordinator) scores(ctx context.Context, sess *session.Session) map[string]int {
	r, err := co.queryRoster(ctx, sess.ID)
	if err == nil && len(r.scores) > 0 {
		return r.scores
	}
	if err != nil {
		logger.DebugF("Scores of session %s unavailable: %v", sess.ID, err)
	}
	out := make(map[string]int)
	for _, name := range sess.Players() {
		out[name] = 0
	}
	return out
}

func (co *Coordinator) writeJoinLink(sess *session.Session) {
	link := co.JoinURL(sess.ID)
	sess.SetJoinURL(link)
	if co.artifacts == nil {
		return
	}
	if err := co.artifacts.WriteJoinLink(sess.ID, link); err != nil {
		logger.WarnF("Write join link of session %s: %v", sess.ID, err)
	}
}

// evict drops a session from the registry exactly once, removes its artifact
// and archives its final state. It reports whether this call evicted it.
func (co *Coordinator) evict(ctx context.Context, sess *session.Session, scores map[string]int, reason string) bool {
	// Tombstone first: a sweep must never see the id as neither cached nor ended.
	co.ended.Add(sess.ID, co.now())
	if !co.registry.Delete(sess.ID) {
		return false
	}
	sess.MarkEnded()
	if co.artifacts != nil {
		if err := co.artifacts.Remove(sess.ID); err != nil {
			logger.WarnF("Remove join link of session %s: %v", sess.ID, err)
		}
	}
	if co.archive != nil {
		record := &database.GameRecord{
			GameID:            sess.ID,
			Category:          sess.Params.Category,
			NumberOfQuestions: sess.Snapshot().NumberOfQuestions,
			Players:           scores,
			Answers:           sess.Ledger().All(),
			Reason:            reason,
			EndedAt:           co.now(),
		}
		if err := co.archive.SaveGame(context.WithoutCancel(ctx), record); err != nil {
			logger.ErrorF("Archive session %s: %v", sess.ID, err)
		}
	}
	logger.InfoF("Session %s evicted: %s", sess.ID, reason)
	return true
}

// IsNotFound reports whether err means the session is unknown locally,
// remotely or in the archive.
func IsNotFound(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound) ||
		errors.Is(err, gateway.ErrNotFound) ||
		errors.Is(err, database.ErrGameNotFound) ||
		errors.Is(err, ErrUnknownPlayer)
}
