package coordinator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

const listPageSize = 100

// SweepReport counts what one sweep did.
type SweepReport struct {
	Live    int
	Evicted int
	Adopted int
	Skipped int
}

// Sweeper reconciles the registry with the engine's running games. Sessions
// the engine no longer runs are evicted and running games nobody cached are
// adopted. Concurrent sweeps share one pass.
type Sweeper struct {
	co    *Coordinator
	group singleflight.Group
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	v, err, shared := s.group.Do("sweep", func() (any, error) {
		return s.sweep(ctx)
	})
	if shared {
		logger.Debug("Joined a sweep already in flight")
	}
	report, _ := v.(SweepReport)
	return report, err
}

func (s *Sweeper) sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	co := s.co

	live := make(map[string]struct{})
	filter := gateway.ListFilter{WorkflowType: co.cfg.Names.GameWorkflow, RunningOnly: true, PageSize: listPageSize}
	for exec, err := range co.gateway.List(ctx, filter) {
		if err != nil {
			// A partial listing would evict live sessions.
			return report, fmt.Errorf("list running games: %w", err)
		}
		if exec.Status != gateway.StatusUnknown && !exec.Status.Live() {
			continue
		}
		live[exec.ID] = struct{}{}
	}
	report.Live = len(live)

	now := co.now()
	for _, id := range co.registry.ListIDs() {
		if _, ok := live[id]; ok {
			continue
		}
		sess, err := co.registry.Get(id)
		if err != nil {
			continue
		}
		if now.Sub(sess.CreatedAt) < co.cfg.SweepGrace {
			report.Skipped++
			continue
		}
		if co.evict(ctx, sess, co.scores(ctx, sess), "engine no longer runs the game") {
			report.Evicted++
		}
	}

	for id := range live {
		if _, err := co.registry.Get(id); err == nil {
			continue
		}
		if co.ended.Contains(id) {
			continue
		}
		if err := s.adopt(ctx, id); err != nil {
			logger.WarnF("Adopt session %s: %v", id, err)
			report.Skipped++
			continue
		}
		report.Adopted++
	}

	if report.Evicted > 0 || report.Adopted > 0 {
		logger.InfoF("Sweep done: %d live, %d evicted, %d adopted, %d skipped",
			report.Live, report.Evicted, report.Adopted, report.Skipped)
	}
	return report, nil
}

// adopt rebuilds a session from the engine's details, roster, progress and
// question bank. Only the details are required.
func (s *Sweeper) adopt(ctx context.Context, id string) error {
	co := s.co
	var details GameInput
	if err := co.gateway.Query(ctx, id, co.cfg.Names.DetailsQuery, &details); err != nil {
		return fmt.Errorf("details: %w", err)
	}
	params := details.params()
	if params.ExpectedPlayers < 1 || params.ExpectedQuestions < 1 {
		return fmt.Errorf("details: implausible game %+v", details)
	}

	sess, err := co.registry.Create(id, params)
	if errors.Is(err, session.ErrSessionAlreadyExists) {
		return nil
	}
	if err != nil {
		return err
	}

	if r, err := co.queryRoster(ctx, id); err == nil {
		sess.SetPlayers(r.names)
	}
	if p, err := co.queryProgress(ctx, id); err == nil {
		p = sess.Observe(p)
		sess.MarkStartSignalled(p.NumberOfQuestions)
	}
	var bank map[string]session.Question
	if err := co.gateway.Query(ctx, id, co.cfg.Names.QuestionsQuery, &bank); err == nil {
		sess.SetQuestions(bank)
	}
	co.writeJoinLink(sess)
	logger.InfoF("Adopted session %s with %d players", id, len(sess.Players()))
	return nil
}
