package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

// CheckReady reports whether the engine has produced the question bank. The
// first bank seen is cached and served from then on.
func (co *Coordinator) CheckReady(ctx context.Context, id string) (ReadyView, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return ReadyView{}, err
	}
	if bank, ok := sess.Questions(); ok {
		return ReadyView{Ready: true, Questions: bank}, nil
	}

	var bank map[string]session.Question
	err = co.gateway.Query(ctx, id, co.cfg.Names.QuestionsQuery, &bank)
	if errors.Is(err, gateway.ErrNotReady) {
		return ReadyView{}, nil
	}
	if err != nil {
		return ReadyView{}, fmt.Errorf("questions of %s: %w", id, err)
	}
	if sess.SetQuestions(bank) {
		logger.DebugF("Cached %d questions for session %s", len(bank), id)
	}
	cached, ok := sess.Questions()
	return ReadyView{Ready: ok, Questions: cached}, nil
}

// FetchQuestion waits for the engine's progress and returns the question it
// currently points at.
func (co *Coordinator) FetchQuestion(ctx context.Context, id string) (QuestionView, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return QuestionView{}, err
	}
	p, err := co.pollProgress(ctx, sess)
	if err != nil {
		return QuestionView{}, err
	}
	if err := co.ensureQuestions(ctx, sess); err != nil {
		return QuestionView{}, err
	}
	q, err := sess.Question(p.CurrentQuestion)
	if err != nil {
		logger.ErrorF("Session %s points at question %d outside its bank", id, p.CurrentQuestion)
		return QuestionView{}, fmt.Errorf("session %s question %d: %w", id, p.CurrentQuestion, err)
	}
	return QuestionView{
		SessionID:         id,
		Index:             p.CurrentQuestion,
		Text:              q.Text,
		Choices:           q.Choices,
		Stage:             p.Stage,
		NumberOfQuestions: p.NumberOfQuestions,
		AnswerTimeLimit:   sess.Params.AnswerTimeLimit,
	}, nil
}

// SubmitAnswer records a choice locally and forwards it to the engine. It is
// refused unless the engine still has answers open for that question.
func (co *Coordinator) SubmitAnswer(ctx context.Context, req AnswerRequest) (Ack, error) {
	sess, err := co.lookup(req.SessionID)
	if err != nil {
		return Ack{}, err
	}
	if !sess.HasPlayer(req.Player) {
		return Ack{}, fmt.Errorf("%s in session %s: %w", req.Player, req.SessionID, ErrUnknownPlayer)
	}
	choice := strings.TrimSpace(req.Choice)
	if choice == "" {
		return Ack{}, invalid("choice", "is required")
	}

	p, err := co.pollProgress(ctx, sess)
	if err != nil {
		return Ack{}, err
	}
	index := req.Question
	if index < 0 {
		index = p.CurrentQuestion
	}
	if p.CurrentQuestion != index || p.Stage != session.StageAnswers {
		return Ack{}, fmt.Errorf("question %d of %s is at %s/%d: %w", index, req.SessionID, p.Stage, p.CurrentQuestion, ErrAnswersClosed)
	}
	if err := co.ensureQuestions(ctx, sess); err != nil {
		return Ack{}, err
	}
	q, err := sess.Question(index)
	if err != nil {
		return Ack{}, fmt.Errorf("session %s question %d: %w", req.SessionID, index, err)
	}
	if len(q.Choices) > 0 && !slices.Contains(q.Choices, choice) {
		return Ack{}, invalid("choice", "is not one of the offered choices")
	}

	sess.Ledger().Record(index, req.Player, choice, q.Answer)
	signal := AnswerSignal{Action: "Answer", Player: req.Player, Question: index, Answer: choice}
	if err := co.gateway.Signal(ctx, req.SessionID, co.cfg.Names.AnswerSignal, signal); err != nil {
		return Ack{}, fmt.Errorf("signal answer of %s: %w", req.Player, err)
	}
	logger.DebugF("Player %s answered question %d of %s", req.Player, index, req.SessionID)
	return Ack{SessionID: req.SessionID, Player: req.Player, Question: index, Choice: choice}, nil
}

// CheckProgress tells a waiting client whether to move on from requested.
// It reads the engine once and falls back to the cache when the engine is
// unreachable. Decisions are taken on the monotone cached progress, so asking
// twice never moves a client backwards.
func (co *Coordinator) CheckProgress(ctx context.Context, id string, requested int) (ProgressView, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return ProgressView{}, err
	}
	if requested < 0 {
		return ProgressView{}, invalid("question", "must not be negative")
	}

	remote, err := co.queryProgress(ctx, id)
	var p session.Progress
	switch {
	case err == nil:
		p = sess.Observe(remote)
	case gateway.Retryable(err):
		cached, ok := sess.Progress()
		if !ok {
			return ProgressView{}, nil
		}
		p = cached
	default:
		return ProgressView{}, fmt.Errorf("progress of %s: %w", id, err)
	}

	view := ProgressView{CurrentQuestion: p.CurrentQuestion, Stage: p.Stage}
	switch {
	case requested == p.NumberOfQuestions-1 && p.Stage == session.StageScores:
		view.Ready = true
		view.ShowScores = true
	case requested != p.CurrentQuestion && p.Stage == session.StageAnswers:
		view.Ready = true
	}
	return view, nil
}

// Results returns every recorded answer for one question.
func (co *Coordinator) Results(_ context.Context, id string, index int) (ResultsView, error) {
	sess, err := co.lookup(id)
	if err != nil {
		return ResultsView{}, err
	}
	if index < 0 {
		return ResultsView{}, invalid("question", "must not be negative")
	}
	view := ResultsView{
		SessionID:   id,
		Question:    index,
		Answers:     sess.Ledger().Snapshot(index),
		ResultLimit: sess.Params.ResultTimeLimit,
	}
	if q, err := sess.Question(index); err == nil {
		view.Text = q.Text
		view.CorrectChoice = q.Answer
	}
	return view, nil
}
