package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	workflowpb "go.temporal.io/api/workflow/v1"
	workflowservice "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
)

type TemporalOptions struct {
	HostPort       string
	Namespace      string
	TaskQueue      string
	RPCTimeout     time.Duration
	ExecuteTimeout time.Duration
}

// Temporal implements Gateway with the Temporal Go SDK.
type Temporal struct {
	client         client.Client
	namespace      string
	taskQueue      string
	rpcTimeout     time.Duration
	executeTimeout time.Duration
}

// DialTemporal connects to the Temporal frontend. The SDK logs through slog.
func DialTemporal(opts TemporalOptions) (*Temporal, error) {
	c, err := client.Dial(client.Options{
		HostPort:  opts.HostPort,
		Namespace: opts.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default().With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", opts.HostPort, translate(err))
	}
	logger.InfoF("Connected to engine at %s (namespace %s)", opts.HostPort, opts.Namespace)
	return NewTemporal(c, opts), nil
}

func NewTemporal(c client.Client, opts TemporalOptions) *Temporal {
	t := &Temporal{
		client:         c,
		namespace:      opts.Namespace,
		taskQueue:      opts.TaskQueue,
		rpcTimeout:     opts.RPCTimeout,
		executeTimeout: opts.ExecuteTimeout,
	}
	if t.rpcTimeout <= 0 {
		t.rpcTimeout = 5 * time.Second
	}
	if t.executeTimeout <= 0 {
		t.executeTimeout = 30 * time.Second
	}
	return t
}

func (t *Temporal) Start(ctx context.Context, workflowType, id string, input any) error {
	ctx, cancel := context.WithTimeout(ctx, t.rpcTimeout)
	defer cancel()
	_, err := t.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: t.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflowType, input)
	if err != nil {
		return fmt.Errorf("start %s %s: %w", workflowType, id, translate(err))
	}
	logger.DebugF("Started %s %s", workflowType, id)
	return nil
}

func (t *Temporal) ExecuteAndAwait(ctx context.Context, workflowType, id string, input any, result any) error {
	ctx, cancel := context.WithTimeout(ctx, t.executeTimeout)
	defer cancel()
	run, err := t.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: t.taskQueue,
	}, workflowType, input)
	if err != nil {
		return fmt.Errorf("execute %s %s: %w", workflowType, id, translate(err))
	}
	if err := run.Get(ctx, result); err != nil {
		return fmt.Errorf("await %s %s: %w", workflowType, id, translate(err))
	}
	return nil
}

func (t *Temporal) Signal(ctx context.Context, id, name string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, t.rpcTimeout)
	defer cancel()
	if err := t.client.SignalWorkflow(ctx, id, "", name, payload); err != nil {
		return fmt.Errorf("signal %s to %s: %w", name, id, translate(err))
	}
	return nil
}

func (t *Temporal) Query(ctx context.Context, id, name string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.rpcTimeout)
	defer cancel()
	value, err := t.client.QueryWorkflow(ctx, id, "", name)
	if err != nil {
		return fmt.Errorf("query %s on %s: %w", name, id, translate(err))
	}
	if value == nil || !value.HasValue() {
		return fmt.Errorf("query %s on %s: %w", name, id, ErrNotReady)
	}
	var raw json.RawMessage
	if err := value.Get(&raw); err != nil {
		return fmt.Errorf("decode query %s on %s: %w", name, id, err)
	}
	if isEmptyJSON(raw) {
		return fmt.Errorf("query %s on %s: %w", name, id, ErrNotReady)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode query %s on %s: %w", name, id, err)
	}
	return nil
}

func (t *Temporal) Describe(ctx context.Context, id string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, t.rpcTimeout)
	defer cancel()
	resp, err := t.client.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		return StatusUnknown, fmt.Errorf("describe %s: %w", id, translate(err))
	}
	return statusFrom(resp.GetWorkflowExecutionInfo().GetStatus()), nil
}

func (t *Temporal) List(ctx context.Context, filter ListFilter) iter.Seq2[Execution, error] {
	return func(yield func(Execution, error) bool) {
		var token []byte
		for {
			callCtx, cancel := context.WithTimeout(ctx, t.rpcTimeout)
			resp, err := t.client.ListWorkflow(callCtx, &workflowservice.ListWorkflowExecutionsRequest{
				Namespace:     t.namespace,
				PageSize:      filter.PageSize,
				NextPageToken: token,
				Query:         filter.visibilityQuery(),
			})
			cancel()
			if err != nil {
				yield(Execution{}, fmt.Errorf("list workflows: %w", translate(err)))
				return
			}
			for _, info := range resp.GetExecutions() {
				if !yield(executionFrom(info), nil) {
					return
				}
			}
			token = resp.GetNextPageToken()
			if len(token) == 0 {
				return
			}
		}
	}
}

func (t *Temporal) Cancel(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, t.rpcTimeout)
	defer cancel()
	if err := t.client.CancelWorkflow(ctx, id, ""); err != nil {
		return fmt.Errorf("cancel %s: %w", id, translate(err))
	}
	return nil
}

func (t *Temporal) Close() {
	t.client.Close()
}

// Invoke closes the client; it lets the gateway register as a shutdown step.
func (t *Temporal) Invoke(_ context.Context) error {
	logger.Info("Closing engine connection")
	t.Close()
	return nil
}

func (f ListFilter) visibilityQuery() string {
	q := ""
	if f.WorkflowType != "" {
		q = fmt.Sprintf("WorkflowType = '%s'", f.WorkflowType)
	}
	if f.RunningOnly {
		if q != "" {
			q += " AND "
		}
		q += "ExecutionStatus = 'Running'"
	}
	return q
}

func executionFrom(info *workflowpb.WorkflowExecutionInfo) Execution {
	return Execution{
		ID:     info.GetExecution().GetWorkflowId(),
		RunID:  info.GetExecution().GetRunId(),
		Type:   info.GetType().GetName(),
		Status: statusFrom(info.GetStatus()),
	}
}

func statusFrom(s enumspb.WorkflowExecutionStatus) Status {
	switch s {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return StatusRunning
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return StatusCompleted
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED:
		return StatusFailed
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return StatusCanceled
	case enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return StatusTimedOut
	case enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return StatusTerminated
	case enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return StatusContinuedAsNew
	default:
		return StatusUnknown
	}
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}

// translate maps SDK and service errors onto the gateway error values.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var (
		appErr      *temporal.ApplicationError
		notFound    *serviceerror.NotFound
		started     *serviceerror.WorkflowExecutionAlreadyStarted
		queryFailed *serviceerror.QueryFailed
		unavailable *serviceerror.Unavailable
		deadline    *serviceerror.DeadlineExceeded
		exhausted   *serviceerror.ResourceExhausted
	)
	switch {
	case errors.As(err, &appErr):
		return &RejectedError{Message: appErr.Message(), Type: appErr.Type(), cause: err}
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
	case errors.As(err, &started):
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, err.Error())
	case errors.As(err, &queryFailed):
		return fmt.Errorf("%w: %s", ErrNotReady, err.Error())
	case errors.As(err, &unavailable), errors.As(err, &deadline), errors.As(err, &exhausted):
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return err
}
