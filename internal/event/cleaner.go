package event

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
)

type Callable interface {
	Invoke(ctx context.Context) error
}

// CallableFunc adapts a plain function to Callable.
type CallableFunc func(ctx context.Context) error

func (f CallableFunc) Invoke(ctx context.Context) error {
	return f(ctx)
}

type namedCallable struct {
	name string
	Callable
}

type Cleaner struct {
	cleaners       []namedCallable
	mu             sync.Mutex
	initOnce       sync.Once
	cleanOnce      sync.Once
	cleaning       bool
	loggerShutdown Callable
	timeout        time.Duration
	done           chan struct{}
}

var cleanerInstance = newCleaner()

func newCleaner() *Cleaner {
	return &Cleaner{timeout: 10 * time.Second, done: make(chan struct{})}
}

// NewCleaner returns the process wide cleaner.
func NewCleaner() *Cleaner {
	return cleanerInstance
}

// Add registers a shutdown step. Steps run in reverse registration order.
func (c *Cleaner) Add(name string, callable Callable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleaning {
		logger.DebugF("Cleaner is already shutting down, ignoring %s", name)
		return
	}
	c.cleaners = append(c.cleaners, namedCallable{name: name, Callable: callable})
}

// Init starts watching SIGINT/SIGTERM; loggerShutdown runs after every other step.
func (c *Cleaner) Init(loggerShutdown Callable) {
	c.initOnce.Do(func() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		c.mu.Lock()
		c.loggerShutdown = loggerShutdown
		c.mu.Unlock()

		go func() {
			<-ctx.Done()
			stop()
			logger.Info("Received interrupt signal, shutting down")
			c.Clean()
		}()
	})
}

// Clean runs all registered steps once and closes Done.
func (c *Cleaner) Clean() error {
	var result error
	c.cleanOnce.Do(func() {
		c.mu.Lock()
		c.cleaning = true
		cleanersCopy := make([]namedCallable, len(c.cleaners))
		copy(cleanersCopy, c.cleaners)
		loggerShutdown := c.loggerShutdown
		c.mu.Unlock()

		logger.DebugF("Starting cleanup of %d registered functions", len(cleanersCopy))

		var errs []error
		for i := len(cleanersCopy) - 1; i >= 0; i-- {
			step := cleanersCopy[i]
			logger.DebugF("Invoking cleaner %s", step.name)
			timeoutCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
			if err := step.Invoke(timeoutCtx); err != nil {
				logger.ErrorF("Cleaner %s failed: %v", step.name, err)
				errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			}
			cancel()
		}

		if len(errs) > 0 {
			logger.ErrorF("%d errors occurred during cleanup", len(errs))
		} else {
			logger.Debug("All cleaners executed successfully")
		}
		logger.Info("Cleanup finished, server offline")

		if loggerShutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if err := loggerShutdown.Invoke(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "LOGGER SHUTDOWN ERROR: %v\n", err)
			}
			cancel()
		}
		result = errors.Join(errs...)
		close(c.done)
	})
	return result
}

// Done is closed once Clean has finished.
func (c *Cleaner) Done() <-chan struct{} {
	return c.done
}
