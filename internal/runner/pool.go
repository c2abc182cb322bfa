// Package runner maintains a steady-state pool of concurrent agent cycles
// until cancellation, selecting the next agent by phase-weighted random draw
// over the roles that are not already running.
package runner

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/logging"
	"github.com/kiln-ai/kiln/internal/phase"
	"github.com/kiln-ai/kiln/internal/team"
	"github.com/kiln-ai/kiln/internal/tokens"
)

// CycleExecutor runs one complete agent cycle. Implementations never let an
// error escape; the outcome lives in the returned record.
type CycleExecutor interface {
	Execute(ctx context.Context, agent core.RoleName) *core.CycleRecord
}

// Options configures the pool.
type Options struct {
	// Concurrency bounds the number of simultaneous cycles.
	Concurrency int
	// StaggerDelay spaces out cycle spawns at startup.
	StaggerDelay time.Duration
	// ReplaceDelay spaces out replacement spawns after completions.
	ReplaceDelay time.Duration
	// StuckThreshold cancels cycles that run longer than this.
	StuckThreshold time.Duration
	// GracePeriod bounds in-flight cycles after cancellation.
	GracePeriod time.Duration
	// RetryDelay is the wait before re-trying selection when every role is
	// busy or unavailable.
	RetryDelay time.Duration
}

// DefaultOptions mirror the configured defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency:    3,
		StaggerDelay:   10 * time.Second,
		ReplaceDelay:   3 * time.Second,
		StuckThreshold: 5 * time.Minute,
		GracePeriod:    2 * time.Minute,
		RetryDelay:     time.Second,
	}
}

// Pool owns the set of active cycles.
type Pool struct {
	opts       Options
	root       string
	team       *team.Team
	phases     *phase.Controller
	accountant *tokens.Accountant
	executor   CycleExecutor
	logger     *logging.Logger

	mu     sync.Mutex
	active map[core.RoleName]struct{}
	rng    *rand.Rand
}

// New creates a pool.
func New(opts Options, root string, tm *team.Team, phases *phase.Controller, accountant *tokens.Accountant, executor CycleExecutor, logger *logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Pool{
		opts:       opts,
		root:       root,
		team:       tm,
		phases:     phases,
		accountant: accountant,
		executor:   executor,
		logger:     logger,
		active:     make(map[core.RoleName]struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run spawns cycles up to the concurrency bound and replaces them as they
// complete, until the context is cancelled. It returns nil on a clean
// unwind.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("🚀 starting runner pool",
		"team", p.team.Name,
		"concurrency", p.opts.Concurrency,
	)

	sem := semaphore.NewWeighted(int64(p.opts.Concurrency))
	var wg sync.WaitGroup
	spawned := 0

	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // cancelled
		}

		agent, ok := p.acquireAgent()
		if !ok {
			sem.Release(1)
			if !sleepCtx(ctx, p.opts.RetryDelay) {
				break
			}
			continue
		}

		wg.Add(1)
		go func(agent core.RoleName) {
			defer wg.Done()
			defer sem.Release(1)
			defer p.releaseAgent(agent)
			p.runCycle(ctx, agent)
		}(agent)

		spawned++
		delay := p.opts.ReplaceDelay
		if spawned <= p.opts.Concurrency {
			delay = p.opts.StaggerDelay
		}
		if !sleepCtx(ctx, delay) {
			break
		}
	}

	p.logger.Info("stopping runner pool, waiting for in-flight cycles",
		"grace_period", p.opts.GracePeriod,
	)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if p.opts.GracePeriod > 0 {
		select {
		case <-done:
		case <-time.After(p.opts.GracePeriod):
			p.logger.Warn("grace period expired with cycles still in flight")
		}
	} else {
		<-done
	}

	p.logger.Success("runner pool stopped")
	return nil
}

// runCycle executes one cycle. Pool cancellation is soft: it stops new
// spawns but lets this cycle run for the grace period before the hard cut.
// The stuck-cycle detector cuts immediately at its threshold.
func (p *Pool) runCycle(ctx context.Context, agent core.RoleName) {
	cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	if p.opts.StuckThreshold > 0 {
		stuck := time.AfterFunc(p.opts.StuckThreshold, func() {
			p.logger.Warn("cycle stuck, cancelling for replacement",
				"agent", agent,
				"threshold", p.opts.StuckThreshold,
			)
			cancel()
		})
		defer stuck.Stop()
	}

	stopWatch := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(p.opts.GracePeriod)
		defer timer.Stop()
		select {
		case <-timer.C:
			cancel()
		case <-cycleCtx.Done():
		}
	})
	defer stopWatch()

	record := p.executor.Execute(cycleCtx, agent)

	switch record.Outcome {
	case core.CycleCompleted:
		p.logger.Success("✅ cycle completed",
			"agent", agent,
			"duration", record.Duration,
		)
	case core.CyclePartiallyFailed:
		p.logger.Warn("cycle partially failed",
			"agent", agent,
			"duration", record.Duration,
		)
	default:
		p.logger.Error("cycle failed",
			"agent", agent,
			"duration", record.Duration,
			"error", record.Err,
		)
	}
}

// acquireAgent selects an available agent by weighted random draw and marks
// it active. The empty return means every role is busy or lacks a prompt.
func (p *Pool) acquireAgent() (core.RoleName, bool) {
	// Refresh the phase observation so selection weights track the tree.
	if p.accountant != nil {
		if total, err := p.accountant.TotalTokens(context.Background(), p.root); err == nil {
			p.phases.Evaluate(total)
		} else {
			p.logger.Warn("token total unavailable for phase evaluation", "error", err)
		}
	}
	currentPhase := p.phases.Current()

	p.mu.Lock()
	defer p.mu.Unlock()

	var available []core.RoleName
	var weights []float64
	for _, role := range p.team.Roles() {
		if _, running := p.active[role]; running {
			continue
		}
		if !p.rolePromptExists(role) {
			continue
		}
		available = append(available, role)
		weights = append(weights, p.team.Weight(role, currentPhase))
	}
	if len(available) == 0 {
		return "", false
	}

	agent := available[p.weightedIndex(weights)]
	p.active[agent] = struct{}{}
	p.logger.Debug("selected agent", "agent", agent, "phase", currentPhase)
	return agent, true
}

func (p *Pool) releaseAgent(agent core.RoleName) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, agent)
}

// ActiveCount returns the number of running cycles.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// weightedIndex draws an index proportional to weights, uniformly when the
// weights sum to zero. Caller holds the mutex.
func (p *Pool) weightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return p.rng.Intn(len(weights))
	}

	target := p.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}

func (p *Pool) rolePromptExists(role core.RoleName) bool {
	_, err := os.Stat(filepath.Join(p.root, core.RolePromptFile(role)))
	return err == nil
}

// sleepCtx sleeps for d unless the context ends first; it reports whether
// the sleep ran to completion.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
