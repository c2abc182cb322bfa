// Package phase decides whether the project is expanding or converging based
// on aggregate token usage, with hysteresis between the two thresholds.
package phase

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kiln-ai/kiln/internal/logging"
)

// Phase is a project state.
type Phase string

const (
	Expansion   Phase = "EXPANSION"
	Convergence Phase = "CONVERGENCE"
)

// Config holds the thresholds driving transitions.
type Config struct {
	// ModelTokenLimit is the context budget the ratios apply to.
	ModelTokenLimit int
	// ConvergenceRatio: above limit*ratio, switch to CONVERGENCE.
	ConvergenceRatio float64
	// ExpansionRatio: below limit*ratio, switch back to EXPANSION. Must be
	// strictly below ConvergenceRatio.
	ExpansionRatio float64
}

// DefaultConfig mirrors the configured defaults.
func DefaultConfig() Config {
	return Config{
		ModelTokenLimit:  128000,
		ConvergenceRatio: 0.60,
		ExpansionRatio:   0.50,
	}
}

// ConvergenceTokens is the absolute upper transition bound.
func (c Config) ConvergenceTokens() int {
	return int(float64(c.ModelTokenLimit) * c.ConvergenceRatio)
}

// ExpansionTokens is the absolute lower transition bound.
func (c Config) ExpansionTokens() int {
	return int(float64(c.ModelTokenLimit) * c.ExpansionRatio)
}

// Status is a snapshot for the map maintainer.
type Status struct {
	Phase          Phase
	TotalTokens    int
	UsagePercent   float64
	HeadroomTokens int
	StatusIcon     string
	StatusMessage  string
	LastTransition time.Time
}

// Controller owns the phase state machine. Evaluate is the sole mutator.
type Controller struct {
	cfg    Config
	logger *logging.Logger

	mu             sync.Mutex
	current        Phase
	totalTokens    int
	lastTransition time.Time
}

// New creates a controller in EXPANSION.
func New(cfg Config, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		cfg:            cfg,
		logger:         logger,
		current:        Expansion,
		lastTransition: time.Now(),
	}
}

// Evaluate records a token observation and returns the resulting phase with
// an explanation. Transitions only happen at boundary crossings; between the
// two bounds the current phase is retained.
func (c *Controller) Evaluate(totalTokens int) (Phase, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalTokens = totalTokens
	old := c.current
	usagePercent := c.usagePercent()

	var next Phase
	var message string
	switch {
	case totalTokens > c.cfg.ConvergenceTokens():
		next = Convergence
		message = fmt.Sprintf("Convergence needed - Token usage at %.1f%%", usagePercent)
	case totalTokens < c.cfg.ExpansionTokens():
		next = Expansion
		message = fmt.Sprintf("Expansion phase - Token usage at %.1f%%", usagePercent)
	default:
		next = c.current
		message = fmt.Sprintf("Maintaining current phase - Token usage at %.1f%%", usagePercent)
	}

	if next != old {
		c.current = next
		c.lastTransition = time.Now()
		c.logger.Info("phase transition",
			"from", old,
			"to", next,
			"reason", message,
			"total_tokens", totalTokens,
		)
	}

	return c.current, message
}

// ForcePhase bypasses the thresholds. Debugging aid only.
func (c *Controller) ForcePhase(p Phase) error {
	switch Phase(strings.ToUpper(string(p))) {
	case Expansion, Convergence:
	default:
		return fmt.Errorf("invalid phase: %s", p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	forced := Phase(strings.ToUpper(string(p)))
	if forced != c.current {
		c.current = forced
		c.lastTransition = time.Now()
	}
	c.logger.Warn("phase manually set", "phase", forced)
	return nil
}

// Current returns the phase without recording an observation.
func (c *Controller) Current() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Status returns a snapshot of the phase state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	usagePercent := c.usagePercent()

	var icon, message string
	switch {
	case usagePercent < 55:
		icon, message = "✓", "Below convergence threshold"
	case usagePercent < 60:
		icon, message = "⚠️", "Approaching convergence threshold"
	default:
		icon, message = "🔴", "Convergence needed"
	}

	// Headroom runs to the bound whose crossing would change phase.
	var headroom int
	if c.current == Expansion {
		headroom = c.cfg.ConvergenceTokens() - c.totalTokens
	} else {
		headroom = c.cfg.ExpansionTokens() - c.totalTokens
	}

	return Status{
		Phase:          c.current,
		TotalTokens:    c.totalTokens,
		UsagePercent:   usagePercent,
		HeadroomTokens: headroom,
		StatusIcon:     icon,
		StatusMessage:  message,
		LastTransition: c.lastTransition,
	}
}

// Config returns the controller's thresholds.
func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) usagePercent() float64 {
	if c.cfg.ModelTokenLimit == 0 {
		return 0
	}
	return float64(c.totalTokens) / float64(c.cfg.ModelTokenLimit) * 100
}
