package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

// Policy decides whether a failed job attempt is retried and how long to wait
// before the next attempt. It is a pure value object: no side effects beyond
// the injected random source used for jitter.
type Policy struct {
	Name            string
	MaxRetries      int
	BaseDelay       time.Duration
	Exponential     bool
	BackoffFactor   float64
	Jitter          bool
	JitterFraction  float64
	Retryable       map[models.ErrorCategory]bool
	RetryUnexpected bool

	mu  sync.Mutex
	rng *rand.Rand
}

// minDelay is the floor applied after jitter.
const minDelay = time.Second

// WithRand injects a deterministic random source for jitter. Returns the
// policy for chaining in tests.
func (p *Policy) WithRand(rng *rand.Rand) *Policy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng = rng
	return p
}

// ShouldRetry reports whether an error of this classification is eligible for
// retry under the policy. Uncategorized errors follow RetryUnexpected.
func (p *Policy) ShouldRetry(err error) bool {
	category := models.CategoryOf(err)
	if category == models.CategoryUnknown {
		return p.RetryUnexpected
	}
	return p.Retryable[category]
}

// NextDelay returns the wait before the attempt following retryCount prior
// retries. With exponential backoff the delay grows by BackoffFactor per
// retry; jitter perturbs it by up to ±JitterFraction. Never below one second.
func (p *Policy) NextDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := float64(p.BaseDelay)
	if p.Exponential {
		factor := p.BackoffFactor
		if factor <= 0 {
			factor = 2
		}
		delay = float64(p.BaseDelay) * math.Pow(factor, float64(retryCount))
	}
	if p.Jitter && p.JitterFraction > 0 {
		delay += (2*p.random() - 1) * p.JitterFraction * delay
	}
	if delay < float64(minDelay) {
		delay = float64(minDelay)
	}
	return time.Duration(delay)
}

func (p *Policy) random() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.rng.Float64()
}

// transientCategories are retryable under every preset.
func transientCategories() map[models.ErrorCategory]bool {
	return map[models.ErrorCategory]bool{
		models.CategoryNetwork:   true,
		models.CategoryTimeout:   true,
		models.CategoryRateLimit: true,
	}
}

// DefaultPolicy is the standard disposition: three retries, 5s base,
// exponential, jittered, unexpected errors are not retried.
func DefaultPolicy() *Policy {
	return &Policy{
		Name:            "default",
		MaxRetries:      3,
		BaseDelay:       5 * time.Second,
		Exponential:     true,
		BackoffFactor:   2,
		Jitter:          true,
		JitterFraction:  0.2,
		Retryable:       transientCategories(),
		RetryUnexpected: false,
	}
}

// AggressivePolicy retries more, sooner, and extends retry to unexpected
// errors.
func AggressivePolicy() *Policy {
	return &Policy{
		Name:            "aggressive",
		MaxRetries:      5,
		BaseDelay:       2 * time.Second,
		Exponential:     true,
		BackoffFactor:   2,
		Jitter:          true,
		JitterFraction:  0.2,
		Retryable:       transientCategories(),
		RetryUnexpected: true,
	}
}

// GentlePolicy backs off slowly and never retries unexpected errors.
func GentlePolicy() *Policy {
	return &Policy{
		Name:            "gentle",
		MaxRetries:      3,
		BaseDelay:       30 * time.Second,
		Exponential:     true,
		BackoffFactor:   2,
		Jitter:          true,
		JitterFraction:  0.2,
		Retryable:       transientCategories(),
		RetryUnexpected: false,
	}
}

// ByName resolves a preset by its configured name, falling back to the
// default policy for unknown names.
func ByName(name string) *Policy {
	switch name {
	case "aggressive":
		return AggressivePolicy()
	case "gentle":
		return GentlePolicy()
	default:
		return DefaultPolicy()
	}
}
