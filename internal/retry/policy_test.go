package retry

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
)

func TestPresets(t *testing.T) {
	def := DefaultPolicy()
	assert.Equal(t, 3, def.MaxRetries)
	assert.Equal(t, 5*time.Second, def.BaseDelay)
	assert.False(t, def.RetryUnexpected)

	agg := AggressivePolicy()
	assert.Equal(t, 5, agg.MaxRetries)
	assert.Equal(t, 2*time.Second, agg.BaseDelay)
	assert.True(t, agg.RetryUnexpected)

	gen := GentlePolicy()
	assert.Equal(t, 3, gen.MaxRetries)
	assert.Equal(t, 30*time.Second, gen.BaseDelay)
	assert.False(t, gen.RetryUnexpected)
}

func TestByName(t *testing.T) {
	assert.Equal(t, "aggressive", ByName("aggressive").Name)
	assert.Equal(t, "gentle", ByName("gentle").Name)
	assert.Equal(t, "default", ByName("default").Name)
	// Unknown names fall back to the default preset.
	assert.Equal(t, "default", ByName("bogus").Name)
}

func TestShouldRetryByCategory(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.ShouldRetry(models.Categorize(models.CategoryNetwork, errors.New("conn reset"))))
	assert.True(t, p.ShouldRetry(models.Categorize(models.CategoryTimeout, errors.New("deadline"))))
	assert.True(t, p.ShouldRetry(models.Categorize(models.CategoryRateLimit, errors.New("429"))))

	assert.False(t, p.ShouldRetry(models.Categorize(models.CategoryValidation, errors.New("empty doc"))))
	assert.False(t, p.ShouldRetry(models.Categorize(models.CategoryDependency, errors.New("rfp not ready"))))
	assert.False(t, p.ShouldRetry(models.Categorize(models.CategoryMalformedResponse, errors.New("bad json"))))
}

func TestShouldRetryUnexpected(t *testing.T) {
	plain := errors.New("something odd")

	assert.False(t, DefaultPolicy().ShouldRetry(plain))
	assert.False(t, GentlePolicy().ShouldRetry(plain))
	assert.True(t, AggressivePolicy().ShouldRetry(plain))
}

func TestNextDelayExponential(t *testing.T) {
	p := DefaultPolicy()
	p.Jitter = false

	assert.Equal(t, 5*time.Second, p.NextDelay(0))
	assert.Equal(t, 10*time.Second, p.NextDelay(1))
	assert.Equal(t, 20*time.Second, p.NextDelay(2))

	// Negative counts are clamped to the first retry.
	assert.Equal(t, 5*time.Second, p.NextDelay(-1))
}

func TestNextDelayJitterBounds(t *testing.T) {
	p := DefaultPolicy().WithRand(rand.New(rand.NewSource(42)))

	for retry := 0; retry < 4; retry++ {
		base := float64(p.BaseDelay) * float64(int(1)<<uint(retry))
		lower := time.Duration(base * 0.8)
		upper := time.Duration(base * 1.2)
		for i := 0; i < 100; i++ {
			d := p.NextDelay(retry)
			require.GreaterOrEqual(t, d, lower)
			require.LessOrEqual(t, d, upper)
		}
	}
}

func TestNextDelayFloor(t *testing.T) {
	p := &Policy{
		BaseDelay:      100 * time.Millisecond,
		Exponential:    true,
		BackoffFactor:  2,
		Jitter:         true,
		JitterFraction: 0.2,
	}
	p.WithRand(rand.New(rand.NewSource(1)))

	for i := 0; i < 50; i++ {
		assert.GreaterOrEqual(t, p.NextDelay(0), time.Second)
	}
}
