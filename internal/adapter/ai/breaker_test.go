package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

type scriptedProvider struct {
	err   error
	calls int
}

func (s *scriptedProvider) ProviderName() string { return "scripted" }

func (s *scriptedProvider) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func (s *scriptedProvider) Stream(ctx context.Context, req domain.CompletionRequest) (<-chan string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan string, 1)
	ch <- "chunk"
	close(ch)
	return ch, nil
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &scriptedProvider{err: errors.New("upstream 500")}
	b := WithBreaker(next, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute, Interval: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Complete(t.Context(), domain.CompletionRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.cb.State().String())

	_, err := b.Complete(t.Context(), domain.CompletionRequest{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls, "open circuit must not reach the provider")
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	next := &scriptedProvider{err: context.Canceled}
	b := WithBreaker(next, BreakerConfig{MaxFailures: 1, OpenTimeout: time.Minute, Interval: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = b.Complete(t.Context(), domain.CompletionRequest{})
	}
	assert.Equal(t, "closed", b.cb.State().String())
	assert.Equal(t, 3, next.calls)
}

func TestBreaker_PassesThrough(t *testing.T) {
	b := WithBreaker(&scriptedProvider{}, DefaultBreakerConfig)
	assert.Equal(t, "scripted", b.ProviderName())

	out, err := b.Complete(t.Context(), domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ch, err := b.Stream(t.Context(), domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "chunk", <-ch)
}
