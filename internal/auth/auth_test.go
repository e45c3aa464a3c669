package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("s3cret")

	tok, err := v.Issue(42, "staff", time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("s3cret")

	other, err := NewVerifier("other").Issue(42, "", time.Minute)
	require.NoError(t, err)

	expired, err := v.Issue(42, "", -time.Minute)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":   "not-a-jwt",
		"wrong key": other,
		"expired":   expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}

	_, err = v.Verify("")
	assert.True(t, errors.Is(err, ErrMissingToken))
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	id, ok := ActorFromContext(WithActor(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}
