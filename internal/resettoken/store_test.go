package resettoken

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndConsume(t *testing.T) {
	store := New(time.Hour)

	token, expiresAt := store.Issue("alice@example.com")
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.Equal(t, 1, store.Len())

	email, err := store.Consume(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
	assert.Equal(t, 0, store.Len())
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := New(time.Hour)
	token, _ := store.Issue("alice@example.com")

	_, err := store.Consume(token)
	require.NoError(t, err)

	_, err = store.Consume(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestConsumeUnknownToken(t *testing.T) {
	store := New(time.Hour)

	_, err := store.Consume("no-such-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestConsumeExpiredTokenDeletesEntry(t *testing.T) {
	store := New(time.Hour)
	token, _ := store.Issue("alice@example.com")

	// Move the clock past the expiration instant.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := store.Consume(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, 0, store.Len())

	_, err = store.Consume(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestConcurrentConsumeSucceedsAtMostOnce(t *testing.T) {
	store := New(time.Hour)
	token, _ := store.Issue("alice@example.com")

	const workers = 32
	var wg sync.WaitGroup
	successes := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if email, err := store.Consume(token); err == nil {
				successes <- email
			}
		}()
	}
	wg.Wait()
	close(successes)

	var won []string
	for email := range successes {
		won = append(won, email)
	}
	require.Len(t, won, 1)
	assert.Equal(t, "alice@example.com", won[0])
}

func TestIssueDistinctEmailsDoNotInterfere(t *testing.T) {
	store := New(time.Hour)

	tokenA, _ := store.Issue("a@example.com")
	tokenB, _ := store.Issue("b@example.com")
	require.NotEqual(t, tokenA, tokenB)

	emailB, err := store.Consume(tokenB)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", emailB)

	emailA, err := store.Consume(tokenA)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", emailA)
}
