package iam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	store := New([]byte("secret"), time.Hour)
	_, err := store.CreateUser("alice", "hunter2", []string{"operator"})
	require.NoError(t, err)

	_, err = store.CreateUser("alice", "other", nil)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	store := New([]byte("secret"), time.Hour)
	_, err := store.CreateUser("alice", "hunter2", nil)
	require.NoError(t, err)

	_, _, err = store.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateIssuesVerifiableToken(t *testing.T) {
	store := New([]byte("secret"), time.Hour)
	user, err := store.CreateUser("alice", "hunter2", []string{"operator", "admin"})
	require.NoError(t, err)

	token, authedUser, err := store.Authenticate("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authedUser.ID)

	claims, err := store.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.ElementsMatch(t, []string{"operator", "admin"}, claims.Roles)
}

func TestVerifyRejectsTokenFromDifferentSecret(t *testing.T) {
	storeA := New([]byte("secret-a"), time.Hour)
	storeB := New([]byte("secret-b"), time.Hour)
	_, err := storeA.CreateUser("alice", "hunter2", nil)
	require.NoError(t, err)

	token, _, err := storeA.Authenticate("alice", "hunter2")
	require.NoError(t, err)

	_, err = storeB.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	store := New([]byte("secret"), -time.Second)
	_, err := store.CreateUser("alice", "hunter2", nil)
	require.NoError(t, err)

	token, _, err := store.Authenticate("alice", "hunter2")
	require.NoError(t, err)

	_, err = store.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
