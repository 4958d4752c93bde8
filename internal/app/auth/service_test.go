package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/store"
)

// fakeUserStore keeps accounts in memory for service tests.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]store.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, passwordHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[username]; ok {
		return store.User{}, store.ErrDuplicateUser
	}

	f.nextID++
	u := store.User{
		ID:           f.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, u := range f.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			f.users[name] = u
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeIssuer mints predictable tokens.
type fakeIssuer struct{}

func (fakeIssuer) Issue(userID int64, username string) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, username), nil
}

func newTestService() (*Service, *fakeUserStore) {
	users := newFakeUserStore()
	return NewService(users, fakeIssuer{}), users
}

func TestRegisterIssuesTokenAndStoresHash(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "alice_01", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "alice_01", user.Username)
	assert.Equal(t, "token-1-alice_01", token)

	stored, err := users.GetUserByUsername(ctx, "alice_01")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash, "password must not be stored in clear")
}

func TestRegisterDuplicateUsernameKeepsOriginalRecord(t *testing.T) {
	svc, users := newTestService()
	ctx := context.Background()

	first, _, err := svc.Register(ctx, "alice_01", "s3cret-pass")
	require.NoError(t, err)

	_, token, err := svc.Register(ctx, "alice_01", "other-pass")
	require.ErrorIs(t, err, store.ErrDuplicateUser)
	assert.Empty(t, token)

	stored, err := users.GetUserByUsername(ctx, "alice_01")
	require.NoError(t, err)
	assert.Equal(t, first.PasswordHash, stored.PasswordHash, "second register must not alter the first record")

	// The original credentials still log in.
	_, _, err = svc.Login(ctx, "alice_01", "s3cret-pass")
	require.NoError(t, err)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService()

	_, token, err := svc.Login(context.Background(), "nobody__", "whatever1")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, token)
}

func TestLoginWrongPasswordIssuesNoToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice_01", "s3cret-pass")
	require.NoError(t, err)

	_, token, err := svc.Login(ctx, "alice_01", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredential)
	assert.Empty(t, token)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice_01", "s3cret-pass")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "alice_01", "wrong-pass", "new-pass-1")
	require.ErrorIs(t, err, ErrInvalidCredential)

	require.NoError(t, svc.ChangePassword(ctx, "alice_01", "s3cret-pass", "new-pass-1"))

	_, _, err = svc.Login(ctx, "alice_01", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, token, err := svc.Login(ctx, "alice_01", "new-pass-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
