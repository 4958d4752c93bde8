package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/auth"
	"relaychat/internal/app/relay"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/resp"
)

// memUserStore is an in-memory store.UserStore for handler tests.
type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]store.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]store.User)}
}

func (m *memUserStore) CreateUser(_ context.Context, username, passwordHash string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; ok {
		return store.User{}, store.ErrDuplicateUser
	}

	m.nextID++
	u := store.User{ID: m.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users[username] = u
	return u, nil
}

func (m *memUserStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			m.users[name] = u
			return nil
		}
	}
	return store.ErrNotFound
}

// memMessageStore is an in-memory store.MessageStore for handler tests.
type memMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []store.Message
}

func (m *memMessageStore) Append(_ context.Context, conversationID, senderID int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.messages = append(m.messages, store.Message{
		ID:             m.nextID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
	})
	return nil
}

func (m *memMessageStore) History(_ context.Context, conversationID int64) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]store.Message, 0)
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func newTestDeps() (*AppDeps, *memMessageStore) {
	cfg := &configs.AppConfig{
		Environment: "development",
		Port:        8080,
		JWTSecret:   "handler-test-secret",
	}

	messages := &memMessageStore{}

	return &AppDeps{
		Config:   cfg,
		Hub:      relay.NewHub(relay.DefaultHubCapacity),
		Auth:     auth.NewService(newMemUserStore(), auth.NewJWTIssuer(cfg.JWTSecret)),
		Messages: messages,
	}, messages
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, resp.JSONResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope resp.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	return rec, envelope
}

func TestRegisterLoginFlow(t *testing.T) {
	deps, _ := newTestDeps()
	router := Router(deps)

	creds := map[string]string{"username": "alice_01", "password": "password1"}

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 0, envelope.Code)

	data := envelope.Data.(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, float64(1), data["user_id"])
	assert.Equal(t, "alice_01", data["username"])

	// Registering the same username again fails without touching the account.
	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/register", "", creds)
	assert.Equal(t, errs.ErrUserAlreadyExists, envelope.Code)

	// Wrong password: no token issued.
	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice_01", "password": "wrong-pass"})
	assert.Equal(t, errs.ErrInvalidCredentials, envelope.Code)
	assert.Nil(t, envelope.Data)

	// Correct credentials still work after the failed attempts.
	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, 0, envelope.Code)
	assert.NotEmpty(t, envelope.Data.(map[string]any)["token"])
}

func TestRegisterValidation(t *testing.T) {
	deps, _ := newTestDeps()
	router := Router(deps)

	_, envelope := doJSON(t, router, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": "No Spaces Allowed", "password": "password1"})
	assert.Equal(t, errs.ErrInvalidUsername, envelope.Code)

	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": "alice_01", "password": "tiny"})
	assert.Equal(t, errs.ErrInvalidPassword, envelope.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	deps, _ := newTestDeps()
	router := Router(deps)

	_, envelope := doJSON(t, router, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "ghost_user", "password": "password1"})
	assert.Equal(t, errs.ErrUserNotFound, envelope.Code)
}

func TestChangePasswordFlow(t *testing.T) {
	deps, _ := newTestDeps()
	router := Router(deps)

	// Anonymous callers are rejected.
	rec, envelope := doJSON(t, router, http.MethodPost, "/api/auth/change-password", "",
		map[string]string{"oldPassword": "password1", "newPassword": "password2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errs.ErrUnauthorized, envelope.Code)

	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": "alice_01", "password": "password1"})
	require.Equal(t, 0, envelope.Code)
	token := envelope.Data.(map[string]any)["token"].(string)

	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/change-password", token,
		map[string]string{"oldPassword": "not-the-one", "newPassword": "password2"})
	assert.Equal(t, errs.ErrOldPasswordInvalid, envelope.Code)

	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/change-password", token,
		map[string]string{"oldPassword": "password1", "newPassword": "password2"})
	require.Equal(t, 0, envelope.Code)

	_, envelope = doJSON(t, router, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice_01", "password": "password2"})
	assert.Equal(t, 0, envelope.Code)
}

func TestGetMessagesHistory(t *testing.T) {
	deps, messages := newTestDeps()
	router := Router(deps)

	require.NoError(t, messages.Append(context.Background(), relay.DefaultConversationID, 10, "hello"))
	require.NoError(t, messages.Append(context.Background(), relay.DefaultConversationID, 11, "hi back"))

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/messages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, envelope.Code)

	list := envelope.Data.(map[string]any)["messages"].([]any)
	require.Len(t, list, 2)

	first := list[0].(map[string]any)
	assert.Equal(t, "hello", first["body"])
	assert.Equal(t, float64(10), first["senderId"])
}

func TestHealthEndpoint(t *testing.T) {
	deps, _ := newTestDeps()
	router := Router(deps)

	rec, envelope := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, envelope.Code)
}
