package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ambermind/chat-controller/internal/controller/auth"
	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// mockAuthenticator is a mock implementation of gateway.Authenticator.
type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Signup(ctx context.Context, username, password string) (*gateway.SignupResult, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SignupResult), args.Error(1)
}

func (m *mockAuthenticator) Login(ctx context.Context, username, password string) (*gateway.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.LoginResult), args.Error(1)
}

func (m *mockAuthenticator) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func loginResult(username string, isAdmin bool) *gateway.LoginResult {
	return &gateway.LoginResult{
		Message: "Login successful!",
		Identity: models.UserIdentity{
			UserID:   "uid-" + username,
			Username: username,
			IsAdmin:  isAdmin,
		},
	}
}

func TestManager_StartsUnready(t *testing.T) {
	// Arrange
	mgr := auth.NewManager(&mockAuthenticator{})

	// Assert
	assert.Equal(t, auth.StateUnready, mgr.State())
	assert.False(t, mgr.Session().IsReady)
}

func TestManager_Ready_TransitionsToAnonymous(t *testing.T) {
	// Arrange
	mgr := auth.NewManager(&mockAuthenticator{})

	// Act
	mgr.Ready()

	// Assert
	assert.Equal(t, auth.StateAnonymous, mgr.State())
	session := mgr.Session()
	assert.True(t, session.IsReady)
	assert.False(t, session.IsAuthenticated)
}

func TestManager_Login_BeforeReady_Rejected(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mgr := auth.NewManager(mockGW)

	// Act
	_, err := mgr.Login(context.Background(), "amber", "secret")

	// Assert: rejected, never queued, no network
	require.Error(t, err)
	assert.True(t, domainerrors.IsNotReady(err))
	mockGW.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_Logout_BeforeReady_Rejected(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mgr := auth.NewManager(mockGW)

	// Act
	err := mgr.Logout(context.Background())

	// Assert: still unready, no network, no anonymous transition
	require.Error(t, err)
	assert.True(t, domainerrors.IsNotReady(err))
	assert.Equal(t, auth.StateUnready, mgr.State())
	mockGW.AssertNotCalled(t, "Logout", mock.Anything)
}

func TestManager_Login_EmptyFields_NoNetworkCall(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mgr := auth.NewManager(mockGW)
	mgr.Ready()

	cases := []struct{ username, password string }{
		{"", "secret"},
		{"amber", ""},
		{"   ", "secret"},
		{"amber", "   "},
	}

	for _, tc := range cases {
		// Act
		_, err := mgr.Login(context.Background(), tc.username, tc.password)

		// Assert
		require.Error(t, err)
		assert.True(t, domainerrors.IsValidationError(err))
	}
	mockGW.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_Login_Success(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Login", mock.Anything, "amber", "secret").Return(loginResult("amber", false), nil)

	mgr := auth.NewManager(mockGW)
	mgr.Ready()

	// Act
	result, err := mgr.Login(context.Background(), "amber", "secret")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Login successful!", result.Message)
	assert.Equal(t, auth.StateAuthenticated, mgr.State())

	session := mgr.Session()
	assert.True(t, session.IsAuthenticated)
	assert.Equal(t, "amber", session.Username())
	assert.False(t, session.IsAdmin())
}

func TestManager_Login_Failure_ReturnsToAnonymous(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Login", mock.Anything, "amber", "wrong").
		Return(nil, domainerrors.NewInvalidCredentialsError())

	mgr := auth.NewManager(mockGW)
	mgr.Ready()

	// Act
	_, err := mgr.Login(context.Background(), "amber", "wrong")

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsInvalidCredentials(err))
	assert.Equal(t, auth.StateAnonymous, mgr.State())
	assert.False(t, mgr.Session().IsAuthenticated)
}

func TestManager_Logout_AlwaysResetsLocalState(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Login", mock.Anything, "amber", "secret").Return(loginResult("amber", false), nil)
	mockGW.On("Logout", mock.Anything).Return(domainerrors.NewBackendError("backend down", nil))

	mgr := auth.NewManager(mockGW)
	mgr.Ready()
	_, err := mgr.Login(context.Background(), "amber", "secret")
	require.NoError(t, err)

	// Act
	err = mgr.Logout(context.Background())

	// Assert: the backend failure is surfaced but the session is reset
	require.Error(t, err)
	assert.Equal(t, auth.StateAnonymous, mgr.State())
	assert.False(t, mgr.Session().IsAuthenticated)
	assert.Equal(t, "", mgr.Session().Username())
}

func TestManager_Logout_WhenAnonymous_Idempotent(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Logout", mock.Anything).Return(nil)

	mgr := auth.NewManager(mockGW)
	mgr.Ready()

	// Act
	require.NoError(t, mgr.Logout(context.Background()))
	require.NoError(t, mgr.Logout(context.Background()))

	// Assert
	assert.Equal(t, auth.StateAnonymous, mgr.State())
}

func TestManager_Relogin_RunsTeardownsBeforeNewSession(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginResult("amber", false), nil)

	mgr := auth.NewManager(mockGW)
	teardowns := 0
	mgr.RegisterTeardown(func() { teardowns++ })
	mgr.Ready()

	// Act
	_, err := mgr.Login(context.Background(), "amber", "secret")
	require.NoError(t, err)
	first := teardowns

	_, err = mgr.Login(context.Background(), "beryl", "secret")
	require.NoError(t, err)

	// Assert: the first login replaces no session, the second does
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, teardowns)
}

func TestManager_Logout_RunsTeardowns(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginResult("amber", false), nil)
	mockGW.On("Logout", mock.Anything).Return(nil)

	mgr := auth.NewManager(mockGW)
	teardowns := 0
	mgr.RegisterTeardown(func() { teardowns++ })
	mgr.Ready()

	_, err := mgr.Login(context.Background(), "amber", "secret")
	require.NoError(t, err)

	// Act
	require.NoError(t, mgr.Logout(context.Background()))

	// Assert
	assert.Equal(t, 1, teardowns)
}

func TestManager_Subscribe_DeliversCurrentAndTransitions(t *testing.T) {
	// Arrange
	mockGW := &mockAuthenticator{}
	mockGW.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginResult("amber", true), nil)

	mgr := auth.NewManager(mockGW)
	mgr.Ready()

	sessions, cancel := mgr.Subscribe()
	defer cancel()

	// current snapshot arrives first
	first := <-sessions
	assert.False(t, first.IsAuthenticated)

	// Act
	_, err := mgr.Login(context.Background(), "amber", "secret")
	require.NoError(t, err)

	// Assert: drain to the latest snapshot, which must be authenticated
	var last models.Session
	for {
		select {
		case s := <-sessions:
			last = s
			continue
		default:
		}
		break
	}
	assert.True(t, last.IsAuthenticated)
	assert.True(t, last.IsAdmin())
}
