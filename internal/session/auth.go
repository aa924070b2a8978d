package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/taskcore/internal/model"
)

// Authenticator exchanges credentials for an identity
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.AuthResponse, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error)
}

// MockAuthenticator accepts any credentials after a delay and always
// returns the configured user id
type MockAuthenticator struct {
	UserID int64
	Delay  time.Duration
	Now    func() time.Time
}

// NewMockAuthenticator returns the mock used when the client runs without
// a backend
func NewMockAuthenticator(userID int64) *MockAuthenticator {
	return &MockAuthenticator{UserID: userID, Delay: 500 * time.Millisecond, Now: time.Now}
}

func (m *MockAuthenticator) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(m.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login implements Authenticator
func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*model.AuthResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return &model.AuthResponse{
		Success:  true,
		Token:    fmt.Sprintf("mock_token_%d", now().UnixMilli()),
		UserID:   m.UserID,
		Username: strings.TrimSpace(username),
	}, nil
}

// Register implements Authenticator
func (m *MockAuthenticator) Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &model.AuthResponse{
		Success: true,
		Message: "Usuario registrado exitosamente",
	}, nil
}
