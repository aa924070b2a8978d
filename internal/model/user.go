package model

import "strings"

// User is an account returned by the users endpoint
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// DisplayName returns "First Last" when known, otherwise the username
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Session is the authenticated identity of this client process
type Session struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Token     string `json:"token"`
}

// Valid reports whether the session carries every field needed to restore it
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.UserID != 0 && s.Username != ""
}

// SameUser reports whether a and b belong to the same user. Two nil
// sessions are the same (anonymous) identity.
func SameUser(a, b *Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID
}

// Credentials is the login request body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the register request body
type Registration struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate rejects registrations missing required fields
func (r *Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.Username) == "":
		return NewValidationError("username", "username is required")
	case strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@"):
		return NewValidationError("email", "a valid email is required")
	case r.Password == "":
		return NewValidationError("password", "password is required")
	}
	return nil
}

// AuthResponse is returned by both login and register
type AuthResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Session converts a successful response into a Session
func (r *AuthResponse) Session() *Session {
	return &Session{
		UserID:    r.UserID,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Token:     r.Token,
	}
}

// Reason returns the server supplied failure text
func (r *AuthResponse) Reason() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "authentication failed"
}
