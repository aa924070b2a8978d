package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/taskcore/internal/logger"
	"github.com/existflow/taskcore/internal/model"
)

const minPasswordLength = 8

func authFailure(c echo.Context, status int, reason string) error {
	return c.JSON(status, model.AuthResponse{Success: false, Error: reason})
}

// handleRegister creates an account. The client logs in separately.
func (s *Server) handleRegister(c echo.Context) error {
	var req model.Registration
	if err := c.Bind(&req); err != nil {
		return authFailure(c, http.StatusBadRequest, "invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := req.Validate(); err != nil {
		return authFailure(c, http.StatusBadRequest, err.Error())
	}
	if len(req.Password) < minPasswordLength {
		return authFailure(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("bcrypt error", logger.F("error", err))
		return authFailure(c, http.StatusInternalServerError, "internal error")
	}

	user, err := s.store.CreateUser(c.Request().Context(), req, string(hash))
	if errors.Is(err, ErrUserExists) {
		return authFailure(c, http.StatusBadRequest, "username or email already exists")
	}
	if err != nil {
		s.log.Error("Failed to create user", logger.F("error", err))
		return authFailure(c, http.StatusInternalServerError, "internal error")
	}

	s.log.Info("User registered", logger.F("username", user.Username), logger.F("user_id", user.ID))
	return c.JSON(http.StatusOK, model.AuthResponse{
		Success:   true,
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Message:   "registration successful",
	})
}

// handleLogin checks credentials and issues an access token
func (s *Server) handleLogin(c echo.Context) error {
	var req model.Credentials
	if err := c.Bind(&req); err != nil {
		return authFailure(c, http.StatusBadRequest, "invalid request")
	}

	user, hash, err := s.store.UserByUsername(c.Request().Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.log.Error("Failed to load user", logger.F("error", err))
		}
		return authFailure(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return authFailure(c, http.StatusUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.log.Error("Failed to issue token", logger.F("error", err))
		return authFailure(c, http.StatusInternalServerError, "internal error")
	}

	s.log.Info("User logged in", logger.F("username", user.Username))
	return c.JSON(http.StatusOK, model.AuthResponse{
		Success:   true,
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// handleListUsers returns every user tasks can be assigned to
func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.store.ListUsers(c.Request().Context())
	if err != nil {
		s.log.Error("Failed to list users", logger.F("error", err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, users)
}
