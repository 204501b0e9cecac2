package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/treefam/treefam-backend/internal/core/domain/auth"
	"github.com/treefam/treefam-backend/internal/core/domain/token"
	"github.com/treefam/treefam-backend/internal/core/domain/user"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/response"
)

func (s *Server) ping(c echo.Context) error {
	return response.Success(c, http.StatusOK, "pong")
}

func (s *Server) signUp(c echo.Context) error {
	var req user.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid request body", nil)
	}

	if details := requireFields(map[string]string{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"email":      req.Email,
		"password":   req.Password,
	}); details != nil {
		return response.Error(c, http.StatusBadRequest, "validation failed", details)
	}

	if _, err := s.userService.SignUp(c.Request().Context(), &req); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return response.Error(c, http.StatusBadRequest, "user with this email already exists", nil)
		}
		s.logger.WithError(err).Error("sign-up failed")
		return response.Error(c, http.StatusBadRequest, err.Error(), nil)
	}

	return response.Success(c, http.StatusOK, "user registered, confirmation email sent")
}

func (s *Server) signIn(c echo.Context) error {
	var req auth.SignInRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid request body", nil)
	}

	tokenString, err := s.authSvc.Login(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, user.ErrDisabled) {
			return response.Error(c, http.StatusUnauthorized, "email is not confirmed", nil)
		}
		return response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
	}

	return response.Success(c, http.StatusOK, tokenString)
}

func (s *Server) forgotPassword(c echo.Context) error {
	var req user.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid request body", nil)
	}

	// the reply never reveals whether the email exists
	if err := s.userService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		s.logger.WithError(err).Error("password reset request failed")
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"message": "If the email exists, a password reset link has been sent",
	})
}

func (s *Server) resetPassword(c echo.Context) error {
	var req user.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid request body", nil)
	}

	if err := s.userService.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return tokenErrorResponse(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"message": "Password has been reset successfully",
	})
}

func (s *Server) confirmEmail(c echo.Context) error {
	rawToken := c.QueryParam("token")

	if err := s.userService.ConfirmEmail(c.Request().Context(), rawToken); err != nil {
		return tokenErrorResponse(c, err)
	}

	return response.Success(c, http.StatusOK, "email confirmed")
}

func (s *Server) resendVerification(c echo.Context) error {
	var req user.ResendVerificationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "invalid request body", nil)
	}

	if err := s.userService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		s.logger.WithError(err).Error("resend verification failed")
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"message": "If the email exists, a verification link has been sent",
	})
}

// tokenErrorResponse maps secret-token failures onto user-facing statuses:
// unknown secrets are 404, everything else about the token itself is 400.
func tokenErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, token.ErrNotFound):
		return response.Error(c, http.StatusNotFound, "invalid or expired token", nil)
	case errors.Is(err, token.ErrAlreadyUsed):
		return response.Error(c, http.StatusBadRequest, "token has already been used", nil)
	case errors.Is(err, token.ErrExpired):
		return response.Error(c, http.StatusBadRequest, "token has expired", nil)
	case errors.Is(err, token.ErrInvalid):
		return response.Error(c, http.StatusBadRequest, "invalid token", nil)
	case errors.Is(err, user.ErrNotFound):
		return response.Error(c, http.StatusNotFound, "user not found", nil)
	default:
		return response.Error(c, http.StatusBadRequest, err.Error(), nil)
	}
}

func requireFields(fields map[string]string) map[string]any {
	var details map[string]any
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			if details == nil {
				details = make(map[string]any)
			}
			details[name] = "is required"
		}
	}
	return details
}
