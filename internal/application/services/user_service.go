package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/treefam/treefam-backend/internal/core/domain/token"
	"github.com/treefam/treefam-backend/internal/core/domain/user"
	"github.com/treefam/treefam-backend/internal/core/ports"
	"github.com/treefam/treefam-backend/internal/utils"
)

// UserService implements account lifecycle: registration, email confirmation
// and password reset. The raw secrets it hands to the email service are the
// only copies that ever exist outside the token store's hashes.
type UserService struct {
	userRepo     ports.UserRepository
	tokenService ports.SecretTokenService
	emailService ports.EmailService
	logger       *logrus.Logger
}

func NewUserService(userRepo ports.UserRepository, tokenService ports.SecretTokenService, emailService ports.EmailService, logger *logrus.Logger) *UserService {
	return &UserService{userRepo: userRepo, tokenService: tokenService, emailService: emailService, logger: logger}
}

var _ ports.UserService = (*UserService)(nil)

func (s *UserService) SignUp(ctx context.Context, req *user.SignUpRequest) (*user.User, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, user.ErrEmailTaken
	}

	if err := utils.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MiddleName:   req.MiddleName,
		Enabled:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.sendVerification(ctx, u); err != nil {
		// registration is all-or-nothing: an unverifiable account is useless
		if delErr := s.userRepo.Delete(ctx, u.ID); delErr != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": u.ID}).WithError(delErr).Error("failed to roll back user after email failure")
		}
		return nil, fmt.Errorf("registration failed: could not deliver verification email: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user registered")
	}

	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

// ConfirmEmail validates the verification secret, enables the account, and
// only then marks the secret spent.
func (s *UserService) ConfirmEmail(ctx context.Context, rawToken string) error {
	subjectID, err := s.tokenService.Validate(ctx, rawToken, token.PurposeVerify)
	if err != nil {
		return err
	}

	u, err := s.userRepo.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}

	u.Enabled = true
	u.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to enable user: %w", err)
	}

	if err := s.tokenService.Consume(ctx, rawToken); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID}).Info("email confirmed")
	}
	return nil
}

func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Enabled {
		return nil
	}
	return s.sendVerification(ctx, u)
}

// RequestPasswordReset issues a reset secret and mails it. An unknown email
// is silently ignored so the endpoint does not reveal account existence.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"email": email}).Debug("password reset requested for unknown email")
			}
			return nil
		}
		return err
	}

	raw, err := s.tokenService.Issue(ctx, token.PurposeReset, u.ID)
	if err != nil {
		return err
	}

	return s.emailService.SendPasswordResetEmail(ctx, u.Email, u.FirstName, raw)
}

// ResetPassword validates the reset secret, commits the new password, and
// only then marks the secret spent.
func (s *UserService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	subjectID, err := s.tokenService.Validate(ctx, rawToken, token.PurposeReset)
	if err != nil {
		return err
	}

	if err := utils.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	u, err := s.userRepo.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokenService.Consume(ctx, rawToken); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u.ID}).Info("password reset")
	}
	return nil
}

func (s *UserService) sendVerification(ctx context.Context, u *user.User) error {
	raw, err := s.tokenService.Issue(ctx, token.PurposeVerify, u.ID)
	if err != nil {
		return err
	}
	return s.emailService.SendVerificationEmail(ctx, u.Email, u.FirstName, raw)
}
