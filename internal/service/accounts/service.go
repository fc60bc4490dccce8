package accounts

import (
	"context"
	"errors"
	"strings"

	"clinic/backend/internal/auth"
	"clinic/backend/internal/domain"
	"clinic/backend/internal/store"
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	accounts store.AccountRepository
	feedback store.FeedbackRepository
	hasher   auth.PasswordHasher
}

func NewService(accounts store.AccountRepository, feedback store.FeedbackRepository, hasher auth.PasswordHasher) *Service {
	return &Service{accounts: accounts, feedback: feedback, hasher: hasher}
}

func (s *Service) RegisterPatient(ctx context.Context, email, password string) (domain.PatientAccount, error) {
	email, hash, err := s.prepare(email, password)
	if err != nil {
		return domain.PatientAccount{}, err
	}
	if _, err := s.accounts.FindPatient(ctx, email); err == nil {
		return domain.PatientAccount{}, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.PatientAccount{}, err
	}

	acct, err := s.accounts.CreatePatient(ctx, domain.PatientAccount{Email: email, Password: hash})
	if errors.Is(err, store.ErrConflict) {
		return domain.PatientAccount{}, ErrAccountExists
	}
	return acct, err
}

func (s *Service) RegisterDoctor(ctx context.Context, email, password string) (domain.DoctorAccount, error) {
	email, hash, err := s.prepare(email, password)
	if err != nil {
		return domain.DoctorAccount{}, err
	}
	if _, err := s.accounts.FindDoctor(ctx, email); err == nil {
		return domain.DoctorAccount{}, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.DoctorAccount{}, err
	}

	acct, err := s.accounts.CreateDoctor(ctx, domain.DoctorAccount{Email: email, Password: hash})
	if errors.Is(err, store.ErrConflict) {
		return domain.DoctorAccount{}, ErrAccountExists
	}
	return acct, err
}

func (s *Service) LoginPatient(ctx context.Context, email, password string) (auth.Principal, error) {
	email = strings.TrimSpace(email)
	acct, err := s.accounts.FindPatient(ctx, email)
	if err != nil {
		return auth.Principal{}, s.loginError(err)
	}
	if !s.hasher.Verify(password, acct.Password) {
		return auth.Principal{}, ErrInvalidCredentials
	}
	return auth.Principal{Email: acct.Email, Role: auth.RolePatient}, nil
}

func (s *Service) LoginDoctor(ctx context.Context, email, password string) (auth.Principal, error) {
	email = strings.TrimSpace(email)
	acct, err := s.accounts.FindDoctor(ctx, email)
	if err != nil {
		return auth.Principal{}, s.loginError(err)
	}
	if !s.hasher.Verify(password, acct.Password) {
		return auth.Principal{}, ErrInvalidCredentials
	}
	return auth.Principal{Email: acct.Email, Role: auth.RoleDoctor}, nil
}

func (s *Service) SubmitFeedback(ctx context.Context, email, message string) (domain.Feedback, error) {
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)
	if email == "" {
		return domain.Feedback{}, validationError("email is required")
	}
	if message == "" {
		return domain.Feedback{}, validationError("message is required")
	}
	return s.feedback.CreateFeedback(ctx, domain.Feedback{Email: email, Message: message})
}

func (s *Service) prepare(email, password string) (string, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", "", validationError("a valid email is required")
	}
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "", "", validationError("password must be at least 8 characters")
	}
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", "", validationError("password must be at most 72 bytes")
	}
	if err != nil {
		return "", "", err
	}
	return email, hash, nil
}

func (s *Service) loginError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCredentials
	}
	return err
}
