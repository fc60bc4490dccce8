package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clinic/backend/internal/auth"
	"clinic/backend/internal/domain"
	"clinic/backend/internal/store"
)

type memAccounts struct {
	patients map[string]domain.PatientAccount
	doctors  map[string]domain.DoctorAccount
	createFn func() error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		patients: map[string]domain.PatientAccount{},
		doctors:  map[string]domain.DoctorAccount{},
	}
}

func (m *memAccounts) FindPatient(ctx context.Context, email string) (domain.PatientAccount, error) {
	a, ok := m.patients[email]
	if !ok {
		return domain.PatientAccount{}, store.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) CreatePatient(ctx context.Context, acct domain.PatientAccount) (domain.PatientAccount, error) {
	if m.createFn != nil {
		if err := m.createFn(); err != nil {
			return domain.PatientAccount{}, err
		}
	}
	acct.ID = int64(len(m.patients) + 1)
	m.patients[acct.Email] = acct
	return acct, nil
}

func (m *memAccounts) FindDoctor(ctx context.Context, email string) (domain.DoctorAccount, error) {
	a, ok := m.doctors[email]
	if !ok {
		return domain.DoctorAccount{}, store.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) CreateDoctor(ctx context.Context, acct domain.DoctorAccount) (domain.DoctorAccount, error) {
	acct.ID = int64(len(m.doctors) + 1)
	m.doctors[acct.Email] = acct
	return acct, nil
}

type fakeFeedback struct {
	got []domain.Feedback
}

func (f *fakeFeedback) CreateFeedback(ctx context.Context, fb domain.Feedback) (domain.Feedback, error) {
	fb.ID = int64(len(f.got) + 1)
	f.got = append(f.got, fb)
	return fb, nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(password string) (string, error) {
	if len(password) < auth.MinPasswordLen {
		return "", auth.ErrPasswordTooShort
	}
	if len(password) > auth.MaxPasswordLen {
		return "", auth.ErrPasswordTooLong
	}
	return "h:" + password, nil
}

func (prefixHasher) Verify(password, hash string) bool {
	return hash == "h:"+password
}

func TestRegisterAndLoginPatient(t *testing.T) {
	repo := newMemAccounts()
	svc := NewService(repo, &fakeFeedback{}, prefixHasher{})
	ctx := context.Background()

	acct, err := svc.RegisterPatient(ctx, "  p@example.com ", "patient123")
	if err != nil {
		t.Fatalf("RegisterPatient error: %v", err)
	}
	if acct.Email != "p@example.com" || acct.Password != "h:patient123" {
		t.Fatalf("acct = %+v", acct)
	}

	if _, err := svc.RegisterPatient(ctx, "p@example.com", "another123"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate err = %v, want %v", err, ErrAccountExists)
	}

	p, err := svc.LoginPatient(ctx, "p@example.com", "patient123")
	if err != nil {
		t.Fatalf("LoginPatient error: %v", err)
	}
	if p != (auth.Principal{Email: "p@example.com", Role: auth.RolePatient}) {
		t.Fatalf("principal = %+v", p)
	}

	if _, err := svc.LoginPatient(ctx, "p@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want %v", err, ErrInvalidCredentials)
	}
	if _, err := svc.LoginPatient(ctx, "nobody@example.com", "patient123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want %v", err, ErrInvalidCredentials)
	}
	// Patient credentials do not open the doctor namespace.
	if _, err := svc.LoginDoctor(ctx, "p@example.com", "patient123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("doctor login err = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestRegisterDoctor(t *testing.T) {
	svc := NewService(newMemAccounts(), &fakeFeedback{}, prefixHasher{})
	ctx := context.Background()

	if _, err := svc.RegisterDoctor(ctx, "d@example.com", "password123"); err != nil {
		t.Fatalf("RegisterDoctor error: %v", err)
	}
	p, err := svc.LoginDoctor(ctx, "d@example.com", "password123")
	if err != nil || !p.IsDoctor() {
		t.Fatalf("LoginDoctor = %+v, %v", p, err)
	}
	if _, err := svc.RegisterDoctor(ctx, "d@example.com", "password123"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate err = %v, want %v", err, ErrAccountExists)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemAccounts(), &fakeFeedback{}, prefixHasher{})
	ctx := context.Background()

	var vErr *ValidationError
	if _, err := svc.RegisterPatient(ctx, "not-an-email", "patient123"); !errors.As(err, &vErr) {
		t.Fatalf("email err = %v, want validation error", err)
	}
	if _, err := svc.RegisterPatient(ctx, "p@example.com", "short"); !errors.As(err, &vErr) || !strings.Contains(vErr.Error(), "8") {
		t.Fatalf("password err = %v, want validation error", err)
	}
	long := strings.Repeat("x", 80)
	if _, err := svc.RegisterDoctor(ctx, "d@example.com", long); !errors.As(err, &vErr) || !strings.Contains(vErr.Error(), "72") {
		t.Fatalf("long password err = %v, want validation error", err)
	}
}

func TestRegisterRaceMapsConflict(t *testing.T) {
	repo := newMemAccounts()
	repo.createFn = func() error { return store.ErrConflict }
	svc := NewService(repo, &fakeFeedback{}, prefixHasher{})

	if _, err := svc.RegisterPatient(context.Background(), "p@example.com", "patient123"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want %v", err, ErrAccountExists)
	}
}

func TestSubmitFeedback(t *testing.T) {
	fb := &fakeFeedback{}
	svc := NewService(newMemAccounts(), fb, prefixHasher{})
	ctx := context.Background()

	if _, err := svc.SubmitFeedback(ctx, "x@example.com", " nice clinic "); err != nil {
		t.Fatalf("SubmitFeedback error: %v", err)
	}
	if len(fb.got) != 1 || fb.got[0].Message != "nice clinic" {
		t.Fatalf("stored = %+v", fb.got)
	}

	var vErr *ValidationError
	if _, err := svc.SubmitFeedback(ctx, "x@example.com", "  "); !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if _, err := svc.SubmitFeedback(ctx, "", "hi"); !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
