package store

import (
	"context"

	"clinic/backend/internal/domain"
)

// AccountRepository returns ErrNotFound for unknown emails and ErrConflict
// when an email is already registered.
type AccountRepository interface {
	FindPatient(ctx context.Context, email string) (domain.PatientAccount, error)
	CreatePatient(ctx context.Context, acct domain.PatientAccount) (domain.PatientAccount, error)
	FindDoctor(ctx context.Context, email string) (domain.DoctorAccount, error)
	CreateDoctor(ctx context.Context, acct domain.DoctorAccount) (domain.DoctorAccount, error)
}

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, fb domain.Feedback) (domain.Feedback, error)
}
