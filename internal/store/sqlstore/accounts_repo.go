package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"clinic/backend/internal/domain"
	"clinic/backend/internal/store"
)

type AccountRepo struct {
	gw *Gateway
}

func NewAccountRepo(gw *Gateway) *AccountRepo {
	return &AccountRepo{gw: gw}
}

func (r *AccountRepo) FindPatient(ctx context.Context, email string) (domain.PatientAccount, error) {
	var acct domain.PatientAccount
	err := r.gw.DB().NewSelect().
		Model(&acct).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.PatientAccount{}, notFound(err)
	}
	return acct, nil
}

func (r *AccountRepo) CreatePatient(ctx context.Context, acct domain.PatientAccount) (domain.PatientAccount, error) {
	id, err := r.insertAccount(ctx, "INSERT INTO patients (email, password) VALUES (?, ?) RETURNING id", acct.Email, acct.Password)
	if err != nil {
		return domain.PatientAccount{}, err
	}
	acct.ID = id
	return acct, nil
}

func (r *AccountRepo) FindDoctor(ctx context.Context, email string) (domain.DoctorAccount, error) {
	var acct domain.DoctorAccount
	err := r.gw.DB().NewSelect().
		Model(&acct).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.DoctorAccount{}, notFound(err)
	}
	return acct, nil
}

func (r *AccountRepo) CreateDoctor(ctx context.Context, acct domain.DoctorAccount) (domain.DoctorAccount, error) {
	id, err := r.insertAccount(ctx, "INSERT INTO doctors (email, password) VALUES (?, ?) RETURNING id", acct.Email, acct.Password)
	if err != nil {
		return domain.DoctorAccount{}, err
	}
	acct.ID = id
	return acct, nil
}

func (r *AccountRepo) insertAccount(ctx context.Context, query, email, password string) (int64, error) {
	row, err := r.gw.FetchOne(ctx, query, email, password)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, errors.New("insert account: no id returned")
	}
	return row.Int64("id"), nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

type FeedbackRepo struct {
	gw *Gateway
}

func NewFeedbackRepo(gw *Gateway) *FeedbackRepo {
	return &FeedbackRepo{gw: gw}
}

func (r *FeedbackRepo) CreateFeedback(ctx context.Context, fb domain.Feedback) (domain.Feedback, error) {
	row, err := r.gw.FetchOne(ctx, "INSERT INTO feedback (email, message) VALUES (?, ?) RETURNING id", fb.Email, fb.Message)
	if err != nil {
		return domain.Feedback{}, err
	}
	if row != nil {
		fb.ID = row.Int64("id")
	}
	return fb, nil
}
