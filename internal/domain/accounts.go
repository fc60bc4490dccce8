package domain

import "github.com/uptrace/bun"

type PatientAccount struct {
	bun.BaseModel `bun:"table:patients"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Email    string `bun:"email,notnull,unique"`
	Password string `bun:"password,notnull"`
}

type DoctorAccount struct {
	bun.BaseModel `bun:"table:doctors"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Email    string `bun:"email,notnull,unique"`
	Password string `bun:"password,notnull"`
}

// Feedback is append-only.
type Feedback struct {
	bun.BaseModel `bun:"table:feedback"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Email   string `bun:"email,notnull"`
	Message string `bun:"message,notnull"`
}
