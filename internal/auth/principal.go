package auth

import "context"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Principal is the authenticated caller. The zero value is anonymous.
type Principal struct {
	Email string
	Role  Role
}

func (p Principal) Authenticated() bool {
	return p.Email != "" && p.Role.Valid()
}

func (p Principal) IsPatient() bool {
	return p.Authenticated() && p.Role == RolePatient
}

func (p Principal) IsDoctor() bool {
	return p.Authenticated() && p.Role == RoleDoctor
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the anonymous principal when none was attached.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
