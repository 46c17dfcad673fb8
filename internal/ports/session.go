package ports

import (
	"context"

	"debtster_routes/internal/models"
)

// SessionResolver maps a bearer token to the caller's identity and role.
// Implementations must read the role server-side.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (models.Session, error)
}

// AuditSink records authorization denials.
type AuditSink interface {
	RecordDenial(ctx context.Context, d Denial)
}

type Denial struct {
	UserID    int64
	Role      models.Role
	Operation string
	Reason    string
	Scope     map[string]any
}
