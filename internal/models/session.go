package models

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCollector Role = "collector"
)

// Session is the identity resolved server-side for one request.
type Session struct {
	UserID  int64  `json:"user_id"`
	Role    Role   `json:"role"`
	TokenID string `json:"-"`
}
