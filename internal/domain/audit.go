package domain

import "time"

// AuditAction enumerates recorded authentication actions.
type AuditAction string

const (
	AuditActionLogin    AuditAction = "LOGIN"
	AuditActionRegister AuditAction = "REGISTER"
)

// AuditEvent is a write-once record of an authentication action.
type AuditEvent struct {
	ID        string
	Username  string
	Action    AuditAction
	Timestamp time.Time
}
