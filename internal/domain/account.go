package domain

import "time"

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusBlocked AccountStatus = "BLOCKED"
)

// Account is the credential record for a registered user.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string `json:"-"`
	Status       AccountStatus
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleNames returns the names of the account's roles in stored order.
func (a *Account) RoleNames() []string {
	if a == nil || len(a.Roles) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.Roles))
	for _, role := range a.Roles {
		names = append(names, role.Name)
	}
	return names
}

// Blocked reports whether the account may not log in.
func (a *Account) Blocked() bool {
	return a != nil && a.Status == AccountStatusBlocked
}

// Role is a named grant attached to accounts.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
