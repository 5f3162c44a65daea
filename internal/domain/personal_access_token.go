package domain

import "time"

// PersonalAccessToken authenticates an operator. The user id it carries is
// recorded as the acting user on payments, approvals and PDC transitions.
type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Abilities string
	ExpiresAt *time.Time
}
