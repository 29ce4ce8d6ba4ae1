package model

import (
	"time"
)

// LoginAttempt tracks consecutive failed logins for one identifier.
type LoginAttempt struct {
	Identifier  string     `bson:"_id"`
	FailedCount int        `bson:"failed_count"`
	LockedUntil *time.Time `bson:"locked_until,omitempty"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

// IsLocked reports whether a lockout window is active at now.
func (a *LoginAttempt) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// LockExpired reports whether a lockout was set and its window has elapsed at now.
func (a *LoginAttempt) LockExpired(now time.Time) bool {
	return a.LockedUntil != nil && !now.Before(*a.LockedUntil)
}
