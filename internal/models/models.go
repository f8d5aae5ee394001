package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	PassHash  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	Reset     PasswordReset
}

// Profile is the client-facing view of a user.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

// PasswordReset is the reset sub-state stored on the user row. A new reset
// request overwrites the previous one.
type PasswordReset struct {
	TokenHash   *string
	ExpiresAt   *time.Time
	Used        bool
	RequestIP   string
	UserAgent   string
	RequestedAt *time.Time
}

// * Pending reports whether the stored reset token can still be consumed
func (p PasswordReset) Pending(now time.Time) bool {
	return p.TokenHash != nil && !p.Used && p.ExpiresAt != nil && p.ExpiresAt.After(now)
}

// Device is the coarse (User-Agent, IP) fingerprint of a client.
type Device struct {
	UserAgent string
	IP        string
}

type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	Device    Device
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// * Usable reports whether the ledger entry can still be redeemed
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the result of register, login and refresh.
type Session struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Tokens TokenPair `json:"tokens"`
}

// Message is a mail job published to the broker.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
