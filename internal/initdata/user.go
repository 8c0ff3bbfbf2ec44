package initdata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// User is the mini-app user object carried in the user field.
type User struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name,omitempty"`
	Username        string `json:"username,omitempty"`
	PhotoURL        string `json:"photo_url,omitempty"`
	LanguageCode    string `json:"language_code,omitempty"`
	IsPremium       bool   `json:"is_premium,omitempty"`
	AllowsWriteToPM bool   `json:"allows_write_to_pm,omitempty"`
}

// User decodes the user field. Only call it on a payload that verified.
func (p *Payload) User() (*User, error) {
	raw, ok := p.Get("user")
	if !ok {
		return nil, ErrNoUser
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return &u, nil
}

// AuthDate parses auth_date as unix seconds.
func (p *Payload) AuthDate() (time.Time, error) {
	raw, ok := p.Get("auth_date")
	if !ok {
		return time.Time{}, ErrNoAuthDate
	}

	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing auth_date: %w", err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// CheckAuthDate rejects payloads signed more than maxAge before now.
// A zero maxAge disables the check.
func CheckAuthDate(p *Payload, maxAge time.Duration, now time.Time) error {
	if maxAge <= 0 {
		return nil
	}

	authDate, err := p.AuthDate()
	if err != nil {
		return err
	}
	if age := now.Sub(authDate); age > maxAge {
		return fmt.Errorf("%w: signed %s ago", ErrExpired, age.Truncate(time.Second))
	}
	return nil
}
