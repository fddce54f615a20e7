package domain

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// GuestInfo is collected after a hold exists and is required before an order
// can be created. Phone is ten digits in this locale.
type GuestInfo struct {
	Name  string
	Email string
	Phone string
}

func (g GuestInfo) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrInvalidGuestInfo
	}
	if !emailRe.MatchString(g.Email) {
		return ErrInvalidGuestInfo
	}
	if len(g.Phone) != 10 {
		return ErrInvalidGuestInfo
	}
	for _, r := range g.Phone {
		if r < '0' || r > '9' {
			return ErrInvalidGuestInfo
		}
	}
	return nil
}
