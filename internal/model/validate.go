package model

import (
	"regexp"
	"time"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// DateLayout is the wire format for date-only fields such as Goal.TargetDate.
const DateLayout = "2006-01-02"

var (
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{1,61}[a-zA-Z0-9]\.[a-zA-Z]{2,}$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidDomainName reports whether s looks like a registrable domain.
func ValidDomainName(s string) bool {
	return domainPattern.MatchString(s)
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidRole reports whether s is an accepted user role.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleUser
}

// ValidInitiativeStatus reports whether s is an accepted initiative status.
func ValidInitiativeStatus(s string) bool {
	for _, status := range InitiativeStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is inside the initiative priority range.
func ValidPriority(p int) bool {
	return p >= MinPriority && p <= MaxPriority
}

// ValidEntityType reports whether s is a known comment target kind.
func ValidEntityType(s string) bool {
	for _, entityType := range EntityTypes {
		if s == entityType {
			return true
		}
	}
	return false
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
