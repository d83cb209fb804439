package record

import (
	"math"
	"slices"
	"strconv"
	"time"
)

// Status classifies how close a record is to expiring.
type Status string

const (
	StatusExpired Status = "expired"
	StatusWarning Status = "warning"
	StatusActive  Status = "active"
)

const (
	warningWindowDays  = 7
	upcomingWindowDays = 30
)

// DaysRemaining is the whole-day distance from today to expiration, both
// taken at midnight. Zero means it expires today, negative means it is past.
func DaysRemaining(expiration, today time.Time) int {
	diff := DateOf(expiration).Sub(DateOf(today).Time)
	return int(math.Ceil(diff.Hours() / 24))
}

// StatusFor maps a day count to its status.
func StatusFor(days int) Status {
	switch {
	case days <= 0:
		return StatusExpired
	case days <= warningWindowDays:
		return StatusWarning
	default:
		return StatusActive
	}
}

// StatusOf derives the status of an expiration date relative to today.
func StatusOf(expiration, today time.Time) Status {
	return StatusFor(DaysRemaining(expiration, today))
}

// Badge is the per-row status shown next to a record. Text carries the day
// count only while the record is in its warning window.
type Badge struct {
	Status        Status `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
	Text          string `json:"text"`
}

// BadgeOf computes the badge for an expiration date.
func BadgeOf(expiration, today time.Time) Badge {
	days := DaysRemaining(expiration, today)
	b := Badge{Status: StatusFor(days), DaysRemaining: days}
	if b.Status == StatusWarning {
		b.Text = strconv.Itoa(days)
	}
	return b
}

// Active keeps the items that have not expired yet.
func Active[T any](items []T, expiration func(T) time.Time, today time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if DaysRemaining(expiration(it), today) > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Upcoming keeps the items expiring within the next 30 days, soonest first.
// Items sharing an expiration date keep their input order.
func Upcoming[T any](items []T, expiration func(T) time.Time, today time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		days := DaysRemaining(expiration(it), today)
		if days > 0 && days <= upcomingWindowDays {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		return expiration(a).Compare(expiration(b))
	})
	return out
}
