package record

import "strings"

// FormatPhone renders a ten digit number as "(555) 123-4567". Any other input
// is returned untouched. Display only: stored phones keep what the user typed.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 {
		return phone
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}
