package domain

import "strings"

// E164Phone normalizes the user's phone number for SMS delivery. Bare
// nine-digit numbers are treated as Polish mobiles. ok is false when the
// number is missing or cannot be normalized.
func (u *User) E164Phone() (phone string, ok bool) {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(u.Phone)
	switch {
	case p == "":
		return "", false
	case strings.HasPrefix(p, "+"):
		return p, len(p) > 1 && isDigits(p[1:])
	case strings.HasPrefix(p, "00"):
		return "+" + p[2:], len(p) > 2 && isDigits(p[2:])
	case len(p) == 9 && isDigits(p):
		return "+48" + p, true
	case len(p) == 11 && isDigits(p) && strings.HasPrefix(p, "48"):
		return "+" + p, true
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
