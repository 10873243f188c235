package rules

import "time"

// AgeAt returns full years between birthdate and now.
func AgeAt(birthdate, now time.Time) int {
	if birthdate.IsZero() {
		return 0
	}

	years := now.Year() - birthdate.Year()
	anniversary := birthdate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
