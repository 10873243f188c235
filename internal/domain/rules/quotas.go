package rules

import "time"

const (
	FreeSwipesPerDay     = 100
	FreeSuperlikesPerDay = 5

	MaxMessageLength        = 2000
	MaxBioLength            = 500
	MessagePreviewLength    = 50
	MessagePageLimitDefault = 50
	MessagePageLimitMax     = 100
	DiscoverLimitDefault    = 20
	DiscoverLimitMax        = 50
	NotificationLimitMax    = 50
	MaxPhotosPerUser        = 6
)

func UnlimitedSwipesForPremium(isPremium bool) bool {
	return isPremium
}

func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

// DayStart is the UTC instant the current quota day began in loc.
func DayStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
}

func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.UTC()
}

// TruncatePreview bounds a message body for a notification preview.
func TruncatePreview(content string, max int) string {
	if max <= 0 {
		max = MessagePreviewLength
	}
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max])
}
