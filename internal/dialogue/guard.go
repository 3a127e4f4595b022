package dialogue

import "github.com/couchcryptid/weather-chat-service/internal/domain"

// DefaultAnonymousMaxDays is the longest horizon an anonymous user may ask for.
const DefaultAnonymousMaxDays = 2

// AuthGuard decides which actions need a logged-in user. It is consulted by
// the report and weather handlers before any provider is called.
type AuthGuard struct {
	// AnonymousMaxDays caps forecasts for anonymous users. Zero or less
	// disables the cap.
	AnonymousMaxDays int
}

// AllowReport requires a user for every report export.
func (g AuthGuard) AllowReport(userID string) error {
	if userID == "" {
		return domain.ErrAuthenticationRequired
	}
	return nil
}

// AllowForecast requires a user when days exceeds AnonymousMaxDays.
func (g AuthGuard) AllowForecast(userID string, days int) error {
	if userID == "" && g.AnonymousMaxDays > 0 && days > g.AnonymousMaxDays {
		return domain.ErrAuthenticationRequired
	}
	return nil
}
