package google

import calendar "google.golang.org/api/calendar/v3"

// DefaultOAuthScopes are the Google OAuth scopes requested when connecting the
// business calendar.
//
// The scopes provide access to:
//   - the account email (to key the stored account)
//   - Google Calendar: free/busy and event management
var DefaultOAuthScopes = []string{
	// OpenID Connect scopes (required for user info)
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	// Google Calendar scope
	calendar.CalendarScope,
}
