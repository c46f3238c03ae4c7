package common

// Cookie and header names shared by the HTTP layer and its tests.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
	FlashCookieName        = "flash"
	CSRFCookieName         = "_csrf"
	CSRFFormField          = "csrf_token"
	CSRFHeaderName         = "X-CSRFToken"
)
