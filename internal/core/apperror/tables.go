package apperror

// Fallback actions suggested to the UI.
const (
	FallbackCallSupport    = "call_support"
	FallbackContactForm    = "contact_form"
	FallbackTryLater       = "try_later"
	FallbackGoHome         = "go_home"
	FallbackContactSupport = "contact_support"
)

// GenericUserMessage is shown for any status without a dedicated message.
const GenericUserMessage = "An unexpected error occurred. Please try again or contact us if the problem persists."

var userMessages = map[int]string{
	400: "The request was invalid. Please check your information and try again.",
	401: "Please sign in to continue.",
	403: "You do not have permission to access this resource.",
	404: "The page or resource you are looking for could not be found.",
	408: "The request timed out. Please try again.",
	429: "Too many requests. Please wait a moment before trying again.",
	500: "Something went wrong on our end. Please try again later.",
	502: "Our servers are having trouble connecting. Please try again shortly.",
	503: "The service is temporarily unavailable. Please try again later.",
	504: "The server took too long to respond. Please try again.",
}

var fallbackActions = map[int]string{
	429: FallbackCallSupport,
	500: FallbackContactForm,
	503: FallbackTryLater,
	404: FallbackGoHome,
}

// DefaultRetryableStatuses lists the HTTP statuses treated as transient.
var DefaultRetryableStatuses = []int{408, 429, 500, 502, 503, 504}

// KindFor derives the kind from a status code. First match wins. Codes
// outside the HTTP range (0, 999, ...) are Unknown.
func KindFor(statusCode int) Kind {
	switch {
	case statusCode == 404:
		return KindNotFound
	case statusCode == 401:
		return KindAuthentication
	case statusCode == 403:
		return KindAuthorization
	case statusCode == 429:
		return KindRateLimit
	case statusCode == 408 || statusCode == 504:
		return KindTimeout
	case statusCode >= 400 && statusCode < 500:
		return KindValidation
	case statusCode >= 500 && statusCode < 600:
		return KindServer
	default:
		return KindUnknown
	}
}

// UserMessageFor returns the end-user-safe sentence for a status code.
func UserMessageFor(statusCode int) string {
	if msg, ok := userMessages[statusCode]; ok {
		return msg
	}
	return GenericUserMessage
}

// IsRetryableStatus reports whether a status is worth re-attempting.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// FallbackFor returns the suggested recovery action for a status code.
func FallbackFor(statusCode int) string {
	if action, ok := fallbackActions[statusCode]; ok {
		return action
	}
	return FallbackContactSupport
}
