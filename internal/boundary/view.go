// Package boundary implements the contract page-level error surfaces have
// with the error core: normalize an unhandled failure into an AppError, log
// it, and pick what to show from its user message and fallback action.
package boundary

import (
	"github.com/vietddude/retryfetch/internal/core/apperror"
)

// Action is a recovery control offered to the visitor.
type Action string

const (
	ActionTryAgain Action = "try_again"
	ActionHome     Action = "home"
	ActionRefresh  Action = "refresh"
	ActionContact  Action = "contact"
	ActionCall     Action = "call"
)

// View is what an error page renders.
type View struct {
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	StatusCode int      `json:"statusCode"`
	Kind       string   `json:"type"`
	Retryable  bool     `json:"retryable"`
	Actions    []Action `json:"actions"`
	ErrorID    string   `json:"errorId,omitempty"`
}

var titles = map[apperror.Kind]string{
	apperror.KindNotFound:       "Page Not Found",
	apperror.KindServer:         "Server Error",
	apperror.KindRateLimit:      "Too Many Requests",
	apperror.KindTimeout:        "Request Timed Out",
	apperror.KindAuthentication: "Sign In Required",
	apperror.KindAuthorization:  "Access Denied",
	apperror.KindValidation:     "Invalid Request",
	apperror.KindNetwork:        "Connection Problem",
}

var fallbackActions = map[string]Action{
	apperror.FallbackGoHome:         ActionHome,
	apperror.FallbackContactForm:    ActionContact,
	apperror.FallbackContactSupport: ActionContact,
	apperror.FallbackCallSupport:    ActionCall,
	apperror.FallbackTryLater:       ActionRefresh,
}

// ViewFor chooses title, message and actions for err. "Try again" is
// offered only for retryable errors; home is always available.
func ViewFor(err *apperror.AppError) View {
	title, ok := titles[err.Kind()]
	if !ok {
		title = "Something Went Wrong"
	}

	var actions []Action
	if err.Retryable() {
		actions = append(actions, ActionTryAgain)
	}
	if a, ok := fallbackActions[err.FallbackAction()]; ok {
		actions = appendUnique(actions, a)
	}
	actions = appendUnique(actions, ActionHome)

	return View{
		Title:      title,
		Message:    err.UserMessage(),
		StatusCode: err.StatusCode(),
		Kind:       err.Kind().String(),
		Retryable:  err.Retryable(),
		Actions:    actions,
	}
}

func appendUnique(actions []Action, a Action) []Action {
	for _, existing := range actions {
		if existing == a {
			return actions
		}
	}
	return append(actions, a)
}
