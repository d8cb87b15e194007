// Package env describes the execution context the error logger runs in:
// whether diagnostics are verbose, what page/client is active, and which
// durable store (if any) is reachable.
package env

import "github.com/vietddude/retryfetch/internal/infra/storage"

// Environment is the ambient capability set. Non-interactive contexts
// return empty strings and a nil Store.
type Environment interface {
	IsDebug() bool
	CurrentURL() string
	ClientIdentifier() string
	Store() storage.Store
}

// Noop is the environment of a headless process with no persistence.
type Noop struct{}

func (Noop) IsDebug() bool            { return false }
func (Noop) CurrentURL() string       { return "" }
func (Noop) ClientIdentifier() string { return "" }
func (Noop) Store() storage.Store     { return nil }

// Static is a fixed environment, typically built once from configuration.
type Static struct {
	Debug      bool
	URL        string
	Client     string
	Persistent storage.Store
}

func (s Static) IsDebug() bool            { return s.Debug }
func (s Static) CurrentURL() string       { return s.URL }
func (s Static) ClientIdentifier() string { return s.Client }
func (s Static) Store() storage.Store     { return s.Persistent }
