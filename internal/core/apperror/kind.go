package apperror

import (
	"encoding/json"
	"fmt"
)

// Kind is the closed category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAPI
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindServer
	KindRateLimit
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:        "UNKNOWN_ERROR",
	KindNetwork:        "NETWORK_ERROR",
	KindAPI:            "API_ERROR",
	KindValidation:     "VALIDATION_ERROR",
	KindAuthentication: "AUTHENTICATION_ERROR",
	KindAuthorization:  "AUTHORIZATION_ERROR",
	KindNotFound:       "NOT_FOUND",
	KindServer:         "SERVER_ERROR",
	KindRateLimit:      "RATE_LIMIT",
	KindTimeout:        "TIMEOUT",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown error kind %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
