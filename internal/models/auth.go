package models

import (
	"fmt"
	"sort"
	"strings"
)

// AuthMode selects which credentials are forwarded to the SCIM server under test
type AuthMode string

const (
	AuthModeBasic  AuthMode = "basic"
	AuthModeBearer AuthMode = "bearer"
)

// ParseAuthMode accepts "basic"/"bearer" in any case, and the legacy numeric radio values "1"/"2"
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "1":
		return AuthModeBasic, nil
	case "bearer", "2":
		return AuthModeBearer, nil
	}
	return "", fmt.Errorf("unknown auth mode %q", s)
}

// Field names used for validation messages, matching the JSON tags of AuthConfig
const (
	FieldEndpoint = "endpoint"
	FieldUserName = "userName"
	FieldPassword = "password"
	FieldToken    = "token"
	FieldMode     = "mode"
	FieldGeneral  = "general"
)

// AuthConfig holds the SCIM server endpoint and the credentials forwarded to the test suite.
// Exactly one credential set is required, selected by Mode.
type AuthConfig struct {
	Endpoint string   `json:"endpoint" validate:"required"`
	Mode     AuthMode `json:"mode" validate:"required,oneof=basic bearer"`
	UserName string   `json:"userName" validate:"required_if=Mode basic"`
	Password string   `json:"password" validate:"required_if=Mode basic"`
	Token    string   `json:"token" validate:"required_if=Mode bearer"`
}

// Redacted returns a copy safe for logging and API responses
func (a AuthConfig) Redacted() AuthConfig {
	out := a
	if out.Password != "" {
		out.Password = "********"
	}
	if out.Token != "" {
		out.Token = "********"
	}
	return out
}

// ValidationErrors maps a field name to a user-facing message
type ValidationErrors map[string]string

// Fields returns the field names in sorted order
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns an independent copy
func (v ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(v))
	for k, m := range v {
		out[k] = m
	}
	return out
}

// ValidationError is returned when client-side preconditions fail. It never reaches the
// remote service.
type ValidationError struct {
	Fields  ValidationErrors `json:"fields"`
	Message string           `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether the given field failed validation
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// AuthState is the dashboard view of the auth dialog. Secrets are redacted.
type AuthState struct {
	Draft         AuthConfig       `json:"draft"`
	Committed     *AuthConfig      `json:"committed,omitempty"`
	Errors        ValidationErrors `json:"errors"`
	Authenticated bool             `json:"authenticated"`
}
