// Package router maps recovered object keys to their permanent destination bucket.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
)

// OtherKey is the reserved rule used when a key's extension has no entry.
const OtherKey = "other"

// ErrNoDestination is returned when neither the extension nor OtherKey is mapped.
var ErrNoDestination = errors.New("no destination bucket configured")

// Rules maps a file extension (including the leading dot, e.g. ".txt") to a
// destination bucket name.
type Rules map[string]string

// String renders the rule table as JSON with sorted keys.
func (r Rules) String() string {
	if r == nil {
		r = Rules{}
	}
	b, err := json.Marshal(map[string]string(r))
	if err != nil {
		return fmt.Sprintf("%v", map[string]string(r))
	}
	return string(b)
}

// HasFallback reports whether the table carries an OtherKey entry.
func (r Rules) HasFallback() bool {
	_, ok := r[OtherKey]
	return ok
}

// ConfigError reports a key whose extension cannot be routed.
// Its message names the extension and the full rule table.
type ConfigError struct {
	Extension string
	Rules     Rules
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("BUCKET_MAP: %s does not contain values for %q or %q",
		e.Rules, e.Extension, OtherKey)
}

func (e *ConfigError) Unwrap() error {
	return ErrNoDestination
}

// Extension returns the extension of the last path segment of key, including
// the dot. Matching is case-sensitive, so no normalisation is applied.
func Extension(key string) string {
	return path.Ext(key)
}

// Resolve returns the destination bucket for key.
func Resolve(key string, rules Rules) (string, error) {
	ext := Extension(key)
	if bucket, ok := rules[ext]; ok && ext != "" {
		return bucket, nil
	}
	if bucket, ok := rules[OtherKey]; ok {
		return bucket, nil
	}
	return "", &ConfigError{Extension: ext, Rules: rules}
}

// Router binds a rule table loaded once at invocation start.
type Router struct {
	rules Rules
}

// New creates a router over a copy of rules.
func New(rules Rules) *Router {
	cp := make(Rules, len(rules))
	for k, v := range rules {
		cp[k] = v
	}
	return &Router{rules: cp}
}

// Route resolves the destination bucket for key.
func (r *Router) Route(key string) (string, error) {
	return Resolve(key, r.rules)
}

// Rules returns the router's rule table.
func (r *Router) Rules() Rules {
	return r.rules
}
