package auth

import (
	"encoding/json"
	"strings"
)

// Wildcard matches any module or action.
const Wildcard = "*"

// Scope is a canonical module:action permission, lower-cased and trimmed.
type Scope struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

func (s Scope) String() string { return s.Module + ":" + s.Action }

func (s Scope) valid() bool { return s.Module != "" && s.Action != "" }

// covers reports whether s grants (module, action). Arguments must already
// be normalized.
func (s Scope) covers(module, action string) bool {
	return (s.Module == Wildcard || s.Module == module) &&
		(s.Action == Wildcard || s.Action == action)
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewScope builds a normalized scope.
func NewScope(module, action string) Scope {
	return Scope{Module: normalizeToken(module), Action: normalizeToken(action)}
}

// ParseScope parses a "module:action" string. ok is false when either part
// is missing.
func ParseScope(raw string) (Scope, bool) {
	module, action, found := strings.Cut(raw, ":")
	if !found {
		return Scope{}, false
	}
	s := NewScope(module, action)
	return s, s.valid()
}

// scopeEntry decodes one permission entry, which upstream systems send either
// as a "module:action" string or as a {module, action} object.
type scopeEntry struct {
	scope Scope
	ok    bool
}

func (e *scopeEntry) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		e.scope, e.ok = ParseScope(str)
		return nil
	}

	var obj struct {
		Module string `json:"module"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Neither shape: ignore the entry rather than failing the token.
		return nil
	}
	e.scope = NewScope(obj.Module, obj.Action)
	e.ok = e.scope.valid()
	return nil
}

// ParseScopesJSON decodes a JSON array of mixed string/object entries.
// Malformed entries are dropped; a value that is not an array yields nil.
func ParseScopesJSON(data []byte) []Scope {
	if len(data) == 0 {
		return nil
	}
	var entries []scopeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	scopes := make([]Scope, 0, len(entries))
	for _, e := range entries {
		if e.ok {
			scopes = append(scopes, e.scope)
		}
	}
	return scopes
}
