package auth

// rolePolicies is the static grant table per canonical role. "*" as module
// or action is a wildcard.
var rolePolicies = map[string]map[string][]string{
	RoleAdmin: {
		Wildcard: {Wildcard},
	},
	RoleUser: {
		"assistidos":    {"view", "create", "edit"},
		"entrevistas":   {"view", "create", "edit"},
		"vagas":         {"view"},
		"profissionais": {"view"},
		"relatorios":    {"view"},
	},
	RoleReadOnly: {
		Wildcard: {"view"},
	},
}

// Target is a (module, action) pair to authorize.
type Target struct {
	Module string
	Action string
}

// T builds a normalized Target.
func T(module, action string) Target {
	return Target{Module: normalizeToken(module), Action: normalizeToken(action)}
}

func roleAllows(role, module, action string) bool {
	policy, ok := rolePolicies[NormalizeRole(role)]
	if !ok {
		return false
	}
	for _, m := range []string{module, Wildcard} {
		for _, a := range policy[m] {
			if a == Wildcard || a == action {
				return true
			}
		}
	}
	return false
}

// Authorize returns true when the role policy grants (module, action) or any
// scope matches it. Wildcards only apply on the granted side: asking for
// "profissionais:*" needs a grant of "profissionais:*" or "*:*".
func Authorize(role string, scopes []Scope, module, action string) bool {
	module, action = normalizeToken(module), normalizeToken(action)
	if module == "" || action == "" {
		return false
	}
	if roleAllows(role, module, action) {
		return true
	}
	for _, s := range scopes {
		if s.covers(module, action) {
			return true
		}
	}
	return false
}

// AuthorizeAny returns true when Authorize passes for at least one target.
func AuthorizeAny(role string, scopes []Scope, targets ...Target) bool {
	for _, t := range targets {
		if Authorize(role, scopes, t.Module, t.Action) {
			return true
		}
	}
	return false
}
