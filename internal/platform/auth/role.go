package auth

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical roles.
const (
	RoleAdmin    = "ADM"
	RoleUser     = "USUARIO"
	RoleReadOnly = "CONSULTA"
)

// roleAliases maps folded spellings (lower case, no accents, single spaces)
// to canonical roles.
var roleAliases = map[string]string{
	"adm":                RoleAdmin,
	"admin":              RoleAdmin,
	"administrador":      RoleAdmin,
	"administradora":     RoleAdmin,
	"administrator":      RoleAdmin,
	"coordenador geral":  RoleAdmin,
	"coordenadora geral": RoleAdmin,
	"coordenacao geral":  RoleAdmin,
	"gestao":             RoleAdmin,
	"gestor":             RoleAdmin,
	"gestora":            RoleAdmin,

	"usuario":      RoleUser,
	"usuaria":      RoleUser,
	"user":         RoleUser,
	"profissional": RoleUser,
	"tecnico":      RoleUser,
	"tecnica":      RoleUser,
	"operador":     RoleUser,

	"consulta":        RoleReadOnly,
	"consultor":       RoleReadOnly,
	"leitura":         RoleReadOnly,
	"somente leitura": RoleReadOnly,
	"visualizador":    RoleReadOnly,
	"viewer":          RoleReadOnly,
	"readonly":        RoleReadOnly,
}

// foldRole lower-cases, strips diacritics and collapses whitespace and
// separators so "Coordenador_Geral" and "coordenador  geral" fold alike.
func foldRole(role string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, role)
	if err != nil {
		folded = role
	}
	folded = strings.ToLower(folded)
	folded = strings.NewReplacer("_", " ", "-", " ").Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeRole returns the canonical role for role. Unknown roles pass
// through trimmed and upper-cased.
func NormalizeRole(role string) string {
	if canonical, ok := roleAliases[foldRole(role)]; ok {
		return canonical
	}
	return strings.ToUpper(strings.TrimSpace(role))
}

// IsAdminRole reports whether role normalizes to ADM.
func IsAdminRole(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}
