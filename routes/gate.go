// Package routes maps view paths to the roles allowed to open them and decides
// what a caller gets to see.
package routes

import (
	"strings"

	"github.com/MrEthical07/hostelbites/session"
)

// View is the outcome of a gate check.
type View int

const (
	// ViewLoading means the session has not been restored yet.
	ViewLoading View = iota
	// ViewAllowed means the protected content may be produced.
	ViewAllowed
	// ViewLogin means there is no valid session; send the caller to /login.
	ViewLogin
	// ViewAccessDenied means the session's role may not open the path.
	ViewAccessDenied
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewAllowed:
		return "allowed"
	case ViewLogin:
		return "login"
	case ViewAccessDenied:
		return "access-denied"
	default:
		return "unknown"
	}
}

// LoginPath is where ViewLogin sends the caller.
const LoginPath = "/login"

// Rule restricts a path prefix to a set of roles.
type Rule struct {
	Prefix string
	Roles  []session.Role
}

// DefaultRules is the marketplace permission table.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/user", Roles: []session.Role{session.RoleUser, session.RoleAdmin}},
		{Prefix: "/seller", Roles: []session.Role{session.RoleSeller, session.RoleAdmin}},
		{Prefix: "/admin", Roles: []session.Role{session.RoleAdmin}},
	}
}

// DefaultPublic lists paths open without a session.
func DefaultPublic() []string {
	return []string{"/", "/login", "/register"}
}

// Authorizer is the part of session.Store the gate needs.
type Authorizer interface {
	Ready() bool
	Authorize(required ...session.Role) session.Decision
}

// Gate evaluates paths against a permission table.
type Gate struct {
	auth   Authorizer
	rules  []Rule
	public map[string]struct{}
}

// NewGate builds a Gate over auth. Nil rules or public use the defaults.
func NewGate(auth Authorizer, rules []Rule, public []string) *Gate {
	if rules == nil {
		rules = DefaultRules()
	}
	if public == nil {
		public = DefaultPublic()
	}
	g := &Gate{auth: auth, rules: rules, public: make(map[string]struct{}, len(public))}
	for _, p := range public {
		g.public[clean(p)] = struct{}{}
	}
	return g
}

// Check decides what the caller sees at path. Paths with no matching rule and
// not listed public still require an authenticated session of any role.
func (g *Gate) Check(path string) View {
	if !g.auth.Ready() {
		return ViewLoading
	}
	path = clean(path)
	if _, ok := g.public[path]; ok {
		return ViewAllowed
	}

	var required []session.Role
	if rule, ok := g.Match(path); ok {
		required = rule.Roles
	}
	switch g.auth.Authorize(required...) {
	case session.Allowed:
		return ViewAllowed
	case session.Forbidden:
		return ViewAccessDenied
	default:
		return ViewLogin
	}
}

// Match returns the rule with the longest prefix covering path.
func (g *Gate) Match(path string) (Rule, bool) {
	path = clean(path)
	var (
		best  Rule
		found bool
	)
	for _, r := range g.rules {
		if !covers(clean(r.Prefix), path) {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}

func covers(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func clean(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
