package routes

import (
	"testing"

	"github.com/MrEthical07/hostelbites/session"
)

type fakeAuth struct {
	ready bool
	role  session.Role
}

func (f fakeAuth) Ready() bool { return f.ready }

func (f fakeAuth) Authorize(required ...session.Role) session.Decision {
	if f.role == "" {
		return session.Unauthenticated
	}
	if len(required) == 0 {
		return session.Allowed
	}
	for _, r := range required {
		if r == f.role {
			return session.Allowed
		}
	}
	return session.Forbidden
}

func TestGateCheck(t *testing.T) {
	cases := []struct {
		name string
		auth fakeAuth
		path string
		want View
	}{
		{"public while loading", fakeAuth{}, "/login", ViewLoading},
		{"public when ready", fakeAuth{ready: true}, "/register", ViewAllowed},
		{"protected while loading", fakeAuth{ready: false, role: session.RoleUser}, "/user/home", ViewLoading},
		{"anonymous on user route", fakeAuth{ready: true}, "/user/cart", ViewLogin},
		{"seller on user route", fakeAuth{ready: true, role: session.RoleSeller}, "/user/home", ViewAccessDenied},
		{"admin on user route", fakeAuth{ready: true, role: session.RoleAdmin}, "/user/orders", ViewAllowed},
		{"user on seller route", fakeAuth{ready: true, role: session.RoleUser}, "/seller/home", ViewAccessDenied},
		{"seller on seller route", fakeAuth{ready: true, role: session.RoleSeller}, "/seller/orders", ViewAllowed},
		{"seller on admin route", fakeAuth{ready: true, role: session.RoleSeller}, "/admin/dashboard", ViewAccessDenied},
		{"profile admits any role", fakeAuth{ready: true, role: session.RoleSeller}, "/profile", ViewAllowed},
		{"profile needs a session", fakeAuth{ready: true}, "/profile", ViewLogin},
		{"root is public", fakeAuth{ready: true}, "/", ViewAllowed},
		{"trailing slash and query", fakeAuth{ready: true, role: session.RoleUser}, "/user/cart/?tab=1", ViewAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGate(tc.auth, nil, nil)
			if got := g.Check(tc.path); got != tc.want {
				t.Fatalf("Check(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestMatchRespectsSegmentsAndLongestPrefix(t *testing.T) {
	rules := append(DefaultRules(), Rule{Prefix: "/user/admin-tools", Roles: []session.Role{session.RoleAdmin}})
	g := NewGate(fakeAuth{ready: true}, rules, nil)

	if _, ok := g.Match("/username"); ok {
		t.Fatal("/user must not cover /username")
	}
	r, ok := g.Match("/user/admin-tools/export")
	if !ok || r.Prefix != "/user/admin-tools" {
		t.Fatalf("expected longest prefix rule, got %+v %v", r, ok)
	}
	r, ok = g.Match("/seller")
	if !ok || r.Prefix != "/seller" {
		t.Fatalf("expected /seller rule, got %+v %v", r, ok)
	}
}

func TestGateWithSessionStoreForbiddenNotUnauthenticated(t *testing.T) {
	g := NewGate(fakeAuth{ready: true, role: session.RoleSeller}, nil, nil)
	if got := g.Check("/user/home"); got != ViewAccessDenied {
		t.Fatalf("SELLER on USER|ADMIN route must be access denied, got %v", got)
	}
}
