package guard

import "github.com/banjarlabs/iuran/session"

// Kind is the outcome of a guard evaluation.
type Kind uint8

const (
	// Pending shows the loading placeholder.
	Pending Kind = iota
	// Render shows the guarded content.
	Render
	// Redirect navigates to View.Target.
	Redirect
	// Denied shows the fixed access denied view. View.Target is the home route.
	Denied
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// View is what the guarded subtree should show.
type View struct {
	Kind   Kind
	Target string
}

// Mode selects authenticated-only or guest-only gating.
type Mode uint8

const (
	ModeAuthenticated Mode = iota
	ModeGuest
)

func (m Mode) String() string {
	if m == ModeGuest {
		return "guest"
	}
	return "authenticated"
}

// Routes are the navigation targets used for redirects.
type Routes struct {
	Login          string
	AdminLanding   string
	DefaultLanding string
}

// DefaultRoutes returns the console's standard routes.
func DefaultRoutes() Routes {
	return Routes{
		Login:          "/login",
		AdminLanding:   "/admin",
		DefaultLanding: "/",
	}
}

func (r Routes) withDefaults() Routes {
	d := DefaultRoutes()
	if r.Login == "" {
		r.Login = d.Login
	}
	if r.AdminLanding == "" {
		r.AdminLanding = d.AdminLanding
	}
	if r.DefaultLanding == "" {
		r.DefaultLanding = d.DefaultLanding
	}
	return r
}

// Landing returns the post-login route for role.
func (r Routes) Landing(role session.Role) string {
	r = r.withDefaults()
	if role.Is(session.RoleAdmin) {
		return r.AdminLanding
	}
	return r.DefaultLanding
}

// Policy is the static configuration of a guard.
type Policy struct {
	Mode Mode
	// Roles restricts an authenticated guard. Empty allows any role. Ignored
	// in guest mode.
	Roles  []session.Role
	Routes Routes
}

// Allows reports whether role passes the role restriction.
func (p Policy) Allows(role session.Role) bool {
	if len(p.Roles) == 0 {
		return true
	}
	for _, r := range p.Roles {
		if role.Is(r) {
			return true
		}
	}
	return false
}

// Input is everything Evaluate looks at.
type Input struct {
	Policy  Policy
	Session session.Snapshot
	// TimerElapsed is true once the minimum loading time has passed.
	TimerElapsed bool
}

// Evaluate maps the inputs to a view.
func Evaluate(in Input) View {
	snap := in.Session
	if (snap.Loading && snap.User == nil) || !in.TimerElapsed {
		return View{Kind: Pending}
	}

	routes := in.Policy.Routes.withDefaults()
	if in.Policy.Mode == ModeGuest {
		if snap.User != nil {
			return View{Kind: Redirect, Target: routes.Landing(snap.User.Role)}
		}
		return View{Kind: Render}
	}

	if snap.User == nil {
		return View{Kind: Redirect, Target: routes.Login}
	}
	if !in.Policy.Allows(snap.User.Role) {
		return View{Kind: Denied, Target: routes.DefaultLanding}
	}
	return View{Kind: Render}
}
