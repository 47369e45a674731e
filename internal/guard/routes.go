package guard

import (
	"path"
	"strings"
)

const (
	// LandingPath is where unauthenticated navigation is sent.
	LandingPath = "/"
	// HomePath is the default view for an authenticated non-admin.
	HomePath = "/interview"
)

// Route binds a view name to its path.
type Route struct {
	Name string
	Path string
}

// Routes is the fixed view table. New protected or admin views must also
// be added to publicPaths or adminPaths below, otherwise they default to
// protected and non-admin.
var Routes = []Route{
	{Name: "Login", Path: "/"},
	{Name: "Interview", Path: "/interview"},
	{Name: "InterviewManual", Path: "/interview-manual"},
	{Name: "Register", Path: "/register"},
	{Name: "RegisterVoice", Path: "/register-voice"},
	{Name: "TrainingProgress", Path: "/training-progress"},
	{Name: "Profile", Path: "/profile"},
	{Name: "AdminSelect", Path: "/admin-select"},
	{Name: "Database", Path: "/database"},
	{Name: "RekapitulasiUser", Path: "/rekapitulasi-user"},
	{Name: "SelectMode", Path: "/select-mode"},
	{Name: "Rekapitulasi", Path: "/rekapitulasi"},
	{Name: "AboutUs", Path: "/about-us"},
}

var publicPaths = map[string]struct{}{
	"/":               {},
	"/register":       {},
	"/register-voice": {},
	"/about-us":       {},
}

var adminPaths = map[string]struct{}{
	"/rekapitulasi-user": {},
	"/admin-select":      {},
	"/database":          {},
}

// NormalizePath cleans p so "/database/" and "/x/../database" are
// classified the same as "/database".
func NormalizePath(p string) string {
	if p == "" {
		return LandingPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// IsPublic reports whether p is reachable without authentication.
func IsPublic(p string) bool {
	_, ok := publicPaths[NormalizePath(p)]
	return ok
}

// IsAdminOnly reports whether p requires the admin role.
func IsAdminOnly(p string) bool {
	_, ok := adminPaths[NormalizePath(p)]
	return ok
}

// Lookup finds the route registered for p.
func Lookup(p string) (Route, bool) {
	p = NormalizePath(p)
	for _, r := range Routes {
		if r.Path == p {
			return r, true
		}
	}
	return Route{}, false
}
