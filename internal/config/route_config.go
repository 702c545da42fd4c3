package config

import "github.com/spf13/viper"

const (
	protectedRoutesVar = "PROTECTED_ROUTES"
	publicRoutesVar    = "PUBLIC_ROUTES"
	entryPathVar       = "ENTRY_PATH"
	homePathVar        = "HOME_PATH"
)

// RouteConfig holds the route classification tables used by the guard.
// They are read from the environment so the lists change without a rebuild.
type RouteConfig interface {
	GetProtectedRoutes() []string
	GetPublicRoutes() []string
	GetEntryPath() string
	GetHomePath() string
}

type Routes struct {
	v *viper.Viper
}

var _ RouteConfig = Routes{}

func (r Routes) GetProtectedRoutes() []string {
	return splitList(r.v.GetString(protectedRoutesVar))
}

func (r Routes) GetPublicRoutes() []string {
	return splitList(r.v.GetString(publicRoutesVar))
}

// GetEntryPath is where unauthenticated visitors are sent (the login page).
func (r Routes) GetEntryPath() string {
	return r.v.GetString(entryPathVar)
}

// GetHomePath is where authenticated visitors are sent from public pages.
func (r Routes) GetHomePath() string {
	return r.v.GetString(homePathVar)
}
