package eval

import (
	"os/user"
	"slices"

	"github.com/SoarinFerret/DutyWarden/internal/config"
)

// Roles resolves the admin role from configured user names and an optional
// Unix group.
type Roles struct {
	admins     []string
	adminGroup string
	groupsOf   func(username string) ([]string, error)
}

func NewRoles(cfg config.AuthConfig) *Roles {
	return &Roles{
		admins:     cfg.Admins,
		adminGroup: cfg.AdminGroup,
		groupsOf:   unixGroups,
	}
}

// IsAdmin reports whether username may manage the allowlist and list duties.
func (r *Roles) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	if slices.Contains(r.admins, username) {
		return true
	}
	if r.adminGroup == "" {
		return false
	}

	groups, err := r.groupsOf(username)
	if err != nil {
		// unknown users hold no roles
		return false
	}
	return slices.Contains(groups, r.adminGroup)
}

func unixGroups(username string) ([]string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, err
	}
	gids, err := u.GroupIds()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(gids))
	for _, gid := range gids {
		g, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		names = append(names, g.Name)
	}
	return names, nil
}
