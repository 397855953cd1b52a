package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// Permission tags understood by the team endpoints.
const (
	PermTeamView      = "team:view"
	PermTeamUpdate    = "team:update"
	PermTeamDelete    = "team:delete"
	PermMembersView   = "members:view"
	PermMembersAdd    = "members:add"
	PermMembersUpdate = "members:update"
	PermMembersRemove = "members:remove"
)

var (
	knownPermissions = set.From([]string{
		PermTeamView,
		PermTeamUpdate,
		PermTeamDelete,
		PermMembersView,
		PermMembersAdd,
		PermMembersUpdate,
		PermMembersRemove,
	})

	memberManagementPermissions = []string{
		PermMembersAdd,
		PermMembersUpdate,
		PermMembersRemove,
	}
)

// KnownPermissions returns every registered permission tag, sorted.
func KnownPermissions() []string {
	tags := knownPermissions.Slice()
	sort.Strings(tags)
	return tags
}

// ValidatePermissions rejects tags outside the registry.
func ValidatePermissions(tags []string) error {
	var unknown []string
	for _, t := range tags {
		if !knownPermissions.Contains(t) {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown permission tags: %s", strings.Join(unknown, ", "))
	}
	return nil
}
