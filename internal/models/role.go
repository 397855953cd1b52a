package models

import (
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-set/v3"
)

type Role struct {
	ID          uint   `gorm:"primarykey"`
	Name        string `gorm:"uniqueIndex"`
	Description string
	Permissions string // splitted by " "
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Role) PermissionList() []string {
	return strings.Fields(r.Permissions)
}

func (r *Role) PermissionSet() *set.Set[string] {
	return set.From(r.PermissionList())
}

func (r *Role) HasPermission(permission string) bool {
	return r.PermissionSet().Contains(permission)
}

// CanManageMembers reports whether the role may add, update and remove members.
func (r *Role) CanManageMembers() bool {
	return r.PermissionSet().ContainsSlice(memberManagementPermissions)
}

// JoinPermissions dedups and sorts tags into the stored form.
func JoinPermissions(tags []string) string {
	uniq := set.From(tags).Slice()
	sort.Strings(uniq)
	return strings.Join(uniq, " ")
}
