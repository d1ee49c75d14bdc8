package model

import "time"

// Role names stored in group_members.role. A user's role is scoped to a
// single research group; there are no global roles.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// ResearchGroup is a row in the `research_groups` table. Groups own
// research studies; the group's ADMIN members are the only users allowed
// to issue verification tokens for those studies.
type ResearchGroup struct {
	ID        uint64    // research_groups.id
	Name      string    // research_groups.name
	CreatedAt time.Time // research_groups.created_at
}

// GroupMember links a user to a research group with a role. The pair
// (UserID, GroupID) is unique.
type GroupMember struct {
	ID        uint64    // group_members.id
	UserID    uint64    // group_members.user_id
	GroupID   uint64    // group_members.group_id
	Role      string    // group_members.role (ADMIN or MEMBER)
	CreatedAt time.Time // group_members.created_at
}

// Research is a study record. The ledger only needs its identity, its
// owning group and the two moderation flags that gate the SIMPLE
// completion path; title editing and moderation itself live elsewhere.
//
// Fields:
//  ID         – primary key identifier.
//  GroupID    – owning research group.
//  Title      – study title (read-only here).
//  IsApproved – whether moderation approved the study for the feed.
//  IsHidden   – whether moderation hid the study.
//  CreatedAt  – timestamp of creation.
type Research struct {
	ID         uint64    // research.id
	GroupID    uint64    // research.group_id
	Title      string    // research.title
	IsApproved bool      // research.is_approved
	IsHidden   bool      // research.is_hidden
	CreatedAt  time.Time // research.created_at
}

// Visible reports whether the study may appear in the public feed and
// accept SIMPLE completions.
func (r Research) Visible() bool {
	return r.IsApproved && !r.IsHidden
}
