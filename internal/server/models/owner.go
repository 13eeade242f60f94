package models

import "fmt"

// OwnerKind discriminates crate_owners rows.
type OwnerKind int

const (
	OwnerUser OwnerKind = iota
	OwnerTeam
)

func (k OwnerKind) String() string {
	if k == OwnerTeam {
		return "team"
	}
	return "user"
}

// CrateOwner joins a crate to a user or team. Rows are soft-deleted only.
type CrateOwner struct {
	CrateID   int64
	OwnerID   int64
	OwnerKind OwnerKind
	CreatedBy int64
	Deleted   bool
}

// Owner is either a user or a team; exactly one of User and Team is set,
// matching Kind.
type Owner struct {
	Kind OwnerKind
	User *User
	Team *Team
}

func UserOwner(u *User) Owner { return Owner{Kind: OwnerUser, User: u} }
func TeamOwner(t *Team) Owner { return Owner{Kind: OwnerTeam, Team: t} }

// ID returns the id of the underlying user or team row.
func (o Owner) ID() int64 {
	switch o.Kind {
	case OwnerTeam:
		return o.Team.ID
	default:
		return o.User.ID
	}
}

// Login returns the GitHub login of a user or the "github:org:team" login
// of a team.
func (o Owner) Login() string {
	switch o.Kind {
	case OwnerTeam:
		return o.Team.Login
	default:
		return o.User.GhLogin
	}
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.Login())
}
