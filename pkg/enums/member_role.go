package enums

// MemberRole identifies the authorization tier carried by an access token.
type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleMember, MemberRoleAdmin:
		return true
	}
	return false
}
