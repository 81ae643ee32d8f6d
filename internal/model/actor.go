// Package model defines data structures for the relationship engine.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies which side of the platform an actor belongs to.
type Role string

const (
	RoleJunior Role = "junior"
	RoleSenior Role = "senior"
)

// Valid reports whether the role is one of the known actor kinds.
func (r Role) Valid() bool {
	return r == RoleJunior || r == RoleSenior
}

// ActorRef is the immutable (role, id) identity used everywhere two parties
// must be distinguished. Role is carried explicitly rather than inferred from
// which table the id happens to resolve against.
type ActorRef struct {
	Role Role      `json:"role" gorm:"type:varchar(16)"`
	ID   uuid.UUID `json:"id" gorm:"type:uuid"`
}

// Equal reports whether two refs identify the same actor.
func (a ActorRef) Equal(b ActorRef) bool {
	return a.ID == b.ID && a.Role == b.Role
}

// PairKey returns the normalized key for an unordered actor pair: the
// lexicographically smaller UUID first. Both the pending-request and the
// conversation uniqueness constraints index this key.
func PairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return x + "|" + y
}
