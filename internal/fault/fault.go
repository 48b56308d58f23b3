// Package fault defines the error categories shared by every service.
// Concrete sentinel errors wrap one of these so handlers can map a whole
// category to a status code while services still compare exact sentinels.
package fault

import "errors"

var (
	// NotFound: user/room/memory/friend-edge absent.
	NotFound = errors.New("not found")

	// StateConflict: a precondition on current state failed (friend state
	// machine, ownership transfer).
	StateConflict = errors.New("state conflict")

	// AlreadyInRelation: duplicate friend request/edge.
	AlreadyInRelation = errors.New("already in relation")

	// ReferentialViolation: the operation would break a referential
	// invariant (owner not in members, unlinked memory-room pair).
	ReferentialViolation = errors.New("referential violation")

	// Internal: a write that passed all preconditions still failed.
	// Always a bug or a storage fault; log with full context.
	Internal = errors.New("internal error")
)
