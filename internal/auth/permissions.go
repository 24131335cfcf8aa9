package auth

import (
	"fmt"
	"slices"
)

// Operation names an action subject to authorisation.
type Operation string

// Operation constants.
const (
	OpRead Operation = "read"

	OpParticipantCreate Operation = "participant:create"
	OpParticipantUpdate Operation = "participant:update"
	OpParticipantDelete Operation = "participant:delete"

	OpProjectCreate        Operation = "project:create"
	OpProjectUpdate        Operation = "project:update"
	OpProjectDelete        Operation = "project:delete"
	OpProjectAddMember     Operation = "project:member:add"
	OpProjectAllocateGrant Operation = "project:grant:allocate"

	OpAgencyCreate Operation = "agency:create"
	OpAgencyUpdate Operation = "agency:update"
	OpAgencyDelete Operation = "agency:delete"

	OpGrantCreate Operation = "grant:create"
	OpGrantUpdate Operation = "grant:update"
	OpGrantDelete Operation = "grant:delete"

	OpProductionCreate Operation = "production:create"
	OpProductionUpdate Operation = "production:update"
	OpProductionDelete Operation = "production:delete"

	OpAuditRead Operation = "audit:read"
)

// roleOperations maps each role to the operations it may perform on any record.
// Operations missing here may still be allowed by ownership (see Decide).
var roleOperations = map[Role][]Operation{
	RoleAdmin: {
		OpRead,
		OpParticipantCreate, OpParticipantUpdate, OpParticipantDelete,
		OpProjectCreate, OpProjectUpdate, OpProjectDelete, OpProjectAddMember, OpProjectAllocateGrant,
		OpAgencyCreate, OpAgencyUpdate, OpAgencyDelete,
		OpGrantCreate, OpGrantUpdate, OpGrantDelete,
		OpProductionCreate, OpProductionUpdate, OpProductionDelete,
		OpAuditRead,
	},
	RoleDocente: {
		OpRead,
		OpProjectCreate,
		OpAgencyCreate,
		OpGrantCreate,
	},
	RoleDiscente: {OpRead},
	RoleTecnico:  {OpRead},
}

// HasPermission reports whether role may perform op regardless of ownership.
func HasPermission(role Role, op Operation) bool {
	return slices.Contains(roleOperations[role], op)
}

// AccessContext carries the record facts ownership rules need.
type AccessContext struct {
	// TargetSubject is the CPF of the participant being modified.
	TargetSubject string

	// ChangesRole is true when a participant update alters the stored role.
	ChangesRole bool

	// ProjectCoordinator is the CPF of the coordinator of the project the
	// record belongs to. Empty when there is no linked project.
	ProjectCoordinator string

	// Authors lists the CPFs of a production's authors.
	Authors []string
}

// Decision is the outcome of an authorisation check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Decide evaluates whether p may perform op on the record described by ac.
// It is pure: no I/O, no side effects.
func Decide(p Principal, op Operation, ac AccessContext) Decision {
	if p.SubjectID == "" || !p.Role.Valid() {
		return deny("no authenticated principal")
	}

	if HasPermission(p.Role, op) {
		return allow()
	}

	switch op {
	case OpParticipantUpdate:
		if p.SubjectID != ac.TargetSubject {
			return deny("only administrators may update other participants")
		}
		if ac.ChangesRole {
			return deny("only administrators may change a participant's role")
		}
		return allow()

	case OpProjectUpdate, OpProjectDelete, OpProjectAddMember, OpProjectAllocateGrant:
		if isCoordinator(p, ac) {
			return allow()
		}
		return deny("only administrators or the project coordinator may modify this project")

	case OpProductionCreate, OpProductionUpdate:
		if isCoordinator(p, ac) || slices.Contains(ac.Authors, p.SubjectID) {
			return allow()
		}
		return deny("only administrators, the project coordinator or a listed author may edit this production")

	case OpProductionDelete:
		if isCoordinator(p, ac) {
			return allow()
		}
		return deny("only administrators or the project coordinator may delete this production")

	case OpAgencyUpdate, OpAgencyDelete, OpGrantUpdate, OpGrantDelete,
		OpParticipantCreate, OpParticipantDelete, OpAuditRead:
		return deny("administrator role required")

	case OpProjectCreate, OpAgencyCreate, OpGrantCreate:
		return deny("administrator or docente role required")
	}

	return deny(fmt.Sprintf("operation %q is not permitted", op))
}

func isCoordinator(p Principal, ac AccessContext) bool {
	return ac.ProjectCoordinator != "" && ac.ProjectCoordinator == p.SubjectID
}

// Authorize is Decide as an error: nil when allowed, otherwise an error
// wrapping ErrForbidden with the denial reason.
func Authorize(p Principal, op Operation, ac AccessContext) error {
	d := Decide(p, op, ac)
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}
