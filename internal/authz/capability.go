package authz

// Capability is one (action, resource) pair a role may perform.
type Capability struct {
	Action   Action
	Resource Resource
}

// roleCapabilities is the full grant list per role. Every grant is spelled
// out, including all of ADMIN's: absence of a pair always means deny, so
// adding a resource type requires an explicit decision for each role here.
// Instance-level refinements (own profile, own submission) are layered on
// top by the handlers and are never encoded in this table.
var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		{ActionCreate, ResourceCourse},
		{ActionGet, ResourceCourse},
		{ActionUpdate, ResourceCourse},
		{ActionDelete, ResourceCourse},

		{ActionCreate, ResourceClass},
		{ActionGet, ResourceClass},
		{ActionUpdate, ResourceClass},
		{ActionDelete, ResourceClass},

		{ActionCreate, ResourceClassroom},
		{ActionGet, ResourceClassroom},
		{ActionUpdate, ResourceClassroom},
		{ActionDelete, ResourceClassroom},

		{ActionCreate, ResourceLevel},
		{ActionGet, ResourceLevel},
		{ActionUpdate, ResourceLevel},
		{ActionDelete, ResourceLevel},

		{ActionCreate, ResourceDiscipline},
		{ActionGet, ResourceDiscipline},
		{ActionUpdate, ResourceDiscipline},
		{ActionDelete, ResourceDiscipline},

		{ActionCreate, ResourceTask},
		{ActionGet, ResourceTask},
		{ActionUpdate, ResourceTask},
		{ActionDelete, ResourceTask},

		{ActionCreate, ResourceGrade},
		{ActionGet, ResourceGrade},
		{ActionUpdate, ResourceGrade},
		{ActionDelete, ResourceGrade},

		{ActionCreate, ResourceRegistration},
		{ActionGet, ResourceRegistration},
		{ActionUpdate, ResourceRegistration},
		{ActionDelete, ResourceRegistration},

		{ActionGet, ResourceCompany},
		{ActionUpdate, ResourceCompany},
		{ActionDelete, ResourceCompany},
		{ActionCreateSubscription, ResourceCompany},

		{ActionCreate, ResourceUser},
		{ActionGet, ResourceUser},
		{ActionUpdate, ResourceUser},
		{ActionDelete, ResourceUser},

		{ActionCreate, ResourceRole},
		{ActionGet, ResourceRole},
		{ActionUpdate, ResourceRole},
		{ActionDelete, ResourceRole},

		{ActionCreate, ResourceAttendance},
		{ActionGet, ResourceAttendance},
		{ActionUpdate, ResourceAttendance},
		{ActionDelete, ResourceAttendance},
	},
	RoleTeacher: {
		{ActionGet, ResourceCourse},
		{ActionGet, ResourceClass},
		{ActionGet, ResourceClassroom},
		{ActionGet, ResourceLevel},
		{ActionGet, ResourceDiscipline},

		{ActionCreate, ResourceTask},
		{ActionGet, ResourceTask},
		{ActionUpdate, ResourceTask},
		{ActionDelete, ResourceTask},
		{ActionSubmit, ResourceTask},

		{ActionCreate, ResourceGrade},
		{ActionGet, ResourceGrade},
		{ActionUpdate, ResourceGrade},

		{ActionGet, ResourceRegistration},
		{ActionGet, ResourceUser},

		{ActionCreate, ResourceAttendance},
		{ActionGet, ResourceAttendance},
		{ActionUpdate, ResourceAttendance},
	},
	RoleStudent: {
		{ActionGet, ResourceCourse},
		{ActionGet, ResourceClass},
		{ActionGet, ResourceClassroom},
		{ActionGet, ResourceLevel},
		{ActionGet, ResourceDiscipline},

		{ActionGet, ResourceTask},
		{ActionSubmit, ResourceTask},

		{ActionGet, ResourceGrade},
		{ActionGet, ResourceRegistration},
		{ActionGet, ResourceAttendance},
	},
}

// capabilityIndex is the lookup form of roleCapabilities. Built once at
// package init and read-only afterwards, so concurrent reads need no lock.
var capabilityIndex = buildCapabilityIndex()

func buildCapabilityIndex() map[Role]map[Capability]struct{} {
	index := make(map[Role]map[Capability]struct{}, len(roleCapabilities))
	for role, caps := range roleCapabilities {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		index[role] = set
	}
	return index
}

// roleAllows reports whether a single role grants the pair. Unknown roles,
// actions and resources all fall through to deny.
func roleAllows(role Role, action Action, resource Resource) bool {
	set, ok := capabilityIndex[role]
	if !ok {
		return false
	}
	_, ok = set[Capability{Action: action, Resource: resource}]
	return ok
}

// Capabilities returns a copy of the grant list for a role, mainly for
// introspection endpoints and tests.
func Capabilities(role Role) []Capability {
	caps := roleCapabilities[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
