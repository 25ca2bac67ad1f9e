package authz

// Evaluator is the per-request decision primitive. It closes over the
// resolved actor and role set and performs no I/O: building one is cheap
// and every lookup is a map hit against the static capability table.
//
// An evaluator is only valid for the company whose membership produced it;
// the guard builds a fresh one per request.
type Evaluator struct {
	actorID int64
	roles   []Role
}

// BuildEvaluator constructs an evaluator for the given actor and roles.
func BuildEvaluator(actorID int64, roles []Role) Evaluator {
	held := make([]Role, len(roles))
	copy(held, roles)
	return Evaluator{actorID: actorID, roles: held}
}

// ActorID exposes the acting user so handlers can layer instance-level
// ownership checks (own profile, own submission) on top of the table.
func (e Evaluator) ActorID() int64 {
	return e.actorID
}

// Can reports whether any held role grants the pair. A role set with no
// grants, or an unknown action/resource, yields false rather than an error.
func (e Evaluator) Can(action Action, resource Resource) bool {
	for _, role := range e.roles {
		if roleAllows(role, action, resource) {
			return true
		}
	}
	return false
}

// Cannot is the negation of Can, phrased for guard clauses:
//
//	if ev.Cannot(authz.ActionCreate, authz.ResourceCourse) { ... reject ... }
func (e Evaluator) Cannot(action Action, resource Resource) bool {
	return !e.Can(action, resource)
}
