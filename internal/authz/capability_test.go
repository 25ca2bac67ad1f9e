package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allActions = []Action{
	ActionCreate, ActionGet, ActionUpdate, ActionDelete,
	ActionSubmit, ActionCreateSubscription,
}

var allResources = []Resource{
	ResourceCourse, ResourceClass, ResourceClassroom, ResourceLevel,
	ResourceDiscipline, ResourceTask, ResourceGrade, ResourceRegistration,
	ResourceCompany, ResourceUser, ResourceRole, ResourceAttendance,
}

var allRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

func TestTableListedPairsAllowUnlistedDeny(t *testing.T) {
	for _, role := range allRoles {
		listed := make(map[Capability]struct{})
		for _, c := range Capabilities(role) {
			listed[c] = struct{}{}
		}
		ev := BuildEvaluator(1, []Role{role})
		for _, action := range allActions {
			for _, resource := range allResources {
				_, want := listed[Capability{Action: action, Resource: resource}]
				got := ev.Can(action, resource)
				assert.Equal(t, want, got, "role=%s action=%s resource=%s", role, action, resource)
			}
		}
	}
}

func TestAdminGrantsAreExplicit(t *testing.T) {
	// ADMIN has no wildcard: the table must spell out every pair, and
	// pairs that make no sense (creating a company from inside a company
	// scope, submitting a grade) stay denied even for ADMIN.
	ev := BuildEvaluator(1, []Role{RoleAdmin})
	assert.True(t, ev.Cannot(ActionCreate, ResourceCompany))
	assert.True(t, ev.Cannot(ActionSubmit, ResourceGrade))
	assert.True(t, ev.Cannot(ActionCreateSubscription, ResourceUser))
}

func TestScenarioStudentCannotCreateCourse(t *testing.T) {
	ev := BuildEvaluator(7, []Role{RoleStudent})
	assert.True(t, ev.Cannot(ActionCreate, ResourceCourse))
}

func TestScenarioAdminCanCreateCourse(t *testing.T) {
	ev := BuildEvaluator(7, []Role{RoleAdmin})
	assert.False(t, ev.Cannot(ActionCreate, ResourceCourse))
}

func TestTeacherHasBlanketSubmitOnTask(t *testing.T) {
	// Ownership of the specific task is the handler's problem; the table
	// only answers the blanket question.
	ev := BuildEvaluator(7, []Role{RoleTeacher})
	assert.True(t, ev.Can(ActionSubmit, ResourceTask))
}

func TestParseRole(t *testing.T) {
	for _, role := range allRoles {
		parsed, err := ParseRole(string(role))
		assert.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
	_, err := ParseRole("SUPERUSER")
	assert.Error(t, err)
	_, err = ParseRole("admin")
	assert.Error(t, err, "roles are stored uppercase; lowercase is rejected, not normalized")
}
