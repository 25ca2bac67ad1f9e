package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanCannotAreExactNegations(t *testing.T) {
	roleSets := [][]Role{
		nil,
		{RoleAdmin},
		{RoleTeacher},
		{RoleStudent},
		{RoleTeacher, RoleStudent},
		{RoleAdmin, RoleTeacher, RoleStudent},
		{Role("DISABLED")},
	}
	for _, roles := range roleSets {
		ev := BuildEvaluator(42, roles)
		for _, action := range allActions {
			for _, resource := range allResources {
				assert.NotEqual(t, ev.Can(action, resource), ev.Cannot(action, resource),
					"roles=%v action=%s resource=%s", roles, action, resource)
			}
		}
	}
}

func TestEmptyRoleSetDeniesEverything(t *testing.T) {
	ev := BuildEvaluator(42, nil)
	for _, action := range allActions {
		for _, resource := range allResources {
			assert.True(t, ev.Cannot(action, resource))
		}
	}
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	ev := BuildEvaluator(42, []Role{Role("SUSPENDED")})
	for _, action := range allActions {
		for _, resource := range allResources {
			assert.True(t, ev.Cannot(action, resource))
		}
	}
}

func TestUnknownActionOrResourceDenies(t *testing.T) {
	ev := BuildEvaluator(42, []Role{RoleAdmin})
	assert.True(t, ev.Cannot(Action("approve"), ResourceCourse))
	assert.True(t, ev.Cannot(ActionGet, Resource("Invoice")))
}

func TestRoleSetTakesUnionOfCapabilities(t *testing.T) {
	ev := BuildEvaluator(42, []Role{RoleTeacher, RoleStudent})
	// From TEACHER.
	assert.True(t, ev.Can(ActionCreate, ResourceTask))
	assert.True(t, ev.Can(ActionCreate, ResourceGrade))
	// From STUDENT (also TEACHER, but survives without it).
	assert.True(t, ev.Can(ActionSubmit, ResourceTask))
	// From neither.
	assert.False(t, ev.Can(ActionDelete, ResourceCompany))
	assert.False(t, ev.Can(ActionCreate, ResourceCourse))
}

func TestEvaluatorExposesActorID(t *testing.T) {
	ev := BuildEvaluator(99, []Role{RoleStudent})
	assert.Equal(t, int64(99), ev.ActorID())
}

func TestEvaluatorCopiesRoleSlice(t *testing.T) {
	roles := []Role{RoleStudent}
	ev := BuildEvaluator(1, roles)
	roles[0] = RoleAdmin
	assert.True(t, ev.Cannot(ActionCreate, ResourceCourse))
}
