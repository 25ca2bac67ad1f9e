package grading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akademi-app/akademi/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateTask(ctx context.Context, t Task) (Task, error) {
	args := m.Called(ctx, t)
	out, _ := args.Get(0).(Task)
	return out, args.Error(1)
}

func (m *mockRepo) GetTask(ctx context.Context, companyID, id int64) (Task, error) {
	args := m.Called(ctx, companyID, id)
	out, _ := args.Get(0).(Task)
	return out, args.Error(1)
}

func (m *mockRepo) ListTasksByClass(ctx context.Context, companyID, classID int64) ([]Task, error) {
	args := m.Called(ctx, companyID, classID)
	out, _ := args.Get(0).([]Task)
	return out, args.Error(1)
}

func (m *mockRepo) UpdateTask(ctx context.Context, t Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockRepo) DeleteTask(ctx context.Context, companyID, id int64) error {
	return m.Called(ctx, companyID, id).Error(0)
}

func (m *mockRepo) ClassTeacher(ctx context.Context, companyID, classID int64) (int64, error) {
	args := m.Called(ctx, companyID, classID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) CreateSubmission(ctx context.Context, s Submission) (Submission, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(Submission)
	return out, args.Error(1)
}

func (m *mockRepo) GetSubmission(ctx context.Context, companyID, id int64) (Submission, error) {
	args := m.Called(ctx, companyID, id)
	out, _ := args.Get(0).(Submission)
	return out, args.Error(1)
}

func (m *mockRepo) ListSubmissionsByTask(ctx context.Context, companyID, taskID int64) ([]Submission, error) {
	args := m.Called(ctx, companyID, taskID)
	out, _ := args.Get(0).([]Submission)
	return out, args.Error(1)
}

func (m *mockRepo) ListSubmissionsByStudent(ctx context.Context, companyID, studentID int64) ([]Submission, error) {
	args := m.Called(ctx, companyID, studentID)
	out, _ := args.Get(0).([]Submission)
	return out, args.Error(1)
}

func (m *mockRepo) CreateGrade(ctx context.Context, g Grade) (Grade, error) {
	args := m.Called(ctx, g)
	out, _ := args.Get(0).(Grade)
	return out, args.Error(1)
}

func (m *mockRepo) UpdateGrade(ctx context.Context, g Grade) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockRepo) GetGradeBySubmission(ctx context.Context, companyID, submissionID int64) (Grade, error) {
	args := m.Called(ctx, companyID, submissionID)
	out, _ := args.Get(0).(Grade)
	return out, args.Error(1)
}

func (m *mockRepo) ListGradesByStudent(ctx context.Context, companyID, studentID int64) ([]Grade, error) {
	args := m.Called(ctx, companyID, studentID)
	out, _ := args.Get(0).([]Grade)
	return out, args.Error(1)
}

var (
	teacherA = Actor{ID: 20, Teacher: true}
	teacherB = Actor{ID: 21, Teacher: true}
	admin    = Actor{ID: 1, Admin: true}
	student  = Actor{ID: 30, Student: true}
)

func TestCreateTaskOwnClassOnly(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()
	task := Task{CompanyID: 1, ClassID: 5, Title: "Essay", DueAt: time.Now().Add(48 * time.Hour)}

	repo.On("ClassTeacher", ctx, int64(1), int64(5)).Return(int64(20), nil)
	repo.On("CreateTask", ctx, task).Return(task, nil)

	_, err := svc.CreateTask(ctx, teacherA, task)
	require.NoError(t, err)

	_, err = svc.CreateTask(ctx, teacherB, task)
	require.ErrorIs(t, err, ErrNotClassOwner)
}

func TestCreateTaskAdminBypassesOwnership(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()
	task := Task{CompanyID: 1, ClassID: 5, Title: "Quiz"}

	repo.On("CreateTask", ctx, task).Return(task, nil)

	_, err := svc.CreateTask(ctx, admin, task)
	require.NoError(t, err)
	repo.AssertNotCalled(t, "ClassTeacher", mock.Anything, mock.Anything, mock.Anything)
}

func TestStudentSubmitsOnlyAsSelf(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetTask", ctx, int64(1), int64(9)).Return(Task{ID: 9, CompanyID: 1, ClassID: 5}, nil)
	repo.On("CreateSubmission", ctx, mock.MatchedBy(func(s Submission) bool {
		return s.StudentID == student.ID && s.TaskID == 9
	})).Return(Submission{ID: 100, TaskID: 9, StudentID: student.ID}, nil)

	_, err := svc.Submit(ctx, student, 1, 9, student.ID, "my answer")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, student, 1, 9, 31, "someone else's answer")
	require.ErrorIs(t, err, ErrNotOwnSubmission)
}

func TestTeacherSubmitDeniedForOtherClass(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	// Blanket submit capability is granted, but the task belongs to a class
	// owned by a different teacher.
	repo.On("GetTask", ctx, int64(1), int64(9)).Return(Task{ID: 9, CompanyID: 1, ClassID: 5}, nil)
	repo.On("ClassTeacher", ctx, int64(1), int64(5)).Return(int64(20), nil)

	_, err := svc.Submit(ctx, teacherB, 1, 9, 30, "late submission on behalf")
	require.ErrorIs(t, err, ErrNotClassOwner)
	repo.AssertNotCalled(t, "CreateSubmission", mock.Anything, mock.Anything)
}

func TestGradeSubmissionOwnership(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetSubmission", ctx, int64(1), int64(100)).Return(Submission{ID: 100, TaskID: 9, StudentID: 30}, nil)
	repo.On("GetTask", ctx, int64(1), int64(9)).Return(Task{ID: 9, CompanyID: 1, ClassID: 5}, nil)
	repo.On("ClassTeacher", ctx, int64(1), int64(5)).Return(int64(20), nil)
	repo.On("CreateGrade", ctx, mock.MatchedBy(func(g Grade) bool {
		return g.SubmissionID == 100 && g.GradedBy == teacherA.ID && g.Score == 85
	})).Return(Grade{ID: 7, SubmissionID: 100, Score: 85}, nil)

	_, err := svc.GradeSubmission(ctx, teacherA, 1, 100, 85, "good work")
	require.NoError(t, err)

	_, err = svc.GradeSubmission(ctx, teacherB, 1, 100, 85, "good work")
	require.ErrorIs(t, err, ErrNotClassOwner)
}

func TestGradeScoreRange(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.GradeSubmission(ctx, teacherA, 1, 100, 101, "")
	require.ErrorIs(t, err, ErrScoreRange)

	_, err = svc.GradeSubmission(ctx, teacherA, 1, 100, -1, "")
	require.ErrorIs(t, err, ErrScoreRange)
	repo.AssertNotCalled(t, "GetSubmission", mock.Anything, mock.Anything, mock.Anything)
}

func TestStudentReadsOwnSubmissionOnly(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetSubmission", ctx, int64(1), int64(100)).Return(Submission{ID: 100, TaskID: 9, StudentID: 31}, nil)

	_, err := svc.GetSubmission(ctx, student, 1, 100)
	require.ErrorIs(t, err, ErrNotOwnSubmission)

	got, err := svc.GetSubmission(ctx, teacherA, 1, 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), got.ID)
}

func TestStudentGradeVisibility(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetSubmission", ctx, int64(1), int64(100)).Return(Submission{ID: 100, StudentID: 30}, nil)
	repo.On("GetGradeBySubmission", ctx, int64(1), int64(100)).Return(Grade{ID: 7, SubmissionID: 100, Score: 85}, nil)

	grade, err := svc.GradeForSubmission(ctx, student, 1, 100)
	require.NoError(t, err)
	require.Equal(t, float64(85), grade.Score)
}

func TestDeleteTaskUnknown(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("GetTask", ctx, int64(1), int64(9)).Return(Task{}, shared.ErrNotFound)

	err := svc.DeleteTask(ctx, admin, 1, 9)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
