package grading

import (
	"context"
	"fmt"
	"time"
)

// Service enforces the instance-level ownership rules of grading: the
// capability table answers "may this role ever do this", the service
// answers "may this actor do it to this particular task or submission".
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ownsClass reports whether the actor may act on the class's tasks.
// Admins always may; teachers only for classes they are responsible for.
func (s *Service) ownsClass(ctx context.Context, actor Actor, companyID, classID int64) error {
	if actor.Admin {
		return nil
	}
	teacherID, err := s.repo.ClassTeacher(ctx, companyID, classID)
	if err != nil {
		return fmt.Errorf("resolve class teacher: %w", err)
	}
	if teacherID != actor.ID {
		return ErrNotClassOwner
	}
	return nil
}

// CreateTask creates an assignment for a class.
func (s *Service) CreateTask(ctx context.Context, actor Actor, t Task) (Task, error) {
	if err := s.ownsClass(ctx, actor, t.CompanyID, t.ClassID); err != nil {
		return Task{}, err
	}
	return s.repo.CreateTask(ctx, t)
}

// GetTask fetches a task.
func (s *Service) GetTask(ctx context.Context, companyID, id int64) (Task, error) {
	return s.repo.GetTask(ctx, companyID, id)
}

// ListTasksByClass lists a class's tasks.
func (s *Service) ListTasksByClass(ctx context.Context, companyID, classID int64) ([]Task, error) {
	return s.repo.ListTasksByClass(ctx, companyID, classID)
}

// UpdateTask rewrites a task the actor is allowed to manage.
func (s *Service) UpdateTask(ctx context.Context, actor Actor, companyID, id int64, title, description string, dueAt time.Time) (Task, error) {
	current, err := s.repo.GetTask(ctx, companyID, id)
	if err != nil {
		return Task{}, err
	}
	if err := s.ownsClass(ctx, actor, companyID, current.ClassID); err != nil {
		return Task{}, err
	}
	current.Title = title
	current.Description = description
	current.DueAt = dueAt
	if err := s.repo.UpdateTask(ctx, current); err != nil {
		return Task{}, err
	}
	return s.repo.GetTask(ctx, companyID, id)
}

// DeleteTask removes a task the actor is allowed to manage.
func (s *Service) DeleteTask(ctx context.Context, actor Actor, companyID, id int64) error {
	current, err := s.repo.GetTask(ctx, companyID, id)
	if err != nil {
		return err
	}
	if err := s.ownsClass(ctx, actor, companyID, current.ClassID); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, companyID, id)
}

// Submit records a submission for a task. A student submits as themselves,
// always. A teacher may submit on a student's behalf only for tasks of
// their own classes; the blanket submit capability alone is not enough.
func (s *Service) Submit(ctx context.Context, actor Actor, companyID, taskID, studentID int64, content string) (Submission, error) {
	task, err := s.repo.GetTask(ctx, companyID, taskID)
	if err != nil {
		return Submission{}, err
	}
	if actor.Student && !actor.Teacher && !actor.Admin {
		if studentID != actor.ID {
			return Submission{}, ErrNotOwnSubmission
		}
	} else if err := s.ownsClass(ctx, actor, companyID, task.ClassID); err != nil {
		return Submission{}, err
	}
	return s.repo.CreateSubmission(ctx, Submission{
		CompanyID: companyID,
		TaskID:    taskID,
		StudentID: studentID,
		Content:   content,
	})
}

// GetSubmission fetches a submission; a student only ever sees their own.
func (s *Service) GetSubmission(ctx context.Context, actor Actor, companyID, id int64) (Submission, error) {
	sub, err := s.repo.GetSubmission(ctx, companyID, id)
	if err != nil {
		return Submission{}, err
	}
	if actor.Student && !actor.Teacher && !actor.Admin && sub.StudentID != actor.ID {
		return Submission{}, ErrNotOwnSubmission
	}
	return sub, nil
}

// ListSubmissionsByTask lists a task's submissions for its teacher/admins.
func (s *Service) ListSubmissionsByTask(ctx context.Context, actor Actor, companyID, taskID int64) ([]Submission, error) {
	task, err := s.repo.GetTask(ctx, companyID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.ownsClass(ctx, actor, companyID, task.ClassID); err != nil {
		return nil, err
	}
	return s.repo.ListSubmissionsByTask(ctx, companyID, taskID)
}

// ListOwnSubmissions lists the actor's submissions.
func (s *Service) ListOwnSubmissions(ctx context.Context, actor Actor, companyID int64) ([]Submission, error) {
	return s.repo.ListSubmissionsByStudent(ctx, companyID, actor.ID)
}

// GradeSubmission marks a submission. Only the teacher of the task's class
// (or an admin) may grade it.
func (s *Service) GradeSubmission(ctx context.Context, actor Actor, companyID, submissionID int64, score float64, comment string) (Grade, error) {
	if score < 0 || score > 100 {
		return Grade{}, ErrScoreRange
	}
	sub, err := s.repo.GetSubmission(ctx, companyID, submissionID)
	if err != nil {
		return Grade{}, err
	}
	task, err := s.repo.GetTask(ctx, companyID, sub.TaskID)
	if err != nil {
		return Grade{}, err
	}
	if err := s.ownsClass(ctx, actor, companyID, task.ClassID); err != nil {
		return Grade{}, err
	}
	return s.repo.CreateGrade(ctx, Grade{
		CompanyID:    companyID,
		SubmissionID: submissionID,
		GradedBy:     actor.ID,
		Score:        score,
		Comment:      comment,
	})
}

// UpdateGrade revises an existing grade under the same ownership rule.
func (s *Service) UpdateGrade(ctx context.Context, actor Actor, companyID, submissionID int64, score float64, comment string) (Grade, error) {
	if score < 0 || score > 100 {
		return Grade{}, ErrScoreRange
	}
	grade, err := s.repo.GetGradeBySubmission(ctx, companyID, submissionID)
	if err != nil {
		return Grade{}, err
	}
	sub, err := s.repo.GetSubmission(ctx, companyID, submissionID)
	if err != nil {
		return Grade{}, err
	}
	task, err := s.repo.GetTask(ctx, companyID, sub.TaskID)
	if err != nil {
		return Grade{}, err
	}
	if err := s.ownsClass(ctx, actor, companyID, task.ClassID); err != nil {
		return Grade{}, err
	}
	grade.Score = score
	grade.Comment = comment
	grade.GradedBy = actor.ID
	if err := s.repo.UpdateGrade(ctx, grade); err != nil {
		return Grade{}, err
	}
	return s.repo.GetGradeBySubmission(ctx, companyID, submissionID)
}

// GradeForSubmission fetches a grade; students only see grades on their
// own submissions.
func (s *Service) GradeForSubmission(ctx context.Context, actor Actor, companyID, submissionID int64) (Grade, error) {
	if actor.Student && !actor.Teacher && !actor.Admin {
		sub, err := s.repo.GetSubmission(ctx, companyID, submissionID)
		if err != nil {
			return Grade{}, err
		}
		if sub.StudentID != actor.ID {
			return Grade{}, ErrNotOwnSubmission
		}
	}
	return s.repo.GetGradeBySubmission(ctx, companyID, submissionID)
}

// ListOwnGrades lists the actor's grades.
func (s *Service) ListOwnGrades(ctx context.Context, actor Actor, companyID int64) ([]Grade, error) {
	return s.repo.ListGradesByStudent(ctx, companyID, actor.ID)
}
