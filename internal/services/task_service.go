package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/metrics"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// rejectionReasonKey is where Reject stores the reason inside submission data.
const rejectionReasonKey = "rejection_reason"

// TaskService drives the per-user assignment state machine:
//
//	new -> ongoing -> completed -> approved
//	                            -> rejected
//
// pending and ongoing may also be rejected. Approved and rejected are terminal.
type TaskService struct {
	tasks       repository.TaskRepository
	assignments repository.UserTaskRepository
	users       repository.UserRepository
	ledger      LedgerAppender
	events      events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewTaskService(
	tasks repository.TaskRepository,
	assignments repository.UserTaskRepository,
	users repository.UserRepository,
	ledger LedgerAppender,
	publisher events.Publisher,
	logger *slog.Logger,
) *TaskService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		tasks:       tasks,
		assignments: assignments,
		users:       users,
		ledger:      ledger,
		events:      publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// TaskWithStatus is a catalog task annotated with the caller's assignment.
type TaskWithStatus struct {
	models.Task
	Status       models.UserTaskStatus `json:"status"`
	AssignmentID *uint64               `json:"assignment_id,omitempty"`
	RewardEarned *decimal.Decimal      `json:"reward_earned,omitempty"`
}

// StartTask is idempotent: a second call for the same pair returns the
// existing assignment unchanged, whatever its status.
func (s *TaskService) StartTask(ctx context.Context, userID string, taskID uint64) (*models.UserTask, error) {
	return s.start(ctx, "tasks.StartTask", userID, taskID)
}

func (s *TaskService) start(ctx context.Context, op, userID string, taskID uint64) (*models.UserTask, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(op, "task", ErrTaskNotFound, err)
	}
	if !task.IsActive {
		return nil, apierrors.NewNotFound(op, ErrTaskNotFound)
	}

	assignment, created, err := s.assignments.FindOrCreate(ctx, &models.UserTask{
		UserID:       userID,
		TaskID:       taskID,
		Status:       models.UserTaskStatusOngoing,
		RewardEarned: decimal.Zero,
	})
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to start task", err)
	}

	if created {
		metrics.TaskTransitions.WithLabelValues(string(models.UserTaskStatusOngoing)).Inc()
		s.logger.Info("task started", "assignment_id", assignment.ID, "user_id", userID, "task_id", taskID)
	}
	return assignment, nil
}

// CompleteTask snapshots the reward for the user's tier and stores the
// submission verbatim. The snapshot is never recomputed afterwards.
func (s *TaskService) CompleteTask(ctx context.Context, userID string, taskID uint64, submission json.RawMessage) (*models.UserTask, error) {
	const op = "tasks.CompleteTask"

	if len(submission) > 0 && !json.Valid(submission) {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrInvalidSubmission)
	}

	assignment, err := s.assignments.Find(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NewInvalidState(op, ErrTaskNotStarted)
		}
		return nil, apierrors.NewInternal(op, "failed to load assignment", err)
	}
	if assignment.Status != models.UserTaskStatusPending && assignment.Status != models.UserTaskStatusOngoing {
		return nil, apierrors.NewInvalidState(op, ErrNotCompletable)
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(op, "task", ErrTaskNotFound, err)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(op, "user", ErrUserNotFound, err)
	}

	reward := task.RewardFor(user.MembershipType)
	completedAt := s.now()

	ok, err := s.assignments.MarkCompleted(ctx, assignment.ID, reward, submission, completedAt)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to complete assignment", err)
	}
	if !ok {
		return nil, apierrors.NewInvalidState(op, ErrNotCompletable)
	}

	assignment.Status = models.UserTaskStatusCompleted
	assignment.RewardEarned = reward
	assignment.SubmissionData = datatypes.JSON(submission)
	assignment.CompletedAt = &completedAt

	metrics.TaskTransitions.WithLabelValues(string(models.UserTaskStatusCompleted)).Inc()
	s.logger.Info("task completed",
		"assignment_id", assignment.ID,
		"user_id", userID,
		"reward", reward.String(),
		"tier", user.MembershipType,
	)
	return assignment, nil
}

// Approve moves a completed assignment to approved and writes its reward to
// the ledger. The transition is a compare-and-swap, so of two concurrent
// approvals only one reaches the ledger. If the ledger insert fails the
// assignment is put back to completed before the error is returned.
func (s *TaskService) Approve(ctx context.Context, assignmentID uint64) (*models.UserTask, *models.Transaction, error) {
	const op = "tasks.Approve"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return nil, nil, err
	}

	assignment, err := s.assignments.FindByID(ctx, assignmentID, "Task")
	if err != nil {
		return nil, nil, notFoundOr(op, "assignment", ErrAssignmentNotFound, err)
	}
	if assignment.Status != models.UserTaskStatusCompleted {
		return nil, nil, apierrors.NewInvalidState(op, ErrNotCompleted)
	}
	if !assignment.RewardEarned.IsPositive() {
		return nil, nil, apierrors.NewInvalidState(op, ErrNoReward)
	}

	reviewedAt := s.now()
	ok, err := s.assignments.TransitionStatus(ctx, assignmentID,
		[]models.UserTaskStatus{models.UserTaskStatusCompleted},
		models.UserTaskStatusApproved,
		map[string]interface{}{"reviewed_at": reviewedAt},
	)
	if err != nil {
		return nil, nil, apierrors.NewInternal(op, "failed to approve assignment", err)
	}
	if !ok {
		return nil, nil, apierrors.NewInvalidState(op, ErrNotCompleted)
	}

	entry := LedgerEntry{
		UserID:     assignment.UserID,
		Amount:     assignment.RewardEarned,
		Type:       models.TransactionTypeReward,
		Status:     models.TransactionStatusCompleted,
		UserTaskID: &assignment.ID,
		Title:      "Task reward",
	}
	if assignment.Task != nil {
		entry.Title = "Task reward: " + assignment.Task.Title
		entry.IconType = assignment.Task.IconType
	}

	tx, err := s.ledger.Append(ctx, entry)
	if err != nil {
		s.compensateApproval(ctx, assignmentID, err)
		return nil, nil, err
	}

	assignment.Status = models.UserTaskStatusApproved
	assignment.ReviewedAt = &reviewedAt

	metrics.TaskTransitions.WithLabelValues(string(models.UserTaskStatusApproved)).Inc()
	s.logger.Info("task approved",
		"assignment_id", assignmentID,
		"user_id", assignment.UserID,
		"transaction_id", tx.ID,
		"amount", tx.Amount.String(),
		"admin", admin.Name,
	)
	s.publish(ctx, events.RouteTaskApproved, events.TaskReviewed{
		AssignmentID: assignment.ID,
		UserID:       assignment.UserID,
		TaskID:       assignment.TaskID,
		Status:       string(models.UserTaskStatusApproved),
		Amount:       tx.Amount,
		Timestamp:    reviewedAt,
	})

	return assignment, tx, nil
}

// compensateApproval reverts approved -> completed after a failed ledger
// insert. It runs on a context detached from the request so a cancelled
// request cannot leave the assignment approved but unpaid.
func (s *TaskService) compensateApproval(ctx context.Context, assignmentID uint64, cause error) {
	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	ok, err := s.assignments.TransitionStatus(rollbackCtx, assignmentID,
		[]models.UserTaskStatus{models.UserTaskStatusApproved},
		models.UserTaskStatusCompleted,
		map[string]interface{}{"reviewed_at": nil},
	)
	if err != nil || !ok {
		metrics.CompensationFailures.Inc()
		s.logger.Error("approval rollback failed; assignment approved without ledger entry",
			"assignment_id", assignmentID,
			"ledger_error", cause,
			"error", err,
		)
		return
	}
	s.logger.Warn("approval rolled back after ledger failure", "assignment_id", assignmentID, "error", cause)
}

// Reject ends a non-terminal assignment without reward. The reason is
// merged into the submission data.
func (s *TaskService) Reject(ctx context.Context, assignmentID uint64, reason string) (*models.UserTask, error) {
	const op = "tasks.Reject"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrReasonRequired)
	}

	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundOr(op, "assignment", ErrAssignmentNotFound, err)
	}
	if assignment.Status.IsTerminal() {
		return nil, apierrors.NewInvalidState(op, ErrAlreadyReviewed)
	}

	merged, err := mergeRejectionReason(assignment.SubmissionData, reason)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to encode submission data", err)
	}

	// Guarding on the observed status keeps a concurrent completion from
	// being overwritten with the stale submission.
	reviewedAt := s.now()
	ok, err := s.assignments.TransitionStatus(ctx, assignmentID,
		[]models.UserTaskStatus{assignment.Status},
		models.UserTaskStatusRejected,
		map[string]interface{}{
			"submission_data": merged,
			"reviewed_at":     reviewedAt,
		},
	)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to reject assignment", err)
	}
	if !ok {
		return nil, apierrors.NewInvalidState(op, ErrAlreadyReviewed)
	}

	assignment.Status = models.UserTaskStatusRejected
	assignment.SubmissionData = merged
	assignment.ReviewedAt = &reviewedAt

	metrics.TaskTransitions.WithLabelValues(string(models.UserTaskStatusRejected)).Inc()
	s.logger.Info("task rejected", "assignment_id", assignmentID, "user_id", assignment.UserID, "admin", admin.Name)
	s.publish(ctx, events.RouteTaskRejected, events.TaskReviewed{
		AssignmentID: assignment.ID,
		UserID:       assignment.UserID,
		TaskID:       assignment.TaskID,
		Status:       string(models.UserTaskStatusRejected),
		Amount:       decimal.Zero,
		Reason:       reason,
		Timestamp:    reviewedAt,
	})

	return assignment, nil
}

// mergeRejectionReason adds the reason to a JSON object submission. Non
// object submissions are nested under "submission".
func mergeRejectionReason(submission datatypes.JSON, reason string) (datatypes.JSON, error) {
	doc := map[string]interface{}{}
	if len(submission) > 0 && string(submission) != "null" {
		if err := json.Unmarshal(submission, &doc); err != nil {
			doc = map[string]interface{}{"submission": json.RawMessage(submission)}
		}
	}
	doc[rejectionReasonKey] = reason

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// AssignTask starts a task on behalf of a user.
func (s *TaskService) AssignTask(ctx context.Context, userID string, taskID uint64) (*models.UserTask, error) {
	const op = "tasks.AssignTask"

	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(op, "user", ErrUserNotFound, err)
	}
	return s.start(ctx, op, userID, taskID)
}

// ListParticipants returns every assignment of a task with its user.
func (s *TaskService) ListParticipants(ctx context.Context, taskID uint64) ([]models.UserTask, error) {
	const op = "tasks.ListParticipants"

	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return nil, notFoundOr(op, "task", ErrTaskNotFound, err)
	}

	participants, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to list participants", err)
	}
	return participants, nil
}

// ListAssignments is the admin review queue.
func (s *TaskService) ListAssignments(ctx context.Context, filter repository.UserTaskFilter) ([]models.UserTask, int64, error) {
	const op = "tasks.ListAssignments"

	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, 0, err
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, 0, apierrors.NewInternal(op, "failed to list assignments", err)
	}
	return assignments, total, nil
}

// AnnotateTasks attaches the user's assignment status to each task; tasks
// the user never started are "new".
func (s *TaskService) AnnotateTasks(ctx context.Context, userID string, tasks []models.Task) ([]TaskWithStatus, error) {
	assignments, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apierrors.NewInternal("tasks.AnnotateTasks", "failed to list assignments", err)
	}

	byTask := make(map[uint64]models.UserTask, len(assignments))
	for _, a := range assignments {
		byTask[a.TaskID] = a
	}

	out := make([]TaskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		item := TaskWithStatus{Task: t, Status: models.UserTaskStatusNew}
		if a, ok := byTask[t.ID]; ok {
			id, reward := a.ID, a.RewardEarned
			item.Status = a.Status
			item.AssignmentID = &id
			item.RewardEarned = &reward
		}
		out = append(out, item)
	}
	return out, nil
}

// ListMyTasks returns the user's assignments newest first.
func (s *TaskService) ListMyTasks(ctx context.Context, userID string) ([]models.UserTask, error) {
	assignments, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apierrors.NewInternal("tasks.ListMyTasks", "failed to list assignments", err)
	}
	return assignments, nil
}

func (s *TaskService) publish(ctx context.Context, routingKey string, body interface{}) {
	if err := s.events.Publish(ctx, routingKey, body); err != nil {
		s.logger.Warn("event publish failed", "routing_key", routingKey, "error", err)
	}
}
