package services

import (
	"context"
	"errors"
	"testing"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TaskServiceTestSuite struct {
	suite.Suite
	f *fixture
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.f = newFixture(suite.T())
}

func (suite *TaskServiceTestSuite) TestStartTaskIsIdempotent() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")

	first, err := suite.f.tasks.StartTask(context.Background(), "u1", task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.UserTaskStatusOngoing, first.Status)

	second, err := suite.f.tasks.StartTask(context.Background(), "u1", task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), first.ID, second.ID)

	var n int64
	suite.Require().NoError(suite.f.db.Model(&models.UserTask{}).Count(&n).Error)
	assert.Equal(suite.T(), int64(1), n)
}

func (suite *TaskServiceTestSuite) TestStartUnknownTask() {
	_, err := suite.f.tasks.StartTask(context.Background(), "u1", 999)
	assert.Equal(suite.T(), apierrors.KindNotFound, apierrors.KindOf(err))
	assert.True(suite.T(), errors.Is(err, ErrTaskNotFound))
}

func (suite *TaskServiceTestSuite) TestCompleteSnapshotsTierReward() {
	suite.f.createUser(suite.T(), "free", models.MembershipFree)
	suite.f.createUser(suite.T(), "paid", models.MembershipMember)
	task := suite.f.createTask(suite.T(), "Survey", "100", "150")

	free := suite.f.completeTask(suite.T(), "free", task.ID)
	paid := suite.f.completeTask(suite.T(), "paid", task.ID)

	assert.True(suite.T(), dec("100").Equal(free.RewardEarned))
	assert.True(suite.T(), dec("150").Equal(paid.RewardEarned))
	assert.NotNil(suite.T(), paid.CompletedAt)

	// Later catalog edits do not touch the snapshot
	newReward := dec("999")
	_, err := suite.f.catalog.UpdateTask(adminCtx(), task.ID, UpdateTaskInput{RewardFree: &newReward})
	suite.Require().NoError(err)

	var stored models.UserTask
	suite.Require().NoError(suite.f.db.First(&stored, free.ID).Error)
	assert.True(suite.T(), dec("100").Equal(stored.RewardEarned))

	// and approval credits the snapshot, not the edited catalog reward
	newMember := dec("500")
	_, err = suite.f.catalog.UpdateTask(adminCtx(), task.ID, UpdateTaskInput{RewardMember: &newMember})
	suite.Require().NoError(err)

	_, tx, err := suite.f.tasks.Approve(adminCtx(), free.ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), dec("100").Equal(tx.Amount), tx.Amount.String())

	_, tx, err = suite.f.tasks.Approve(adminCtx(), paid.ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), dec("150").Equal(tx.Amount), tx.Amount.String())
}

func (suite *TaskServiceTestSuite) TestMemberWithoutMemberRewardEarnsFreeReward() {
	suite.f.createUser(suite.T(), "paid", models.MembershipPremium)
	task := suite.f.createTask(suite.T(), "Survey", "80", "0")

	assignment := suite.f.completeTask(suite.T(), "paid", task.ID)
	assert.True(suite.T(), dec("80").Equal(assignment.RewardEarned))
}

func (suite *TaskServiceTestSuite) TestCompleteRequiresStart() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")

	_, err := suite.f.tasks.CompleteTask(context.Background(), "u1", task.ID, nil)
	assert.Equal(suite.T(), apierrors.KindInvalidState, apierrors.KindOf(err))
	assert.True(suite.T(), errors.Is(err, ErrTaskNotStarted))
}

func (suite *TaskServiceTestSuite) TestCompleteRejectsInvalidJSON() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	_, err := suite.f.tasks.StartTask(context.Background(), "u1", task.ID)
	suite.Require().NoError(err)

	_, err = suite.f.tasks.CompleteTask(context.Background(), "u1", task.ID, []byte(`{not json`))
	assert.Equal(suite.T(), apierrors.KindValidation, apierrors.KindOf(err))
}

func (suite *TaskServiceTestSuite) TestCompleteTwiceIsRefused() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	suite.f.completeTask(suite.T(), "u1", task.ID)

	_, err := suite.f.tasks.CompleteTask(context.Background(), "u1", task.ID, nil)
	assert.True(suite.T(), errors.Is(err, ErrNotCompletable))
}

func (suite *TaskServiceTestSuite) TestApproveWritesOneLedgerEntry() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	assignment := suite.f.completeTask(suite.T(), "u1", task.ID)

	approved, tx, err := suite.f.tasks.Approve(adminCtx(), assignment.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.UserTaskStatusApproved, approved.Status)
	assert.NotNil(suite.T(), approved.ReviewedAt)
	assert.True(suite.T(), dec("100").Equal(tx.Amount))
	assert.Equal(suite.T(), models.TransactionTypeReward, tx.Type)
	suite.Require().NotNil(tx.UserTaskID)
	assert.Equal(suite.T(), assignment.ID, *tx.UserTaskID)

	_, _, err = suite.f.tasks.Approve(adminCtx(), assignment.ID)
	assert.Equal(suite.T(), apierrors.KindInvalidState, apierrors.KindOf(err))

	assert.Equal(suite.T(), int64(1), suite.f.countTransactions(suite.T(), "u1"))
	assert.Equal(suite.T(), []string{events.RouteTaskApproved}, suite.f.events.Keys())
}

func (suite *TaskServiceTestSuite) TestApproveRequiresAdmin() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	assignment := suite.f.completeTask(suite.T(), "u1", task.ID)

	_, _, err := suite.f.tasks.Approve(context.Background(), assignment.ID)
	assert.Equal(suite.T(), apierrors.KindUnauthorized, apierrors.KindOf(err))
	assert.Equal(suite.T(), int64(0), suite.f.countTransactions(suite.T(), "u1"))
}

func (suite *TaskServiceTestSuite) TestApproveBeforeCompletion() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	assignment, err := suite.f.tasks.StartTask(context.Background(), "u1", task.ID)
	suite.Require().NoError(err)

	_, _, err = suite.f.tasks.Approve(adminCtx(), assignment.ID)
	assert.True(suite.T(), errors.Is(err, ErrNotCompleted))
}

func (suite *TaskServiceTestSuite) TestApproveZeroRewardIsRefused() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Volunteer", "0", "")
	assignment := suite.f.completeTask(suite.T(), "u1", task.ID)

	_, _, err := suite.f.tasks.Approve(adminCtx(), assignment.ID)
	assert.True(suite.T(), errors.Is(err, ErrNoReward))

	var stored models.UserTask
	suite.Require().NoError(suite.f.db.First(&stored, assignment.ID).Error)
	assert.Equal(suite.T(), models.UserTaskStatusCompleted, stored.Status)
}

type failingLedger struct{}

func (failingLedger) Append(ctx context.Context, entry LedgerEntry) (*models.Transaction, error) {
	return nil, apierrors.NewInternal("ledger.Append", "insert failed", errors.New("disk full"))
}

func (suite *TaskServiceTestSuite) TestApproveRollsBackWhenLedgerFails() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	assignment := suite.f.completeTask(suite.T(), "u1", task.ID)

	svc := NewTaskService(
		repository.NewTaskRepository(suite.f.db),
		repository.NewUserTaskRepository(suite.f.db),
		suite.f.users,
		failingLedger{},
		suite.f.events,
		suite.f.log,
	)

	_, _, err := svc.Approve(adminCtx(), assignment.ID)
	suite.Require().Error(err)
	assert.Equal(suite.T(), apierrors.KindInternal, apierrors.KindOf(err))

	var stored models.UserTask
	suite.Require().NoError(suite.f.db.First(&stored, assignment.ID).Error)
	assert.Equal(suite.T(), models.UserTaskStatusCompleted, stored.Status)
	assert.Nil(suite.T(), stored.ReviewedAt)
	assert.Empty(suite.T(), suite.f.events.Keys())
}

func (suite *TaskServiceTestSuite) TestRejectBeforeCompletion() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	assignment, err := suite.f.tasks.StartTask(context.Background(), "u1", task.ID)
	suite.Require().NoError(err)

	rejected, err := suite.f.tasks.Reject(adminCtx(), assignment.ID, "duplicate account")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.UserTaskStatusRejected, rejected.Status)
	assert.JSONEq(suite.T(), `{"rejection_reason":"duplicate account"}`, string(rejected.SubmissionData))

	// Terminal: starting again returns the rejected row
	again, err := suite.f.tasks.StartTask(context.Background(), "u1", task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.UserTaskStatusRejected, again.Status)
}

func (suite *TaskServiceTestSuite) TestRejectKeepsSubmission() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	task := suite.f.createTask(suite.T(), "Survey", "100", "")
	assignment := suite.f.completeTask(suite.T(), "u1", task.ID)

	rejected, err := suite.f.tasks.Reject(adminCtx(), assignment.ID, "blurry")
	suite.Require().NoError(err)
	assert.JSONEq(suite.T(), `{"proof":"done","rejection_reason":"blurry"}`, string(rejected.SubmissionData))

	_, err = suite.f.tasks.Reject(adminCtx(), assignment.ID, "again")
	assert.True(suite.T(), errors.Is(err, ErrAlreadyReviewed))

	_, _, err = suite.f.tasks.Approve(adminCtx(), assignment.ID)
	assert.True(suite.T(), errors.Is(err, ErrNotCompleted))
	assert.Equal(suite.T(), int64(0), suite.f.countTransactions(suite.T(), "u1"))
}

func (suite *TaskServiceTestSuite) TestRejectRequiresReason() {
	_, err := suite.f.tasks.Reject(adminCtx(), 1, "  ")
	assert.True(suite.T(), errors.Is(err, ErrReasonRequired))
}

func (suite *TaskServiceTestSuite) TestAnnotateTasks() {
	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	started := suite.f.createTask(suite.T(), "Started", "10", "")
	fresh := suite.f.createTask(suite.T(), "Fresh", "20", "")
	_, err := suite.f.tasks.StartTask(context.Background(), "u1", started.ID)
	suite.Require().NoError(err)

	annotated, err := suite.f.tasks.AnnotateTasks(context.Background(), "u1", []models.Task{*started, *fresh})
	suite.Require().NoError(err)
	suite.Require().Len(annotated, 2)
	assert.Equal(suite.T(), models.UserTaskStatusOngoing, annotated[0].Status)
	assert.NotNil(suite.T(), annotated[0].AssignmentID)
	assert.Equal(suite.T(), models.UserTaskStatusNew, annotated[1].Status)
	assert.Nil(suite.T(), annotated[1].AssignmentID)
}

func (suite *TaskServiceTestSuite) TestAssignTaskNeedsExistingUser() {
	task := suite.f.createTask(suite.T(), "Survey", "100", "")

	_, err := suite.f.tasks.AssignTask(adminCtx(), "ghost", task.ID)
	assert.True(suite.T(), errors.Is(err, ErrUserNotFound))

	suite.f.createUser(suite.T(), "u1", models.MembershipFree)
	assignment, err := suite.f.tasks.AssignTask(adminCtx(), "u1", task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "u1", assignment.UserID)

	participants, err := suite.f.tasks.ListParticipants(adminCtx(), task.ID)
	suite.Require().NoError(err)
	assert.Len(suite.T(), participants, 1)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
