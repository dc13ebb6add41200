package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type UserTaskRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repo  UserTaskRepository
	users UserRepository
	task  *models.Task
}

func (s *UserTaskRepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: database.NowUTC,
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(db.AutoMigrate(database.Models()...))

	s.db = db
	s.repo = NewUserTaskRepository(db)
	s.users = NewUserRepository(db)

	s.Require().NoError(s.users.EnsureExists(context.Background(), &models.User{ID: "u1", MembershipType: models.MembershipFree}))
	s.task = &models.Task{
		Title:      "Fill survey",
		RewardFree: decimal.RequireFromString("100"),
		IsActive:   true,
	}
	s.Require().NoError(NewTaskRepository(db).Create(context.Background(), s.task))
}

func (s *UserTaskRepositoryTestSuite) TearDownTest() {
	sqlDB, _ := s.db.DB()
	sqlDB.Close()
}

func TestUserTaskRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(UserTaskRepositoryTestSuite))
}

func (s *UserTaskRepositoryTestSuite) newAssignment() *models.UserTask {
	return &models.UserTask{
		UserID:       "u1",
		TaskID:       s.task.ID,
		Status:       models.UserTaskStatusOngoing,
		RewardEarned: decimal.RequireFromString("100"),
	}
}

func (s *UserTaskRepositoryTestSuite) TestFindOrCreateKeepsFirstRow() {
	ctx := context.Background()

	first, created, err := s.repo.FindOrCreate(ctx, s.newAssignment())
	s.Require().NoError(err)
	s.True(created)
	s.NotZero(first.ID)

	second, created, err := s.repo.FindOrCreate(ctx, s.newAssignment())
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)

	var count int64
	s.db.Model(&models.UserTask{}).Count(&count)
	s.Equal(int64(1), count)
}

func (s *UserTaskRepositoryTestSuite) TestTransitionStatusGuardsSourceState() {
	ctx := context.Background()
	assignment, _, err := s.repo.FindOrCreate(ctx, s.newAssignment())
	s.Require().NoError(err)

	ok, err := s.repo.TransitionStatus(ctx, assignment.ID,
		[]models.UserTaskStatus{models.UserTaskStatusCompleted}, models.UserTaskStatusApproved, nil)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.repo.MarkCompleted(ctx, assignment.ID, decimal.RequireFromString("100"), []byte(`{"answer":"yes"}`), database.NowUTC())
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.repo.MarkCompleted(ctx, assignment.ID, decimal.RequireFromString("100"), nil, database.NowUTC())
	s.Require().NoError(err)
	s.False(ok)

	stored, err := s.repo.FindByID(ctx, assignment.ID, "Task")
	s.Require().NoError(err)
	s.Equal(models.UserTaskStatusCompleted, stored.Status)
	s.JSONEq(`{"answer":"yes"}`, string(stored.SubmissionData))
	s.NotNil(stored.CompletedAt)
	s.Require().NotNil(stored.Task)
	s.Equal("Fill survey", stored.Task.Title)
}

func (s *UserTaskRepositoryTestSuite) TestListFiltersByStatus() {
	ctx := context.Background()
	_, _, err := s.repo.FindOrCreate(ctx, s.newAssignment())
	s.Require().NoError(err)

	completed := models.UserTaskStatusCompleted
	rows, total, err := s.repo.List(ctx, UserTaskFilter{Status: &completed})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(rows)

	ongoing := models.UserTaskStatusOngoing
	rows, total, err = s.repo.List(ctx, UserTaskFilter{Status: &ongoing, UserID: "u1"})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(rows, 1)
	s.NotNil(rows[0].User)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestTransitionStatusIssuesGuardedUpdate(t *testing.T) {
	statement := `UPDATE "user_tasks" SET .* WHERE \(?id = \$\d+ AND status IN \(`

	t.Run("lost race", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(statement).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := NewUserTaskRepository(db).TransitionStatus(context.Background(), 7,
			[]models.UserTaskStatus{models.UserTaskStatusCompleted}, models.UserTaskStatusApproved, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("won race", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(statement).WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := NewUserTaskRepository(db).TransitionStatus(context.Background(), 7,
			[]models.UserTaskStatus{models.UserTaskStatusCompleted}, models.UserTaskStatusApproved, nil)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepositorySetVerifiedUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "is_verified"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewUserRepository(db).SetVerified(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
