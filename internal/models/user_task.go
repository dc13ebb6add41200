package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type UserTaskStatus string

const (
	// UserTaskStatusNew is never stored; it describes a task the user has not started.
	UserTaskStatusNew       UserTaskStatus = "new"
	UserTaskStatusPending   UserTaskStatus = "pending"
	UserTaskStatusOngoing   UserTaskStatus = "ongoing"
	UserTaskStatusCompleted UserTaskStatus = "completed"
	UserTaskStatusApproved  UserTaskStatus = "approved"
	UserTaskStatusRejected  UserTaskStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s UserTaskStatus) IsTerminal() bool {
	return s == UserTaskStatusApproved || s == UserTaskStatusRejected
}

var ErrUnknownUserTaskStatus = errors.New("unknown task status")

// ParseUserTaskStatus accepts the stored statuses only; "new" is never a row.
func ParseUserTaskStatus(raw string) (UserTaskStatus, error) {
	switch s := UserTaskStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case UserTaskStatusPending, UserTaskStatusOngoing, UserTaskStatusCompleted,
		UserTaskStatusApproved, UserTaskStatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUserTaskStatus, raw)
}

// InFlightStatuses hold rewards that are promised but not yet in the ledger.
var InFlightStatuses = []UserTaskStatus{
	UserTaskStatusPending,
	UserTaskStatusOngoing,
	UserTaskStatusCompleted,
}

// UserTask is a user's assignment to a catalog task. (user_id, task_id) is unique.
type UserTask struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	UserID         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_tasks_user_task" json:"user_id"`
	TaskID         uint64          `gorm:"not null;uniqueIndex:idx_user_tasks_user_task;index" json:"task_id"`
	Status         UserTaskStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	RewardEarned   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"reward_earned"`
	SubmissionData datatypes.JSON  `json:"submission_data,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relations
	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (UserTask) TableName() string {
	return "user_tasks"
}
