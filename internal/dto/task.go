package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CreateTaskRequest represents the admin body for a new catalog task.
// Type is accepted as an alias of Category.
type CreateTaskRequest struct {
	Title          string           `json:"title" binding:"required"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Type           string           `json:"type"`
	RewardFree     decimal.Decimal  `json:"reward_free"`
	RewardMember   *decimal.Decimal `json:"reward_member"`
	RewardInfo     string           `json:"reward_info"`
	VideoLink      string           `json:"video_link"`
	PdfURL         string           `json:"pdf_url"`
	ActionLink     string           `json:"action_link"`
	IconType       string           `json:"icon_type"`
	Steps          []string         `json:"steps"`
	TargetAudience []string         `json:"target_audience"`
	IsActive       *bool            `json:"is_active"`
}

// UpdateTaskRequest represents a partial catalog update
type UpdateTaskRequest struct {
	Title             *string          `json:"title"`
	Description       *string          `json:"description"`
	Category          *string          `json:"category"`
	RewardFree        *decimal.Decimal `json:"reward_free"`
	RewardMember      *decimal.Decimal `json:"reward_member"`
	ClearRewardMember bool             `json:"clear_reward_member"`
	RewardInfo        *string          `json:"reward_info"`
	VideoLink         *string          `json:"video_link"`
	PdfURL            *string          `json:"pdf_url"`
	ActionLink        *string          `json:"action_link"`
	IconType          *string          `json:"icon_type"`
	Steps             []string         `json:"steps"`
	TargetAudience    []string         `json:"target_audience"`
	IsActive          *bool            `json:"is_active"`
}

// CompleteTaskRequest carries the user's proof of work, stored verbatim
type CompleteTaskRequest struct {
	SubmissionData json.RawMessage `json:"submission_data"`
}

// RejectRequest is the body of assignment rejections
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AssignTaskRequest lets an admin start a task for a user
type AssignTaskRequest struct {
	UserID string `json:"user_id" binding:"required"`
}
