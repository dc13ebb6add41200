package services

import (
	"context"
	"log/slog"
	"strings"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/mudralaya/mudralaya-api/internal/utils"
	"github.com/shopspring/decimal"
)

const defaultIconType = "group"

// CatalogService manages task definitions. Reads are open to users;
// writes need an admin principal.
type CatalogService struct {
	tasks  repository.TaskRepository
	logger *slog.Logger
}

func NewCatalogService(tasks repository.TaskRepository, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{tasks: tasks, logger: logger}
}

// ListTasksInput represents filters for listing catalog tasks
type ListTasksInput struct {
	Audience        string
	Category        string
	IncludeInactive bool
	Page            int
	PageSize        int
}

// CreateTaskInput represents input for creating a catalog task
type CreateTaskInput struct {
	Title          string
	Description    string
	Category       string
	RewardFree     decimal.Decimal
	RewardMember   *decimal.Decimal
	RewardInfo     string
	VideoLink      string
	PdfURL         string
	ActionLink     string
	IconType       string
	Steps          []string
	TargetAudience []string
	IsActive       *bool
}

// UpdateTaskInput represents a partial catalog update. Nil fields are left alone.
type UpdateTaskInput struct {
	Title             *string
	Description       *string
	Category          *string
	RewardFree        *decimal.Decimal
	RewardMember      *decimal.Decimal
	ClearRewardMember bool
	RewardInfo        *string
	VideoLink         *string
	PdfURL            *string
	ActionLink        *string
	IconType          *string
	Steps             []string
	TargetAudience    []string
	IsActive          *bool
}

// ListTasks never mutates state. Inactive tasks are only listed for admins.
// The audience filter runs in memory because tags live in a JSON column.
func (s *CatalogService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	const op = "catalog.ListTasks"

	if input.IncludeInactive {
		if _, err := requireAdmin(ctx, op); err != nil {
			return nil, 0, err
		}
	}

	filter := repository.TaskFilter{
		Category:   input.Category,
		ActiveOnly: !input.IncludeInactive,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}
	audience := strings.TrimSpace(input.Audience)
	if audience != "" {
		filter.Page, filter.PageSize = 0, 0
	}

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, apierrors.NewInternal(op, "failed to list tasks", err)
	}
	if audience == "" {
		return tasks, total, nil
	}

	matched := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.TargetsAudience(audience) {
			matched = append(matched, t)
		}
	}
	total = int64(len(matched))

	if input.PageSize > 0 {
		params := utils.NewPaginationParams(input.Page, input.PageSize)
		if params.Offset >= len(matched) {
			return []models.Task{}, total, nil
		}
		end := params.Offset + params.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[params.Offset:end]
	}
	return matched, total, nil
}

// GetTask returns an active task. Admins also see inactive ones.
func (s *CatalogService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	const op = "catalog.GetTask"

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(op, "task", ErrTaskNotFound, err)
	}
	if _, isAdmin := AdminFromContext(ctx); !task.IsActive && !isAdmin {
		return nil, apierrors.NewNotFound(op, ErrTaskNotFound)
	}
	return task, nil
}

func (s *CatalogService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	const op = "catalog.CreateTask"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrTitleRequired)
	}
	if input.RewardFree.IsNegative() || (input.RewardMember != nil && input.RewardMember.IsNegative()) {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrNegativeReward)
	}

	task := &models.Task{
		Title:          title,
		Description:    input.Description,
		Category:       strings.TrimSpace(input.Category),
		RewardFree:     input.RewardFree,
		RewardInfo:     input.RewardInfo,
		VideoLink:      input.VideoLink,
		PdfURL:         input.PdfURL,
		ActionLink:     input.ActionLink,
		IconType:       input.IconType,
		Steps:          input.Steps,
		TargetAudience: input.TargetAudience,
		IsActive:       true,
	}
	if input.RewardMember != nil {
		task.RewardMember = decimal.NewNullDecimal(*input.RewardMember)
	}
	if task.IconType == "" {
		task.IconType = defaultIconType
	}
	if len(task.TargetAudience) == 0 {
		task.TargetAudience = []string{models.AudienceAll}
	}
	if input.IsActive != nil {
		task.IsActive = *input.IsActive
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apierrors.NewInternal(op, "failed to create task", err)
	}

	s.logger.Info("task created", "task_id", task.ID, "admin", admin.Name)
	return task, nil
}

// UpdateTask edits a catalog entry. Assignments that are already completed
// keep the reward snapshotted at completion.
func (s *CatalogService) UpdateTask(ctx context.Context, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	const op = "catalog.UpdateTask"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(op, "task", ErrTaskNotFound, err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrTitleRequired)
		}
		task.Title = title
	}
	if input.RewardFree != nil {
		if input.RewardFree.IsNegative() {
			return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrNegativeReward)
		}
		task.RewardFree = *input.RewardFree
	}
	if input.ClearRewardMember {
		task.RewardMember = decimal.NullDecimal{}
	} else if input.RewardMember != nil {
		if input.RewardMember.IsNegative() {
			return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrNegativeReward)
		}
		task.RewardMember = decimal.NewNullDecimal(*input.RewardMember)
	}
	setString(&task.Description, input.Description)
	setString(&task.Category, input.Category)
	setString(&task.RewardInfo, input.RewardInfo)
	setString(&task.VideoLink, input.VideoLink)
	setString(&task.PdfURL, input.PdfURL)
	setString(&task.ActionLink, input.ActionLink)
	setString(&task.IconType, input.IconType)
	if input.Steps != nil {
		task.Steps = input.Steps
	}
	if input.TargetAudience != nil {
		task.TargetAudience = input.TargetAudience
	}
	if input.IsActive != nil {
		task.IsActive = *input.IsActive
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apierrors.NewInternal(op, "failed to update task", err)
	}

	s.logger.Info("task updated", "task_id", task.ID, "admin", admin.Name)
	return task, nil
}

// DeleteTask soft deletes a catalog entry. Assignments and ledger rows stay.
func (s *CatalogService) DeleteTask(ctx context.Context, taskID uint64) error {
	const op = "catalog.DeleteTask"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return err
	}

	deleted, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return apierrors.NewInternal(op, "failed to delete task", err)
	}
	if !deleted {
		return apierrors.NewNotFound(op, ErrTaskNotFound)
	}

	s.logger.Info("task deleted", "task_id", taskID, "admin", admin.Name)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
