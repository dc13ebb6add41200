package services

import (
	"context"
	"errors"
	"testing"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCreateDefaults(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateTask(context.Background(), CreateTaskInput{Title: "x"})
	assert.Equal(t, apierrors.KindUnauthorized, apierrors.KindOf(err))

	_, err = f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: "  "})
	assert.True(t, errors.Is(err, ErrTitleRequired))

	negative := dec("-1")
	_, err = f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: "x", RewardMember: &negative})
	assert.True(t, errors.Is(err, ErrNegativeReward))

	task, err := f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: " Survey ", RewardFree: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, "Survey", task.Title)
	assert.True(t, task.IsActive)
	assert.Equal(t, defaultIconType, task.IconType)
	assert.Equal(t, []string{models.AudienceAll}, []string(task.TargetAudience))
	assert.False(t, task.RewardMember.Valid)
}

func TestCatalogListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := false
	_, err := f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: "For everyone", Category: "Survey"})
	require.NoError(t, err)
	_, err = f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: "Students", Category: "Referral", TargetAudience: []string{"Student"}})
	require.NoError(t, err)
	_, err = f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: "Hidden", Category: "Survey", IsActive: &inactive})
	require.NoError(t, err)

	tasks, total, err := f.catalog.ListTasks(ctx, ListTasksInput{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tasks, 2)

	tasks, _, err = f.catalog.ListTasks(ctx, ListTasksInput{Category: "survey", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "For everyone", tasks[0].Title)

	tasks, total, err = f.catalog.ListTasks(ctx, ListTasksInput{Audience: "housewife", Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "For everyone", tasks[0].Title)

	tasks, total, err = f.catalog.ListTasks(ctx, ListTasksInput{Audience: "student", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tasks, 1)

	_, _, err = f.catalog.ListTasks(ctx, ListTasksInput{IncludeInactive: true})
	assert.Equal(t, apierrors.KindUnauthorized, apierrors.KindOf(err))

	tasks, total, err = f.catalog.ListTasks(adminCtx(), ListTasksInput{IncludeInactive: true, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, tasks, 3)
}

func TestCatalogUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	member := dec("15")
	task, err := f.catalog.CreateTask(adminCtx(), CreateTaskInput{Title: "Survey", RewardFree: dec("10"), RewardMember: &member})
	require.NoError(t, err)

	title := "Renamed"
	updated, err := f.catalog.UpdateTask(adminCtx(), task.ID, UpdateTaskInput{Title: &title, ClearRewardMember: true})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.False(t, updated.RewardMember.Valid)
	assert.True(t, dec("10").Equal(updated.RewardFree))

	_, err = f.catalog.UpdateTask(adminCtx(), 999, UpdateTaskInput{Title: &title})
	assert.True(t, errors.Is(err, ErrTaskNotFound))

	require.NoError(t, f.catalog.DeleteTask(adminCtx(), task.ID))
	_, err = f.catalog.GetTask(adminCtx(), task.ID)
	assert.True(t, errors.Is(err, ErrTaskNotFound))

	err = f.catalog.DeleteTask(adminCtx(), task.ID)
	assert.Equal(t, apierrors.KindNotFound, apierrors.KindOf(err))
}
