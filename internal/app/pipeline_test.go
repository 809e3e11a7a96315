package app

import (
	"bytes"
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
	"APKBackup/internal/ui"
)

func TestPipelineRunsStepsInOrder(t *testing.T) {
	var order []string
	step := func(name string) Step {
		return Step{Name: name, Category: apperrors.ErrCategorySystem, Fn: func(context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	var out bytes.Buffer
	console := ui.NewConsole(logger.NewMockLogger(), &out)
	p := NewPipeline(console, logger.NewMockLogger(), []Step{step("one"), step("two")})

	require.NoError(t, p.Execute(context.Background()))
	assert.Equal(t, []string{"one", "two"}, order)
	assert.Contains(t, out.String(), "two")
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	ran := false
	p := NewPipeline(nil, logger.NewMockLogger(), []Step{
		{
			Name:      "Create report",
			Operation: "NewReport",
			Category:  apperrors.ErrCategoryReport,
			Fn: func(context.Context) error {
				return stdErrors.New("disk full")
			},
		},
		{
			Name: "never",
			Fn: func(context.Context) error {
				ran = true
				return nil
			},
		},
	})

	err := p.Execute(context.Background())
	require.Error(t, err)
	assert.False(t, ran)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeReportGeneric, appErr.Code)
	assert.Equal(t, "NewReport", appErr.Operation)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPipelineKeepsExistingCodes(t *testing.T) {
	p := NewPipeline(nil, nil, []Step{{
		Name:     "Connect",
		Category: apperrors.ErrCategoryStorage,
		Fn: func(context.Context) error {
			return apperrors.StorageError(apperrors.CodeStorageBucket, "bucket does not exist", nil)
		},
	}})

	err := p.Execute(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageBucket))
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(nil, nil, []Step{{Name: "x", Fn: func(context.Context) error {
		t.Fatal("step must not run")
		return nil
	}}})
	assert.ErrorIs(t, p.Execute(ctx), context.Canceled)
}
