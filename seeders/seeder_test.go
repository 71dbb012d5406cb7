package seeders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"transport-request-system/internal/entities"
	"transport-request-system/internal/repositories"
	"transport-request-system/internal/routes"
	"transport-request-system/pkg/config"
)

func TestSeedApplications(t *testing.T) {
	repo := repositories.NewMemoryApplicationRepository()
	logger := zap.NewNop()
	cfg := &config.Config{Workflow: config.WorkflowConfig{StrictTransitions: true, NumberSeed: 1}}
	svc := routes.BuildServices(cfg, routes.Dependencies{Repo: repo}, &routes.Loggers{Main: logger, Application: logger, History: logger})

	require.NoError(t, SeedApplications(context.Background(), svc.Applications, 5, logger))

	apps, err := repo.GetApplications(context.Background(), entities.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, apps, 5)

	byStatus := map[entities.ApplicationStatus]int{}
	for _, app := range apps {
		byStatus[app.Status]++
	}
	assert.Equal(t, map[entities.ApplicationStatus]int{
		entities.StatusCreatedOrModified:  1,
		entities.StatusApproved:           1,
		entities.StatusAssignedToVehicle:  1,
		entities.StatusCompleted:          1,
		entities.StatusRejectedByDirector: 1,
	}, byStatus)

	history, err := repo.GetHistory(context.Background(), apps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seederActor, history[0].ChangedBy)
}
