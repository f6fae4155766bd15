package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/repository"
	"github.com/example/maintdesk/backend/internal/service"
)

func TestSeed_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	svc := service.NewReferenceService(repository.NewMemoryStore())
	require.NoError(t, svc.Seed(ctx))
	require.NoError(t, svc.Seed(ctx))

	materials, err := svc.ListMaterials(ctx)
	require.NoError(t, err)
	assert.Len(t, materials, len(models.DefaultMaterials))
	assert.Equal(t, "A001", materials[0].Code)

	staff, err := svc.ListActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 3)
	assert.Equal(t, "Staff A", staff[0].Name)
}

func TestImportMaterials(t *testing.T) {
	ctx := context.Background()
	svc := service.NewReferenceService(newStore(t))

	n, err := svc.ImportMaterials(ctx, admin, []models.Material{
		{Code: " P004 ", Name: "Bottle Trap"},
		{Code: "Z001", Name: "Silicone Sealant"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	materials, err := svc.ListMaterials(ctx)
	require.NoError(t, err)
	assert.Len(t, materials, len(models.DefaultMaterials)+1)
	names := map[string]string{}
	for _, m := range materials {
		names[m.Code] = m.Name
	}
	assert.Equal(t, "Bottle Trap", names["P004"])
	assert.Equal(t, "Silicone Sealant", names["Z001"])
}

func TestImportMaterials_Rejects(t *testing.T) {
	ctx := context.Background()
	svc := service.NewReferenceService(newStore(t))

	_, err := svc.ImportMaterials(ctx, supervisor, []models.Material{{Code: "Z001", Name: "x"}})
	assert.True(t, apperr.IsPermissionDenied(err))

	_, err = svc.ImportMaterials(ctx, admin, []models.Material{{Code: "Z001"}})
	assert.True(t, apperr.IsValidation(err))
}

func TestSeed_KeepsImportedNames(t *testing.T) {
	ctx := context.Background()
	svc := service.NewReferenceService(newStore(t))

	_, err := svc.ImportMaterials(ctx, admin, []models.Material{{Code: "A001", Name: "AC Filter 24x24"}})
	require.NoError(t, err)
	require.NoError(t, svc.Seed(ctx), "seed runs again on every start")

	materials, err := svc.ListMaterials(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, materials)
	assert.Equal(t, models.Material{Code: "A001", Name: "AC Filter 24x24"}, materials[0])
	assert.Len(t, materials, len(models.DefaultMaterials))
}

func TestImportMaterials_RepeatedCodeLastWins(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := service.NewReferenceService(store)

	n, err := svc.ImportMaterials(ctx, admin, []models.Material{
		{Code: "Z001", Name: "Sealant"},
		{Code: "Z002", Name: "Grout"},
		{Code: "Z001", Name: "Silicone Sealant"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := store.FindMaterials(ctx, []string{"Z001", "Z002"})
	require.NoError(t, err)
	assert.Equal(t, "Silicone Sealant", found["Z001"].Name)
	assert.Equal(t, "Grout", found["Z002"].Name)
}
