package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/testutil"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func testDefinition(id, title string) *models.AutomationDefinition {
	return testutil.CreateTestAutomation(id, title)
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	original := testDefinition("auto-1", "Morning routine")
	require.NoError(t, store.SaveAutomation(ctx, original))
	assert.False(t, original.CreatedAt.IsZero())
	assert.False(t, original.UpdatedAt.IsZero())

	loaded, err := store.AutomationByID(ctx, "auto-1")
	require.NoError(t, err)
	assert.Equal(t, "Morning routine", loaded.Title)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, "variable", loaded.Steps[0].Type)
}

func TestPersistence_SaveRejectsEmptyID(t *testing.T) {
	store := newTestPersistence(t)

	err := store.SaveAutomation(context.Background(), &models.AutomationDefinition{})
	require.ErrorIs(t, err, persistence.ErrAutomationInvalid)
}

func TestPersistence_AutomationByIDNotFound(t *testing.T) {
	store := newTestPersistence(t)

	_, err := store.AutomationByID(context.Background(), "ghost")
	require.True(t, persistence.IsAutomationNotFound(err))
}

func TestPersistence_AutomationsSortedByID(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAutomation(ctx, testDefinition("b", "Second")))
	require.NoError(t, store.SaveAutomation(ctx, testDefinition("a", "First")))

	definitions, err := store.Automations(ctx)
	require.NoError(t, err)
	require.Len(t, definitions, 2)
	assert.Equal(t, "a", definitions[0].ID)
	assert.Equal(t, "b", definitions[1].ID)
}

func TestPersistence_AutomationByName(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAutomation(ctx, testDefinition("auto-1", "Morning routine")))

	loaded, err := store.AutomationByName(ctx, "Morning routine")
	require.NoError(t, err)
	assert.Equal(t, "auto-1", loaded.ID)

	_, err = store.AutomationByName(ctx, "Evening routine")
	require.True(t, persistence.IsAutomationNotFound(err))
}

func TestPersistence_DeleteRemovesHistory(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAutomation(ctx, testDefinition("auto-1", "Doomed")))
	require.NoError(t, store.AppendExecution(ctx, &persistence.ExecutionRecord{
		ID: "exec-1", AutomationID: "auto-1", Success: true, StartedAt: time.Now(),
	}))

	require.NoError(t, store.DeleteAutomation(ctx, "auto-1"))

	_, err := store.AutomationByID(ctx, "auto-1")
	require.True(t, persistence.IsAutomationNotFound(err))

	records, err := store.ExecutionsByAutomation(ctx, "auto-1", 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	err = store.DeleteAutomation(ctx, "auto-1")
	require.True(t, persistence.IsAutomationNotFound(err))
}

func TestPersistence_ExecutionLogNewestFirst(t *testing.T) {
	store := newTestPersistence(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)

	for i := range 3 {
		record := &persistence.ExecutionRecord{
			ID:           string(rune('a' + i)),
			AutomationID: "auto-1",
			Success:      true,
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.AppendExecution(ctx, record))
	}

	records, err := store.ExecutionsByAutomation(ctx, "auto-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[2].ID)

	limited, err := store.ExecutionsByAutomation(ctx, "auto-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPersistence_HealthCheckCreatesRoot(t *testing.T) {
	store := NewPersistence("file://" + t.TempDir() + "/nested/root")
	require.NoError(t, store.HealthCheck(context.Background()))
}
