package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdash/internal/orders"
	"orderdash/internal/pipeline"
	"orderdash/pkg/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dataset(loadedAt time.Time) pipeline.Dataset {
	raw := []models.OrderRecord{
		models.NewOrderRecord(day(1), "Acme", "A", 5),
		models.NewOrderRecord(day(2), "Acme", "B", 3),
	}
	return pipeline.Dataset{Rows: orders.Complete(raw), RawRows: 2, Synthesized: 2, LoadedAt: loadedAt}
}

func TestNewSessionAppliesDefaults(t *testing.T) {
	s := New("id", dataset(day(1)))
	v := s.Snapshot()

	assert.False(t, v.Dirty)
	assert.Equal(t, day(1), v.Defaults.StartDate)
	assert.Equal(t, day(2), v.Defaults.EndDate)
	assert.Equal(t, []string{"A", "B"}, v.Defaults.Warehouses)
	assert.Len(t, v.Rows, 4)
	assert.Equal(t, models.Summary{TotalOrders: 8, AvgOrdersPerDay: 4}, v.Summary)
}

func TestStageApply(t *testing.T) {
	s := New("id", dataset(day(1)))

	changed := s.Stage(models.NewFilterSpec(day(1), day(1), []string{"A", "B"}))
	require.True(t, changed)
	assert.True(t, s.Dirty())

	before := s.Snapshot()
	assert.Len(t, before.Rows, 4, "staging does not recompute")

	v := s.Apply()
	assert.False(t, v.Dirty)
	assert.Len(t, v.Rows, 2)
	assert.Equal(t, models.Summary{TotalOrders: 5, AvgOrdersPerDay: 5}, v.Summary)
}

func TestStageSameSpecIsClean(t *testing.T) {
	s := New("id", dataset(day(1)))
	defaults := s.Snapshot().Defaults

	changed := s.Stage(models.NewFilterSpec(defaults.StartDate, defaults.EndDate, []string{"B", "A"}))

	assert.False(t, changed)
	assert.False(t, s.Dirty())
}

func TestReset(t *testing.T) {
	s := New("id", dataset(day(1)))
	s.Stage(models.NewFilterSpec(day(2), day(2), []string{"B"}))
	s.Apply()

	v := s.Reset()

	assert.False(t, v.Dirty)
	assert.True(t, v.Spec.Equal(v.Defaults))
	assert.Len(t, v.Rows, 4)
}

func TestSyncKeepsAppliedSpec(t *testing.T) {
	s := New("id", dataset(day(1)))
	s.Stage(models.NewFilterSpec(day(1), day(1), []string{"A"}))
	s.Apply()

	s.Sync(dataset(day(2)))
	v := s.Snapshot()

	assert.Equal(t, day(2), v.LoadedAt)
	assert.Len(t, v.Rows, 1)
	assert.Equal(t, "A", v.Rows[0].WarehouseID)
}

func TestStoreResolve(t *testing.T) {
	store := NewStore()
	ds := dataset(day(1))

	first, created := store.Resolve("", ds)
	require.True(t, created)
	_, err := uuid.Parse(first.ID)
	require.NoError(t, err)

	again, created := store.Resolve(first.ID, ds)
	assert.False(t, created)
	assert.Same(t, first, again)

	_, created = store.Resolve("not-a-uuid", ds)
	assert.True(t, created)
	_, created = store.Resolve(uuid.NewString(), ds)
	assert.True(t, created)

	assert.Equal(t, 3, store.Len())
	store.Delete(first.ID)
	assert.Equal(t, 2, store.Len())
}

func TestStoreSweep(t *testing.T) {
	store := NewStore()
	store.Create(dataset(day(1)))
	store.Create(dataset(day(1)))

	assert.Equal(t, 0, store.Sweep(time.Now(), time.Hour))
	assert.Equal(t, 2, store.Sweep(time.Now().Add(2*time.Hour), time.Hour))
	assert.Equal(t, 0, store.Len())
}
