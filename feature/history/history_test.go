package history

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"inventory-monitor/core/database"
	"inventory-monitor/core/inventory"
	"inventory-monitor/core/sink"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	char = inventory.Character(7)
	ret  = inventory.Retainer(8)
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func setupService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(setupDB(t), zap.NewNop())
	require.NoError(t, svc.Migrate())
	return svc
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func slot(scope inventory.ScopeID, kind inventory.ContainerKind, i int) inventory.SlotKey {
	return inventory.SlotKey{Scope: scope, Container: kind, Index: i}
}

func sampleBatch(id uint64, scope inventory.ScopeID) inventory.Batch {
	potion := inventory.NewStack(4551, 3)
	return inventory.Batch{
		ID:          id,
		Scope:       scope,
		CompletedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Changes: []inventory.Change{
			{Kind: inventory.ChangeAdded, To: inventory.At(slot(scope, inventory.Bag0, 2), potion), Quantity: 3, Delta: 3, BatchID: id},
			{Kind: inventory.ChangeMoved, From: inventory.At(slot(scope, inventory.Bag0, 4), potion), To: inventory.At(slot(scope, inventory.Bag1, 0), potion), Quantity: 3, BatchID: id},
		},
	}
}

func TestNewRecord(t *testing.T) {
	b := sampleBatch(5, char)
	r := NewRecord(b, b.Changes[1])

	assert.Equal(t, uint64(5), r.BatchID)
	assert.Equal(t, "character:7", r.Scope)
	assert.Equal(t, "moved", r.Kind)
	assert.Equal(t, uint32(4551), r.ItemID)
	assert.Equal(t, "bag0", r.FromContainer)
	require.NotNil(t, r.FromSlot)
	assert.Equal(t, 4, *r.FromSlot)
	assert.Equal(t, "bag1", r.ToContainer)
	require.NotNil(t, r.ToSlot)
	assert.Equal(t, 0, *r.ToSlot)

	added := NewRecord(b, b.Changes[0])
	assert.Nil(t, added.FromSlot)
	assert.Empty(t, added.FromContainer)
	assert.Zero(t, added.Flags)

	collectable := inventory.StackDescriptor{Item: inventory.ItemIdentity{ItemID: 4551, Flags: 2}, Quantity: 1}
	flagged := NewRecord(b, inventory.Change{Kind: inventory.ChangeAdded, To: inventory.At(slot(char, inventory.Bag0, 1), collectable), Quantity: 1, Delta: 1})
	assert.Equal(t, uint8(2), flagged.Flags)
}

func TestService_LastBatchID(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	last, err := svc.LastBatchID(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)

	_, err = svc.Record(ctx, sampleBatch(3, char))
	require.NoError(t, err)
	_, err = svc.Record(ctx, sampleBatch(9, ret))
	require.NoError(t, err)

	last, err = svc.LastBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), last)

	f := NewFeature(nil, sink.NewDispatcher(nil), zap.NewNop(), true, false)
	last, err = f.LastBatchID(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestService_RecordAndList(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	n, err := svc.Record(ctx, sampleBatch(1, char))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = svc.Record(ctx, sampleBatch(2, ret))
	require.NoError(t, err)

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, uint64(2), all[0].BatchID, "newest first")

	byScope, err := svc.List(ctx, Filter{Scope: &char})
	require.NoError(t, err)
	assert.Len(t, byScope, 2)

	byKind, err := svc.List(ctx, Filter{Kind: inventory.ChangeAdded, Limit: 1})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "added", byKind[0].Kind)

	byItem, err := svc.List(ctx, Filter{ItemID: 1})
	require.NoError(t, err)
	assert.Empty(t, byItem)
}

func TestService_RecordSkipsInitial(t *testing.T) {
	svc := setupService(t)
	b := sampleBatch(1, char)
	b.Initial = true

	n, err := svc.Record(context.Background(), b)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_RecordError(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewService(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `inventory_changes`").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.Record(context.Background(), sampleBatch(9, char))
	assert.ErrorContains(t, err, "failed to store batch 9")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CheckSchema(t *testing.T) {
	svc := setupService(t)
	missing, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.Empty(t, missing)

	bare := NewService(setupDB(t), zap.NewNop())
	require.NoError(t, bare.db.Exec("CREATE TABLE inventory_changes (id INTEGER PRIMARY KEY, scope TEXT)").Error)
	missing, err = bare.CheckSchema()
	require.NoError(t, err)
	assert.Contains(t, missing, "batch_id")
	assert.NotContains(t, missing, "scope")
}

func TestKinds(t *testing.T) {
	assert.NotContains(t, Kinds(false), inventory.ChangeMoved)
	assert.Len(t, Kinds(false), len(inventory.AllChangeKinds)-1)
	assert.Equal(t, inventory.AllChangeKinds, Kinds(true))
}

func TestRecorder_ThroughDispatcher(t *testing.T) {
	svc := setupService(t)
	d := sink.NewDispatcher(zap.NewNop())
	d.Subscribe(NewRecorder(svc, zap.NewNop()), Kinds(false)...)

	initial := sampleBatch(1, char)
	initial.Initial = true
	d.PublishBatch(initial)
	d.PublishBatch(sampleBatch(2, char))
	d.PublishCleared(char)
	d.Drain()

	records, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].BatchID)
	assert.Equal(t, "added", records[0].Kind)
}

func setupTestApp(t *testing.T) (*fiber.App, *Service) {
	app := fiber.New()
	svc := setupService(t)
	NewHandler(svc).RegisterRoutes(app)
	return app, svc
}

func TestHandleList(t *testing.T) {
	app, svc := setupTestApp(t)
	_, err := svc.Record(context.Background(), sampleBatch(1, char))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/history?scope=character:7&kind=moved", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Count   int            `json:"count"`
		Changes []ChangeRecord `json:"changes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "moved", body.Changes[0].Kind)
}

func TestHandleList_BadRequest(t *testing.T) {
	app, _ := setupTestApp(t)

	for _, target := range []string{
		"/history?scope=nobody",
		"/history?kind=teleported",
		"/history?item=abc",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, target)
	}
}

func TestHandleSchema(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/history/schema", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, TableName, body["table"])
}

func TestLoader(t *testing.T) {
	d := sink.NewDispatcher(zap.NewNop())

	disabled := NewFeature(nil, d, zap.NewNop(), true, false)
	assert.Equal(t, "history", disabled.Name())
	assert.False(t, disabled.IsEnabled())

	feature := NewFeature(setupDB(t), d, zap.NewNop(), true, false)
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))

	resp, err := app.Test(httptest.NewRequest("GET", "/history", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	feature.Close()
}
