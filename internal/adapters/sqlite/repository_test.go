package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tradejournal-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func newTrade(id, account string, date time.Time) *domain.TradeRecord {
	return &domain.TradeRecord{
		ID:             id,
		AccountID:      account,
		Date:           date,
		Symbol:         "ETHUSDT",
		Direction:      domain.Long,
		ProjectedEntry: 2000,
		ProjectedSL:    domain.Float(1900),
		ProjectedTP:    domain.Float(2200),
		DidHitTP:       domain.TPUnknown,
		Source:         domain.SourceManual,
	}
}

func TestRepository_CreateAndFind(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(*Repository) error
		trade   *domain.TradeRecord
		wantErr error
	}{
		{
			name:  "planned trade with nullable fields unset",
			trade: newTrade("t-1", "acc-1", d),
		},
		{
			name: "closed trade round-trips every column",
			trade: func() *domain.TradeRecord {
				tr := newTrade("t-2", "acc-1", d)
				tr.Direction = domain.Short
				tr.Quantity = domain.Float(0.5)
				tr.ActualEntry = domain.Float(1995)
				tr.ActualExit = domain.Float(1900)
				tr.DidHitTP = domain.TPNotHit
				tr.ActualPL = domain.Float(47.5)
				tr.MaxPossiblePL = domain.Float(95)
				tr.Efficiency = domain.Float(50)
				tr.Notes = "faded the open"
				tr.Source = domain.SourceBinance
				return tr
			}(),
		},
		{
			name: "duplicate id",
			setup: func(r *Repository) error {
				return r.Create(context.Background(), newTrade("dup", "acc-1", d))
			},
			trade:   newTrade("dup", "acc-1", d),
			wantErr: ports.ErrDuplicateEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, cleanup := setupTestDB(t)
			defer cleanup()

			ctx := context.Background()

			if tt.setup != nil {
				require.NoError(t, tt.setup(repo))
			}

			err := repo.Create(ctx, tt.trade)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, tt.trade.CreatedAt.IsZero())

			found, err := repo.FindByID(ctx, tt.trade.ID)
			require.NoError(t, err)
			require.NotNil(t, found)

			assert.Equal(t, tt.trade.AccountID, found.AccountID)
			assert.True(t, tt.trade.Date.Equal(found.Date))
			assert.Equal(t, tt.trade.Symbol, found.Symbol)
			assert.Equal(t, tt.trade.Direction, found.Direction)
			assert.Equal(t, tt.trade.ProjectedEntry, found.ProjectedEntry)
			assert.Equal(t, tt.trade.ProjectedSL, found.ProjectedSL)
			assert.Equal(t, tt.trade.ProjectedTP, found.ProjectedTP)
			assert.Equal(t, tt.trade.Quantity, found.Quantity)
			assert.Equal(t, tt.trade.ActualEntry, found.ActualEntry)
			assert.Equal(t, tt.trade.ActualExit, found.ActualExit)
			assert.Equal(t, tt.trade.DidHitTP, found.DidHitTP)
			assert.Equal(t, tt.trade.ActualPL, found.ActualPL)
			assert.Equal(t, tt.trade.MaxPossiblePL, found.MaxPossiblePL)
			assert.Equal(t, tt.trade.Efficiency, found.Efficiency)
			assert.Equal(t, tt.trade.Notes, found.Notes)
			assert.Equal(t, tt.trade.Source, found.Source)
			assert.Nil(t, found.DeletedAt)
		})
	}
}

func TestRepository_FindByIDMissing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	found, err := repo.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_Update(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(*Repository) error
		trade   *domain.TradeRecord
		update  func(*domain.TradeRecord)
		wantErr error
	}{
		{
			name: "close trade",
			setup: func(r *Repository) error {
				return r.Create(context.Background(), newTrade("t-1", "acc-1", d))
			},
			trade: newTrade("t-1", "acc-1", d),
			update: func(tr *domain.TradeRecord) {
				tr.ActualEntry = domain.Float(2000)
				tr.ActualExit = domain.Float(2100)
				tr.ActualPL = domain.Float(100)
				tr.MaxPossiblePL = domain.Float(200)
				tr.Efficiency = domain.Float(50)
				tr.DidHitTP = domain.TPNotHit
			},
		},
		{
			name:    "update non-existent trade",
			trade:   newTrade("missing", "acc-1", d),
			update:  func(tr *domain.TradeRecord) { tr.Notes = "x" },
			wantErr: ports.ErrNotFound,
		},
		{
			name: "update deleted trade",
			setup: func(r *Repository) error {
				if err := r.Create(context.Background(), newTrade("gone", "acc-1", d)); err != nil {
					return err
				}
				return r.SoftDelete(context.Background(), "gone")
			},
			trade:   newTrade("gone", "acc-1", d),
			update:  func(tr *domain.TradeRecord) { tr.Notes = "x" },
			wantErr: ports.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, cleanup := setupTestDB(t)
			defer cleanup()

			ctx := context.Background()

			if tt.setup != nil {
				require.NoError(t, tt.setup(repo))
			}

			tt.update(tt.trade)

			err := repo.Update(ctx, tt.trade)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			found, err := repo.FindByID(ctx, tt.trade.ID)
			require.NoError(t, err)
			require.NotNil(t, found)

			assert.True(t, found.IsClosed())
			assert.Equal(t, tt.trade.ActualExit, found.ActualExit)
			assert.Equal(t, tt.trade.ActualPL, found.ActualPL)
			assert.Equal(t, tt.trade.Efficiency, found.Efficiency)
			assert.Equal(t, tt.trade.DidHitTP, found.DidHitTP)
		})
	}
}

func TestRepository_FindByAccount(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTrade("old", "acc-1", d)))
	require.NoError(t, repo.Create(ctx, newTrade("new", "acc-1", d.AddDate(0, 0, 2))))
	require.NoError(t, repo.Create(ctx, newTrade("mid", "acc-1", d.AddDate(0, 0, 1))))
	require.NoError(t, repo.Create(ctx, newTrade("other", "acc-2", d)))
	require.NoError(t, repo.Create(ctx, newTrade("deleted", "acc-1", d)))
	require.NoError(t, repo.SoftDelete(ctx, "deleted"))

	trades, err := repo.FindByAccount(ctx, "acc-1")
	require.NoError(t, err)
	ids := make([]string, len(trades))
	for i, tr := range trades {
		ids[i] = tr.ID
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)

	all, err := repo.FindByAccount(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := repo.FindByAccount(ctx, "acc-404")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRepository_SoftDelete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fixed := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	require.NoError(t, repo.Create(ctx, newTrade("t-1", "acc-1", fixed)))
	require.NoError(t, repo.SoftDelete(ctx, "t-1"))

	found, err := repo.FindByID(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, found, "soft-deleted rows stay readable by ID")
	require.NotNil(t, found.DeletedAt)
	assert.True(t, fixed.Equal(*found.DeletedAt))

	assert.ErrorIs(t, repo.SoftDelete(ctx, "t-1"), ports.ErrNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, "missing"), ports.ErrNotFound)
}
