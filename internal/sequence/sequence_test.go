package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite has a single writer; one connection keeps transactions
	// from tripping over each other's busy locks in tests.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Counter{}))
	return db
}

func TestNextStartsAtOneAndIncrements(t *testing.T) {
	db := setupDB(t)
	a := New(db, "quotes", 0)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := a.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	var c models.Counter
	require.NoError(t, db.Where("name = ?", "quotes").First(&c).Error)
	require.Equal(t, int64(5), c.Value)
}

func TestNextContinuesFromExistingCounter(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&models.Counter{Name: "quotes", Value: 41}).Error)

	got, err := New(db, "quotes", 0).Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}

func TestNextIsIndependentPerName(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	a := New(db, "quotes", 0)
	b := New(db, "receipts", 0)

	n1, err := a.Next(ctx)
	require.NoError(t, err)
	n2, err := b.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n1)
	require.Equal(t, int64(1), n2)
}

// N concurrent callers must receive exactly {1..N}: no duplicates, no
// gaps.
func TestNextConcurrentAllocationsAreUnique(t *testing.T) {
	db := setupDB(t)
	a := New(db, "quotes", 10)

	const workers = 8
	const perWorker = 5
	results := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n, err := a.Next(context.Background())
				if err != nil {
					t.Errorf("allocate: %v", err)
					return
				}
				results <- n
			}
		}()
	}
	wg.Wait()
	close(results)

	var got []int64
	for n := range results {
		got = append(got, n)
	}
	require.Len(t, got, workers*perWorker)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, n := range got {
		require.Equal(t, int64(i+1), n, "sequence must be gapless and duplicate-free")
	}
}

func TestNextHonorsContextCancellation(t *testing.T) {
	db := setupDB(t)
	a := New(db, "quotes", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Next(ctx)
	require.Error(t, err)
}

func TestAdvanceRaisesCounterAndNextFollows(t *testing.T) {
	db := setupDB(t)
	a := New(db, "quotes", 0)
	ctx := context.Background()

	require.NoError(t, a.Advance(ctx, 7))
	got, err := a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(8), got)
}

func TestAdvanceNeverMovesBackwards(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&models.Counter{Name: "quotes", Value: 41}).Error)
	a := New(db, "quotes", 0)
	ctx := context.Background()

	require.NoError(t, a.Advance(ctx, 5))
	got, err := a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}
