package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/steemit/birthday-payments/internal/models"
	"github.com/steemit/birthday-payments/pkg/config"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newPayment(i int, method models.Method, currency models.Currency, status models.Status, amount float64) *models.Payment {
	p := &models.Payment{
		Name:     fmt.Sprintf("Donor %d", i),
		Email:    fmt.Sprintf("donor%d@example.com", i),
		Amount:   amount,
		Currency: currency,
		Method:   method,
		Status:   status,
	}
	if method.IsCrypto() {
		p.Exchange = models.ExchangeBinance
		p.CryptoSymbol = "USDT"
		p.WalletAddress = "TQ1234567890"
	}
	p.Stamp(primitive.NewObjectID().Hex(), baseTime.Add(time.Duration(i)*time.Minute))
	return p
}

func strPtr(s string) *string {
	return &s
}

// runStoreContract exercises the behaviour every PaymentStore must share
func runStoreContract(t *testing.T, open func(t *testing.T) PaymentStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := open(t)
		p := newPayment(1, models.MethodMobileMoney, models.CurrencyGHS, models.StatusPending, 25.5)
		p.Message = "Happy birthday"
		require.NoError(t, store.Create(ctx, p))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, 25.5, got.Amount)
		assert.Equal(t, "Happy birthday", got.Message)
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
		assert.Nil(t, got.Reference)
	})

	t.Run("get unknown id", func(t *testing.T) {
		store := open(t)
		_, err := store.Get(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sparse unique reference", func(t *testing.T) {
		store := open(t)

		first := newPayment(1, models.MethodBankTransfer, models.CurrencyUSD, models.StatusPending, 10)
		first.Reference = strPtr("REF-1")
		require.NoError(t, store.Create(ctx, first))

		dup := newPayment(2, models.MethodBankTransfer, models.CurrencyUSD, models.StatusPending, 10)
		dup.Reference = strPtr("REF-1")
		assert.ErrorIs(t, store.Create(ctx, dup), ErrDuplicateReference)

		for i := 3; i < 8; i++ {
			require.NoError(t, store.Create(ctx, newPayment(i, models.MethodMobileMoney, models.CurrencyGHS, models.StatusPending, 1)))
		}
	})

	t.Run("list pages newest first with filters", func(t *testing.T) {
		store := open(t)
		var ids []string
		for i := 0; i < 5; i++ {
			p := newPayment(i, models.MethodMobileMoney, models.CurrencyGHS, models.StatusPending, float64(i))
			require.NoError(t, store.Create(ctx, p))
			ids = append(ids, p.ID)
		}
		other := newPayment(10, models.MethodCryptoOKX, models.CurrencyBTC, models.StatusCompleted, 3)
		require.NoError(t, store.Create(ctx, other))

		page, total, err := store.List(ctx, PaymentQuery{
			Filter: PaymentFilter{Method: models.MethodMobileMoney},
			Skip:   2,
			Limit:  2,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, ids[2], page[0].ID)
		assert.Equal(t, ids[1], page[1].ID)

		page, total, err = store.List(ctx, PaymentQuery{
			Filter: PaymentFilter{Status: models.StatusCompleted, Currency: models.CurrencyBTC},
			Limit:  20,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, page, 1)
		assert.Equal(t, other.ID, page[0].ID)

		page, total, err = store.List(ctx, PaymentQuery{Skip: 100, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.Empty(t, page)
	})

	t.Run("update mutable fields", func(t *testing.T) {
		store := open(t)
		p := newPayment(1, models.MethodMobileMoney, models.CurrencyGHS, models.StatusPending, 25)
		p.TxHash = "0xold"
		require.NoError(t, store.Create(ctx, p))

		p.Status = models.StatusCompleted
		p.Amount = 30
		p.TxHash = ""
		p.Touch(baseTime.Add(time.Hour))

		got, err := store.Update(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, 30.0, got.Amount)
		assert.Equal(t, "", got.TxHash)
		assert.Equal(t, p.Name, got.Name)
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))

		missing := newPayment(2, models.MethodMobileMoney, models.CurrencyGHS, models.StatusPending, 1)
		_, err = store.Update(ctx, missing)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := open(t)
		p := newPayment(1, models.MethodMobileMoney, models.CurrencyGHS, models.StatusPending, 25)
		require.NoError(t, store.Create(ctx, p))

		require.NoError(t, store.Delete(ctx, p.ID))
		assert.ErrorIs(t, store.Delete(ctx, p.ID), ErrNotFound)

		_, err := store.Get(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("summary", func(t *testing.T) {
		store := open(t)

		empty, err := store.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SummaryOverview{}, empty.Overview)
		assert.Empty(t, empty.ByMethod)
		assert.NotNil(t, empty.ByMethod)
		assert.Empty(t, empty.ByCurrency)

		require.NoError(t, store.Create(ctx, newPayment(1, models.MethodMobileMoney, models.CurrencyGHS, models.StatusCompleted, 50)))
		one, err := store.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SummaryOverview{
			TotalPayments:     1,
			TotalAmount:       50,
			AverageAmount:     50,
			CompletedPayments: 1,
		}, one.Overview)

		require.NoError(t, store.Create(ctx, newPayment(2, models.MethodCryptoBinance, models.CurrencyUSDT, models.StatusPending, 100)))
		require.NoError(t, store.Create(ctx, newPayment(3, models.MethodMobileMoney, models.CurrencyGHS, models.StatusFailed, 30)))

		summary, err := store.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.Overview.TotalPayments)
		assert.InDelta(t, 180, summary.Overview.TotalAmount, 1e-9)
		assert.InDelta(t, 60, summary.Overview.AverageAmount, 1e-9)
		assert.Equal(t, int64(1), summary.Overview.CompletedPayments)
		assert.Equal(t, int64(1), summary.Overview.PendingPayments)

		assert.Equal(t, []models.Breakdown{
			{Key: string(models.MethodCryptoBinance), Count: 1, TotalAmount: 100},
			{Key: string(models.MethodMobileMoney), Count: 2, TotalAmount: 80},
		}, summary.ByMethod)
		assert.Equal(t, []models.Breakdown{
			{Key: string(models.CurrencyUSDT), Count: 1, TotalAmount: 100},
			{Key: string(models.CurrencyGHS), Count: 2, TotalAmount: 80},
		}, summary.ByCurrency)
	})
}

func TestPaymentRepository(t *testing.T) {
	runStoreContract(t, func(t *testing.T) PaymentStore {
		store, err := Open(context.Background(), &config.DatabaseConfig{
			Driver: config.DriverSQLite,
			URL:    ":memory:",
		}, "ERROR")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

// TestMongoStore runs against a real server when MONGODB_TEST_URI is set
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	runStoreContract(t, func(t *testing.T) PaymentStore {
		store, err := NewMongoStore(context.Background(), uri)
		require.NoError(t, err)
		_, err = store.collection.DeleteMany(context.Background(), map[string]interface{}{})
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "cassandra"}, "ERROR")
	assert.Error(t, err)
}
