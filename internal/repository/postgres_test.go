package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
)

func newTestRepo(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func uniquePhone(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("+9190%08d", time.Now().UnixNano()%100000000)
}

func seedAccount(t *testing.T, repo *PostgresRepository) (*model.Retailer, *model.Customer) {
	t.Helper()
	ctx := context.Background()

	ret, err := repo.CreateRetailer(ctx, uniquePhone(t), "Sharma Stores", "MG Road")
	require.NoError(t, err)

	cust, err := repo.CreateCustomer(ctx, model.Customer{RetailerID: ret.ID, Name: "Ravi", Phone: uniquePhone(t)})
	require.NoError(t, err)

	return ret, cust
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}))
	assert.True(t, isRetryable(fmt.Errorf("dial: %w", errors.New("connection refused"))))
	assert.False(t, isRetryable(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, isRetryable(&ledger.ExceedsBalanceError{Amount: 2, Outstanding: 1}))
}

func TestWithRetry(t *testing.T) {
	r := &PostgresRepository{delays: []time.Duration{0, 0}}

	calls := 0
	err := r.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = r.withRetry(context.Background(), func() error {
		calls++
		return ErrCustomerNotFound
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.Equal(t, 1, calls)
}

func TestRecordCreditAndPayment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ret, cust := seedAccount(t, repo)

	entry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due, reminder, err := ledger.DueDates(entry, 30)
	require.NoError(t, err)
	days := 30

	_, after, err := repo.RecordCredit(ctx, model.LedgerEvent{
		RetailerID: ret.ID, CustomerID: cust.ID, Amount: 10000,
		EntryDate: entry, DueDays: &days, DueDate: &due, ReminderDate: &reminder,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), after)

	_, after, err = repo.RecordPayment(ctx, model.LedgerEvent{
		RetailerID: ret.ID, CustomerID: cust.ID, Amount: 4000, EntryDate: entry.AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), after)

	_, _, err = repo.RecordPayment(ctx, model.LedgerEvent{
		RetailerID: ret.ID, CustomerID: cust.ID, Amount: 6001, EntryDate: entry.AddDate(0, 0, 6),
	})
	var exceeds *ledger.ExceedsBalanceError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, int64(6000), exceeds.Outstanding)

	bal, err := repo.GetBalance(ctx, ret.ID, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), bal)

	events, err := repo.ListEvents(ctx, ret.ID, cust.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventTypePayment, events[0].Type)

	accounts, err := repo.ListAccounts(ctx, ret.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Len(t, accounts[0].CreditEvents, 1)

	debtors := ledger.BuildDebtorList(accounts, ledger.DefaultSortKey, entry.AddDate(0, 0, 31))
	require.Len(t, debtors, 1)
	assert.Equal(t, int64(6000), debtors[0].Outstanding)
	require.NotNil(t, debtors[0].Ageing)
	assert.Equal(t, ledger.BucketOverdue0To7, debtors[0].Ageing.Bucket)
}

func TestRecordPayment_WrongRetailer(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, cust := seedAccount(t, repo)
	other, _ := seedAccount(t, repo)

	_, _, err := repo.RecordPayment(ctx, model.LedgerEvent{
		RetailerID: other.ID, CustomerID: cust.ID, Amount: 1, EntryDate: time.Now(),
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestRecordPayment_Concurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ret, cust := seedAccount(t, repo)

	_, _, err := repo.RecordCredit(ctx, model.LedgerEvent{
		RetailerID: ret.ID, CustomerID: cust.ID, Amount: 100, EntryDate: time.Now(),
	})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.RecordPayment(ctx, model.LedgerEvent{
				RetailerID: ret.ID, CustomerID: cust.ID, Amount: 60, EntryDate: time.Now(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ledger.ErrExceedsBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)

	bal, err := repo.GetBalance(ctx, ret.ID, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), bal)
}

func TestCreateDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ret, cust := seedAccount(t, repo)

	_, err := repo.CreateRetailer(ctx, ret.Phone, "Other", "")
	assert.ErrorIs(t, err, ErrRetailerExists)

	_, err = repo.CreateCustomer(ctx, model.Customer{RetailerID: ret.ID, Name: "Dup", Phone: cust.Phone})
	assert.ErrorIs(t, err, ErrCustomerExists)

	_, err = repo.GetCustomer(ctx, ret.ID+1_000_000, cust.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerBalances(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	phone := uniquePhone(t)
	for _, amount := range []int64{5000, 12000} {
		ret, err := repo.CreateRetailer(ctx, uniquePhone(t), "Shop", "")
		require.NoError(t, err)
		cust, err := repo.CreateCustomer(ctx, model.Customer{RetailerID: ret.ID, Name: "Ravi", Phone: phone})
		require.NoError(t, err)
		_, _, err = repo.RecordCredit(ctx, model.LedgerEvent{
			RetailerID: ret.ID, CustomerID: cust.ID, Amount: amount, EntryDate: time.Now(),
		})
		require.NoError(t, err)
	}

	balances, err := repo.CustomerBalances(ctx, phone)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	var total int64
	for _, b := range balances {
		total += b.Outstanding
	}
	assert.Equal(t, int64(17000), total)
}
