package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	producterrors "github.com/abelikov/storefront/internal/product/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "PRODUCT_SVC_SKIP_INTEGRATION_TESTS"

// ProductStoreSuite is a test suite for the ProductStore implementation.
type ProductStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       ProductStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite initializes the test suite by setting up a PostgreSQL container.
func (s *ProductStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "products_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. create a new pgxpool instance using the connection string
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	// 3.1 Ping the database to ensure the connection is established
	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Database migration
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../../deploy/migrations/product_service")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for ProductStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *ProductStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the products table.
func (s *ProductStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

// TestProductStoreIntegration runs the ProductStore integration tests.
func TestProductStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(ProductStoreSuite))
}

// createTestProduct is a helper function to create a product for testing purposes.
func (s *ProductStoreSuite) createTestProduct(params CreateParams) *Product {
	s.T().Helper()
	product, err := s.store.Create(s.ctx, params)
	require.NoError(s.T(), err, "createTestProduct helper failed to create product")
	return product
}

func (s *ProductStoreSuite) TestCreate() {
	s.SetupTest()
	// given
	description := "A widget"
	params := CreateParams{
		Name:        "Widget",
		Description: &description,
		Price:       9.99,
		Stock:       5,
		Category:    "tools",
	}

	// when
	created := s.createTestProduct(params)

	// then
	require.NotZero(s.T(), created.ID, "Created product ID should not be zero")
	require.Equal(s.T(), params.Name, created.Name)
	require.Equal(s.T(), params.Price, created.Price)
	require.Equal(s.T(), params.Stock, created.Stock)
	require.Equal(s.T(), params.Category, created.Category)
	require.True(s.T(), created.IsActive, "New products should be active by default")
	require.NotZero(s.T(), created.CreatedAt, "CreatedAt should be set")
}

func (s *ProductStoreSuite) TestFindByID() {
	s.SetupTest()
	// given
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 5, Category: "tools"})

	// when
	fetched, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err, "FindByID should not return an error")
	require.Equal(s.T(), created.ID, fetched.ID)
	require.Equal(s.T(), created.Name, fetched.Name)
	require.WithinDuration(s.T(), created.CreatedAt, fetched.CreatedAt, time.Second)
}

func (s *ProductStoreSuite) TestFindByID_NotFound() {
	s.SetupTest()
	// when
	_, err := s.store.FindByID(s.ctx, 12345)
	// then
	require.ErrorIs(s.T(), err, producterrors.ErrProductNotFound, "Expected ErrProductNotFound for non-existent product")
}

func (s *ProductStoreSuite) TestFindAll_Pagination() {
	s.SetupTest()
	// given
	for range 3 {
		s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 5, Category: "tools"})
	}

	// when
	firstPage, err := s.store.FindAll(s.ctx, 0, 2)
	require.NoError(s.T(), err)
	secondPage, err := s.store.FindAll(s.ctx, 2, 2)
	require.NoError(s.T(), err)

	// then
	require.Len(s.T(), firstPage, 2)
	require.Len(s.T(), secondPage, 1)
	assert.Less(s.T(), firstPage[0].ID, firstPage[1].ID, "Products should be ordered by ID")
}

func (s *ProductStoreSuite) TestUpdate_PartialFields() {
	s.SetupTest()
	// given
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 5, Category: "tools"})
	newPrice := 19.99

	// when: only the price is supplied
	updated, err := s.store.Update(s.ctx, created.ID, UpdateParams{Price: &newPrice})

	// then: untouched fields keep their values
	require.NoError(s.T(), err)
	require.Equal(s.T(), newPrice, updated.Price)
	require.Equal(s.T(), created.Name, updated.Name)
	require.Equal(s.T(), created.Stock, updated.Stock)
	require.Equal(s.T(), created.Category, updated.Category)
}

func (s *ProductStoreSuite) TestUpdate_NotFound() {
	s.SetupTest()
	// given
	name := "Ghost"
	// when
	_, err := s.store.Update(s.ctx, 12345, UpdateParams{Name: &name})
	// then
	require.ErrorIs(s.T(), err, producterrors.ErrProductNotFound)
}

func (s *ProductStoreSuite) TestDeleteByID() {
	s.SetupTest()
	// given
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 5, Category: "tools"})

	// when
	err := s.store.DeleteByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	_, err = s.store.FindByID(s.ctx, created.ID)
	require.ErrorIs(s.T(), err, producterrors.ErrProductNotFound)
}

func (s *ProductStoreSuite) TestDeleteByID_NotFound() {
	s.SetupTest()
	// when
	err := s.store.DeleteByID(s.ctx, 12345)
	// then
	require.ErrorIs(s.T(), err, producterrors.ErrProductNotFound)
}

func (s *ProductStoreSuite) TestDecrementStock() {
	s.SetupTest()
	// given
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 5, Category: "tools"})

	// when
	remaining, err := s.store.DecrementStock(s.ctx, created.ID, 3)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(2), remaining)
}

func (s *ProductStoreSuite) TestDecrementStock_Insufficient() {
	s.SetupTest()
	// given
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 2, Category: "tools"})

	// when
	_, err := s.store.DecrementStock(s.ctx, created.ID, 3)

	// then: stock is untouched
	require.ErrorIs(s.T(), err, producterrors.ErrInsufficientStock)
	fetched, ferr := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), ferr)
	require.Equal(s.T(), int64(2), fetched.Stock)
}

func (s *ProductStoreSuite) TestDecrementStock_NotFound() {
	s.SetupTest()
	// when
	_, err := s.store.DecrementStock(s.ctx, 12345, 1)
	// then
	require.ErrorIs(s.T(), err, producterrors.ErrProductNotFound)
}

// TestDecrementStock_Concurrent verifies that two reservations racing for
// the same stock can never both succeed.
func (s *ProductStoreSuite) TestDecrementStock_Concurrent() {
	s.SetupTest()
	// given: stock covers exactly one of the two requested reservations
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 5, Category: "tools"})

	// when: both goroutines try to take the full stock at once
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.store.DecrementStock(s.ctx, created.ID, 5)
		}(i)
	}
	wg.Wait()

	// then: exactly one succeeds, and stock never goes negative
	var successes, rejections int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, producterrors.ErrInsufficientStock):
			rejections++
		default:
			s.T().Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(s.T(), 1, successes, "Exactly one reservation should succeed")
	require.Equal(s.T(), 1, rejections, "The other reservation should be rejected")

	fetched, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(0), fetched.Stock)
}

func (s *ProductStoreSuite) TestIncrementStock() {
	s.SetupTest()
	// given
	created := s.createTestProduct(CreateParams{Name: "Widget", Price: 9.99, Stock: 2, Category: "tools"})

	// when
	current, err := s.store.IncrementStock(s.ctx, created.ID, 3)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(5), current)
}

func (s *ProductStoreSuite) TestIncrementStock_NotFound() {
	s.SetupTest()
	// when
	_, err := s.store.IncrementStock(s.ctx, 12345, 1)
	// then
	require.ErrorIs(s.T(), err, producterrors.ErrProductNotFound)
}
