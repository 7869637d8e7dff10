package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	ordererrors "github.com/abelikov/storefront/internal/order/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "ORDER_SVC_SKIP_INTEGRATION_TESTS"

// OrderStoreSuite is a test suite for the OrderStore implementation.
type OrderStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       OrderStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite initializes the test suite by setting up a PostgreSQL container.
func (s *OrderStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "orders_db"
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
	migrationsPath := filepath.Join(wd, "../../../deploy/migrations/order_service")
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
	s.logger.Info("Initialization complete for OrderStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *OrderStoreSuite) TearDownSuite() {
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

// SetupTest prepares the database for each test by truncating the orders table.
func (s *OrderStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE orders RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate orders table")
}

// TestOrderStoreIntegration runs the OrderStore integration tests.
func TestOrderStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(OrderStoreSuite))
}

// createTestOrder is a helper function to create an order for testing purposes.
func (s *OrderStoreSuite) createTestOrder(orderParams CreateOrderParams, items []CreateOrderItemParams) (*Order, []OrderItem) {
	s.T().Helper()
	order, orderItems, err := s.store.CreateOrder(s.ctx, orderParams, items)
	require.NoError(s.T(), err, "createTestOrder helper failed to create order")
	return order, orderItems
}

func (s *OrderStoreSuite) TestCreateOrder() {
	s.SetupTest()
	// given
	orderParams := CreateOrderParams{
		CustomerID:      "cust-1",
		Status:          StatusPending,
		TotalAmount:     25,
		ShippingAddress: "42 Main St",
	}
	itemParams := []CreateOrderItemParams{
		{ProductID: 7, Quantity: 2, UnitPrice: 10},
		{ProductID: 8, Quantity: 1, UnitPrice: 5},
	}

	// when
	createdOrder, createdItems := s.createTestOrder(orderParams, itemParams)

	// then
	require.NotZero(s.T(), createdOrder.ID, "Created order ID should not be zero")
	require.Equal(s.T(), orderParams.CustomerID, createdOrder.CustomerID)
	require.Equal(s.T(), StatusPending, createdOrder.Status)
	require.Equal(s.T(), orderParams.TotalAmount, createdOrder.TotalAmount)
	require.NotZero(s.T(), createdOrder.CreatedAt, "CreatedAt should be set")

	require.Len(s.T(), createdItems, 2, "Should create two order items")
	for i, item := range createdItems {
		require.NotZero(s.T(), item.ID, "Created order item ID should not be zero")
		require.Equal(s.T(), createdOrder.ID, item.OrderID)
		require.Equal(s.T(), itemParams[i].ProductID, item.ProductID)
		require.Equal(s.T(), itemParams[i].Quantity, item.Quantity)
		require.Equal(s.T(), itemParams[i].UnitPrice, item.UnitPrice)
	}
}

func (s *OrderStoreSuite) TestFindByID() {
	s.SetupTest()
	// given
	createdOrder, createdItems := s.createTestOrder(
		CreateOrderParams{CustomerID: "cust-1", Status: StatusPending, TotalAmount: 20, ShippingAddress: "42 Main St"},
		[]CreateOrderItemParams{{ProductID: 7, Quantity: 2, UnitPrice: 10}},
	)

	// when
	fetchedOrder, fetchedItems, err := s.store.FindByID(s.ctx, createdOrder.ID)

	// then
	require.NoError(s.T(), err, "FindByID should not return an error")
	require.Equal(s.T(), createdOrder.ID, fetchedOrder.ID)
	require.Equal(s.T(), createdOrder.CustomerID, fetchedOrder.CustomerID)
	require.Equal(s.T(), createdOrder.Status, fetchedOrder.Status)
	require.WithinDuration(s.T(), createdOrder.CreatedAt, fetchedOrder.CreatedAt, time.Second)

	require.Len(s.T(), fetchedItems, 1, "Should fetch one order item")
	require.Equal(s.T(), createdItems[0].ID, fetchedItems[0].ID)
	require.Equal(s.T(), createdItems[0].ProductID, fetchedItems[0].ProductID)
	require.Equal(s.T(), createdItems[0].Quantity, fetchedItems[0].Quantity)
	require.Equal(s.T(), createdItems[0].UnitPrice, fetchedItems[0].UnitPrice)
}

func (s *OrderStoreSuite) TestFindByID_NotFound() {
	s.SetupTest()
	// when
	_, _, err := s.store.FindByID(s.ctx, 12345)
	// then
	require.ErrorIs(s.T(), err, ordererrors.ErrOrderNotFound, "Expected ErrOrderNotFound for non-existent order")
}

func (s *OrderStoreSuite) TestFindByCustomer() {
	s.SetupTest()
	// given
	s.createTestOrder(
		CreateOrderParams{CustomerID: "cust-1", Status: StatusPending, ShippingAddress: "42 Main St"},
		[]CreateOrderItemParams{{ProductID: 7, Quantity: 1, UnitPrice: 10}},
	)
	s.createTestOrder(
		CreateOrderParams{CustomerID: "cust-1", Status: StatusShipped, ShippingAddress: "42 Main St"},
		[]CreateOrderItemParams{{ProductID: 8, Quantity: 1, UnitPrice: 5}},
	)
	s.createTestOrder(
		CreateOrderParams{CustomerID: "cust-2", Status: StatusPending, ShippingAddress: "7 Oak Ave"},
		[]CreateOrderItemParams{{ProductID: 9, Quantity: 1, UnitPrice: 1}},
	)

	// when
	orders, err := s.store.FindByCustomer(s.ctx, "cust-1", 0, 10)

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), orders, 2, "Should retrieve only cust-1 orders")
	for _, order := range orders {
		require.Equal(s.T(), "cust-1", order.CustomerID)
	}

	// and: an unknown customer yields an empty slice
	none, err := s.store.FindByCustomer(s.ctx, "cust-3", 0, 10)
	require.NoError(s.T(), err)
	require.Empty(s.T(), none)
}

func (s *OrderStoreSuite) TestUpdate_PartialFields() {
	s.SetupTest()
	// given
	createdOrder, _ := s.createTestOrder(
		CreateOrderParams{CustomerID: "cust-1", Status: StatusPending, ShippingAddress: "42 Main St"},
		[]CreateOrderItemParams{{ProductID: 7, Quantity: 1, UnitPrice: 10}},
	)
	newAddress := "1 New Street"

	// when: only the address is supplied
	updated, err := s.store.Update(s.ctx, createdOrder.ID, UpdateOrderParams{ShippingAddress: &newAddress})

	// then: the status keeps its value
	require.NoError(s.T(), err)
	require.Equal(s.T(), newAddress, updated.ShippingAddress)
	require.Equal(s.T(), StatusPending, updated.Status)
}

func (s *OrderStoreSuite) TestUpdate_NotFound() {
	s.SetupTest()
	// given
	status := StatusShipped
	// when
	_, err := s.store.Update(s.ctx, 12345, UpdateOrderParams{Status: &status})
	// then
	require.ErrorIs(s.T(), err, ordererrors.ErrOrderNotFound)
}

func (s *OrderStoreSuite) TestUpdateStatus() {
	s.SetupTest()
	// given
	createdOrder, _ := s.createTestOrder(
		CreateOrderParams{CustomerID: "cust-1", Status: StatusPending, ShippingAddress: "42 Main St"},
		[]CreateOrderItemParams{{ProductID: 7, Quantity: 1, UnitPrice: 10}},
	)

	// when
	cancelled, err := s.store.UpdateStatus(s.ctx, createdOrder.ID, StatusCancelled)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), StatusCancelled, cancelled.Status)
}
