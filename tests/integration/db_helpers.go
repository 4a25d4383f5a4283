package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/ticketdesk/internal/database"
	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/BradenHooton/ticketdesk/internal/reference"
	"github.com/BradenHooton/ticketdesk/internal/repositories"
	"github.com/BradenHooton/ticketdesk/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and the pool opened against it
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// Repositories bundles every repository backed by the test database
type Repositories struct {
	Users      *repositories.UserRepository
	Complaints *repositories.ComplaintRepository
	History    *repositories.StatusHistoryRepository
	Responses  *repositories.ResponseRepository
	Resets     *repositories.ResetTokenRepository
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// SetupTestDatabase starts a PostgreSQL container and applies the embedded migrations
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("ticketdesk"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(ctx, connStr); err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.NewFromPool(pool, discardLogger()),
	}, nil
}

func runMigrations(ctx context.Context, connStr string) error {
	sqlDB, err := database.Open(connStr)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.Migrate(ctx, sqlDB, discardLogger()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Teardown closes the pool and stops the container
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates every table and restarts identities for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE password_reset_tokens, responses, status_histories, complaints, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Repositories builds the repository set using the default reference allocator
func (db *TestDB) Repositories() *Repositories {
	return &Repositories{
		Users:      repositories.NewUserRepository(db.DB),
		Complaints: repositories.NewComplaintRepository(db.DB, reference.NewAllocator(reference.DefaultPrefix, reference.DefaultStart)),
		History:    repositories.NewStatusHistoryRepository(db.DB),
		Responses:  repositories.NewResponseRepository(db.DB),
		Resets:     repositories.NewResetTokenRepository(db.DB),
	}
}

// SeedUser inserts a user with a bcrypt-hashed password
func SeedUser(ctx context.Context, users *repositories.UserRepository, name, email, password, role string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := users.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}
