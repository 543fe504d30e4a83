package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

// TestRecord is a sample model for testing GORM operations
type TestRecord struct {
	gorm.Model
	ExternalID string `gorm:"uniqueIndex"`
	Label      string
	Rank       int
}

// PostgresContainer represents a Postgres container for testing
type PostgresContainer struct {
	testcontainers.Container
	ConnectionString string
	Config           Config
	Host             string
	Port             string
}

// setupPostgresContainer sets up a Postgres container for testing
func setupPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	// Get a random free port
	port, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free port: %w", err)
	}

	portStr := fmt.Sprintf("%d", port)
	portBindings := nat.PortMap{
		"5432/tcp": []nat.PortBinding{{HostPort: portStr}},
	}

	req := testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	// The actual mapped port can differ from the requested one
	mappedPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}
	portStr = mappedPort.Port()

	// Wait for PostgreSQL to be fully ready for connections
	err = waitForPostgresReady(host, portStr, "testuser", "testpass", "testdb", 30*time.Second)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("postgres container not ready: %w", err)
	}

	config := Config{
		Connection: Connection{
			Host:     host,
			Port:     portStr,
			User:     "testuser",
			Password: "testpass",
			DbName:   "testdb",
			SSLMode:  "disable",
		},
	}

	return &PostgresContainer{
		Container:        pgContainer,
		ConnectionString: fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable", host, portStr),
		Config:           config,
		Host:             host,
		Port:             portStr,
	}, nil
}

// getFreePort gets a free port from the OS
func getFreePort() (int, error) {
	addr, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer func(addr net.Listener) {
		err := addr.Close()
		if err != nil {
			fmt.Printf("Failed to close listener: %v", err)
		}
	}(addr)

	return addr.Addr().(*net.TCPAddr).Port, nil
}

// waitForPostgresReady attempts to connect to PostgreSQL until it's ready or times out
func waitForPostgresReady(host, port, user, password, dbname string, timeout time.Duration) error {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	startTime := time.Now()
	for {
		if time.Since(startTime) > timeout {
			return fmt.Errorf("timed out waiting for PostgreSQL to be ready after %s", timeout)
		}

		db, err := sql.Open("postgres", connStr)
		if err != nil {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		err = db.Ping()
		if err == nil {
			err = db.Close()
			if err != nil {
				return fmt.Errorf("error closing database connection: %w", err)
			}
			return nil
		}

		_ = db.Close()
		time.Sleep(500 * time.Millisecond)
	}
}

// newQuietMockLogger returns a mock Logger whose Fatal does not terminate
// the test process.
func newQuietMockLogger(t *testing.T, ctrl *gomock.Controller) *MockLogger {
	mockLogger := NewMockLogger(ctrl)

	mockLogger.EXPECT().Fatal(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(msg string, err error, fields ...map[string]interface{}) {
			t.Logf("FATAL: %s, Error: %v", msg, err)
		}).AnyTimes()
	mockLogger.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Error(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	return mockLogger
}

// TestMain sets up the testing environment
func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

// TestPostgresWithFXModule tests the postgres package using the existing FX module
func TestPostgresWithFXModule(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockLogger := newQuietMockLogger(t, ctrl)

	t.Logf("Using PostgreSQL on %s:%s", pgContainer.Host, pgContainer.Port)

	var pg *Postgres
	app := fxtest.New(t,
		fx.Provide(
			func() Config {
				return pgContainer.Config
			},
			func() Logger {
				return mockLogger
			},
		),
		FXModule,
		fx.Populate(&pg),
	)

	err = app.Start(ctx)
	require.NoError(t, err)

	if pg == nil || pg.client == nil {
		t.Fatal("Failed to initialize Postgres client - connection likely failed")
	}

	db := pg.DB()
	require.NotNil(t, db)

	var result int
	err = db.Raw("SELECT 1").Scan(&result).Error
	assert.NoError(t, err)
	assert.Equal(t, 1, result)

	err = pg.Migrate(&TestRecord{})
	require.NoError(t, err)

	t.Run("CRUDOperations", func(t *testing.T) {
		ctx := context.Background()

		rec := TestRecord{
			ExternalID: "rec-1",
			Label:      "first",
			Rank:       10,
		}

		err := pg.Create(ctx, &rec)
		assert.NoError(t, err)
		assert.Greater(t, rec.ID, uint(0))

		var records []TestRecord
		err = pg.Find(ctx, &records, "rank = ?", 10)
		assert.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, "first", records[0].Label)

		var retrieved TestRecord
		err = pg.First(ctx, &retrieved, "external_id = ?", "rec-1")
		assert.NoError(t, err)
		assert.Equal(t, "first", retrieved.Label)
		assert.Equal(t, 10, retrieved.Rank)

		retrieved.Rank = 11
		err = pg.Save(ctx, &retrieved)
		assert.NoError(t, err)

		var updated TestRecord
		err = pg.First(ctx, &updated, retrieved.ID)
		assert.NoError(t, err)
		assert.Equal(t, 11, updated.Rank)
	})

	t.Run("QueryBuilder", func(t *testing.T) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			rec := TestRecord{
				ExternalID: fmt.Sprintf("qb-%d", i),
				Label:      "builder",
				Rank:       100 + i,
			}
			require.NoError(t, pg.Create(ctx, &rec))
		}

		var records []TestRecord
		err := pg.Query(ctx).
			Model(&TestRecord{}).
			Where("label = ?", "builder").
			Order("rank DESC").
			Limit(3).
			Find(&records)
		assert.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, 104, records[0].Rank)

		var count int64
		err = pg.Query(ctx).
			Model(&TestRecord{}).
			Where("label = ?", "builder").
			Count(&count)
		assert.NoError(t, err)
		assert.Equal(t, int64(5), count)

		var ids []string
		err = pg.Query(ctx).
			Model(&TestRecord{}).
			Where("rank >= ?", 103).
			Order("external_id ASC").
			Pluck("external_id", &ids)
		assert.NoError(t, err)
		assert.Equal(t, []string{"qb-3", "qb-4"}, ids)

		// Or combines with the preceding condition
		err = pg.Query(ctx).
			Model(&TestRecord{}).
			Where("rank = ?", 100).
			Or("rank = ?", 104).
			Count(&count)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), count)

		var labels []string
		err = pg.Query(ctx).
			Model(&TestRecord{}).
			Where("rank >= ?", 100).
			Distinct().
			Pluck("label", &labels)
		assert.NoError(t, err)
		assert.Equal(t, []string{"builder"}, labels)

		var first TestRecord
		err = pg.Query(ctx).
			Where("label = ?", "builder").
			Order("rank ASC").
			First(&first)
		assert.NoError(t, err)
		assert.Equal(t, 100, first.Rank)

		var total int64
		err = pg.Query(ctx).
			Raw("SELECT count(*) FROM test_records WHERE label = ?", "builder").
			Scan(&total)
		assert.NoError(t, err)
		assert.Equal(t, int64(5), total)

		// Done releases the lock of an abandoned chain; later queries
		// must not block on it
		pg.Query(ctx).Model(&TestRecord{}).Where("label = ?", "builder").Done()
		err = pg.Query(ctx).Model(&TestRecord{}).Count(&count)
		assert.NoError(t, err)
	})

	t.Run("Transaction", func(t *testing.T) {
		ctx := context.Background()

		// A failing function must roll the whole transaction back
		err := pg.Transaction(ctx, func(tx *gorm.DB) error {
			if err := tx.Create(&TestRecord{ExternalID: "tx-rollback", Label: "tx", Rank: 1}).Error; err != nil {
				return err
			}
			return fmt.Errorf("forced rollback")
		})
		assert.Error(t, err)

		var count int64
		err = pg.Query(ctx).
			Model(&TestRecord{}).
			Where("external_id = ?", "tx-rollback").
			Count(&count)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)

		// A successful function commits
		err = pg.Transaction(ctx, func(tx *gorm.DB) error {
			return tx.Create(&TestRecord{ExternalID: "tx-commit", Label: "tx", Rank: 2}).Error
		})
		assert.NoError(t, err)

		err = pg.Query(ctx).
			Model(&TestRecord{}).
			Where("external_id = ?", "tx-commit").
			Count(&count)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("ExecRawSQL", func(t *testing.T) {
		ctx := context.Background()

		err := pg.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS test_items (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				value INTEGER
			)
		`)
		assert.NoError(t, err)

		err = pg.Exec(ctx, `
			INSERT INTO test_items (name, value) VALUES ('item1', 100), ('item2', 200)
		`)
		assert.NoError(t, err)

		type Item struct {
			Name  string
			Value int
		}

		var items []Item
		err = pg.DB().Raw(`SELECT name, value FROM test_items ORDER BY value`).Scan(&items).Error
		assert.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, "item1", items[0].Name)
		assert.Equal(t, 100, items[0].Value)
	})

	t.Run("ErrorTranslation", func(t *testing.T) {
		ctx := context.Background()

		var rec TestRecord
		err := pg.First(ctx, &rec, "external_id = ?", "does-not-exist")
		assert.ErrorIs(t, TranslateError(err), ErrRecordNotFound)

		err = pg.Create(ctx, &TestRecord{ExternalID: "dup", Label: "dup", Rank: 1})
		assert.NoError(t, err)

		err = pg.Create(ctx, &TestRecord{ExternalID: "dup", Label: "dup again", Rank: 2})
		assert.ErrorIs(t, TranslateError(err), ErrDuplicateKey)
	})

	require.NoError(t, app.Stop(ctx))
}

// TestPostgresConnectionFailureRecovery tests connection failure and recovery
func TestPostgresConnectionFailureRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockLogger := newQuietMockLogger(t, ctrl)

	pg := NewPostgres(pgContainer.Config, mockLogger)
	if pg == nil || pg.client == nil {
		t.Skip("Skipping test as database connection failed")
		return
	}

	go pg.retryConnection(context.Background())
	defer close(pg.shutdownSignal)

	var result int
	err = pg.DB().Raw("SELECT 1").Scan(&result).Error
	assert.NoError(t, err)

	// Signal a connection error and verify the client recovers
	pg.retryChanSignal <- fmt.Errorf("test connection error")
	time.Sleep(200 * time.Millisecond)

	err = pg.DB().Raw("SELECT 1").Scan(&result).Error
	assert.NoError(t, err)
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, TranslateError(nil))
	assert.Equal(t, ErrRecordNotFound, TranslateError(gorm.ErrRecordNotFound))
	assert.Equal(t, ErrDuplicateKey, TranslateError(gorm.ErrDuplicatedKey))
	assert.Equal(t, ErrForeignKey, TranslateError(gorm.ErrForeignKeyViolated))
	assert.Equal(t, ErrInvalidData, TranslateError(gorm.ErrInvalidData))

	customErr := fmt.Errorf("custom error")
	assert.Equal(t, customErr, TranslateError(customErr))
}
