package database

import (
	"context"
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/ml4e-club/ml4e-site-backend/config"
	"github.com/ml4e-club/ml4e-site-backend/errs"
	"github.com/ml4e-club/ml4e-site-backend/models"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

// Options describes the one pooled connection a process holds.
type Options struct {
	Type string

	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	ReplicaHosts []string

	// Path is the SQLite file, ":memory:" for an ephemeral store.
	Path string

	MongoURI         string
	MongoDBPrefix    string
	MongoMaxPoolSize uint64

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OptionsFromConfig reads the DB_* and MONGODB_* keys.
func OptionsFromConfig(c map[string]string) Options {
	return Options{
		Type:             config.GetString(c, "DB_TYPE", BackendPostgres),
		Host:             config.GetString(c, "DB_HOST", "localhost"),
		Port:             config.GetString(c, "DB_PORT", "5432"),
		User:             config.GetString(c, "DB_USER", ""),
		Password:         config.GetString(c, "DB_PASSWORD", ""),
		Name:             config.GetString(c, "DB_NAME", "ml4e"),
		SSLMode:          config.GetString(c, "DB_SSLMODE", "require"),
		ReplicaHosts:     config.GetList(c, "DB_REPLICA_HOSTS"),
		Path:             config.GetString(c, "DB_PATH", "ml4e.db"),
		MongoURI:         config.GetString(c, "MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBPrefix:    config.GetString(c, "MONGODB_DB_PREFIX", ""),
		MongoMaxPoolSize: uint64(config.GetInt(c, "MONGODB_MAX_POOL_SIZE", 20)),
		MaxOpenConns:     config.GetInt(c, "DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     config.GetInt(c, "DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  config.GetSeconds(c, "DB_CONN_MAX_LIFETIME_SECONDS", 300),
	}
}

// Manager owns the process-wide connection pool. Handlers never open or close
// connections themselves; they take a request-scoped session from the manager
// and the pool reclaims the connection when the call returns.
type Manager struct {
	backend     string
	db          *gorm.DB
	mongo       *mongo.Client
	mongoPrefix string
}

func Connect(ctx context.Context, opts Options) (*Manager, error) {
	switch strings.ToLower(opts.Type) {
	case BackendPostgres, "postgresql", "supa":
		return connectGorm(BackendPostgres, postgres.New(postgres.Config{
			DSN:                  postgresDSN(opts, opts.Host),
			PreferSimpleProtocol: true,
		}), opts)
	case BackendSQLite:
		return connectGorm(BackendSQLite, sqlite.Open(opts.Path), opts)
	case BackendMongo, "mongodb":
		return connectMongo(ctx, opts)
	default:
		return nil, errs.NewUnsupportedBackendError(opts.Type)
	}
}

// NewGormManager wraps an already opened gorm handle.
func NewGormManager(db *gorm.DB) *Manager {
	return &Manager{backend: db.Dialector.Name(), db: db}
}

func postgresDSN(opts Options, host string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		host, opts.User, opts.Password, opts.Name, opts.Port, opts.SSLMode)
}

func connectGorm(backend string, dialector gorm.Dialector, opts Options) (*Manager, error) {
	gormLogger := logger.New(
		stdlog.New(log.Logger, "", 0),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt: false,
		Logger:      gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", backend, err)
	}

	if backend == BackendPostgres && len(opts.ReplicaHosts) > 0 {
		replicas := make([]gorm.Dialector, 0, len(opts.ReplicaHosts))
		for _, host := range opts.ReplicaHosts {
			replicas = append(replicas, postgres.Open(postgresDSN(opts, host)))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxOpenConns(opts.MaxOpenConns).
			SetMaxIdleConns(opts.MaxIdleConns).
			SetConnMaxLifetime(opts.ConnMaxLifetime)
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("failed to register read replicas: %w", err)
		}
		log.Info().Int("replicas", len(replicas)).Msg("Read replicas registered")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if backend == BackendSQLite {
		// one writer; also keeps ":memory:" on a single shared connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	log.Info().Str("backend", backend).Msg("Connected to database")
	return &Manager{backend: backend, db: db}, nil
}

func connectMongo(ctx context.Context, opts Options) (*Manager, error) {
	clientOpts := options.Client().
		ApplyURI(opts.MongoURI).
		SetMaxPoolSize(opts.MongoMaxPoolSize).
		SetMaxConnIdleTime(opts.ConnMaxLifetime)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	log.Info().Str("backend", BackendMongo).Msg("Connected to database")
	return &Manager{backend: BackendMongo, mongo: client, mongoPrefix: opts.MongoDBPrefix}, nil
}

func (m *Manager) Backend() string {
	return m.backend
}

// GormDB returns the shared gorm handle, nil on the mongo backend.
func (m *Manager) GormDB() *gorm.DB {
	return m.db
}

// Session returns a gorm session bound to ctx. Each call borrows from the pool
// only for the duration of the statements issued on it.
func (m *Manager) Session(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx)
}

// MongoCollection returns the named collection inside its own database namespace.
func (m *Manager) MongoCollection(name string) *mongo.Collection {
	return m.mongo.Database(m.mongoPrefix + name).Collection(name)
}

func (m *Manager) Ping(ctx context.Context) error {
	if m.mongo != nil {
		return m.mongo.Ping(ctx, nil)
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates the collection tables, or the createdAt indexes on mongo.
func (m *Manager) Migrate(ctx context.Context) error {
	if m.mongo != nil {
		for _, name := range collectionNames() {
			_, err := m.MongoCollection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys: bson.D{{Key: "createdAt", Value: -1}},
			})
			if err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
		}
		return nil
	}

	return m.Session(ctx).AutoMigrate(models.All()...)
}

func (m *Manager) Close(ctx context.Context) error {
	if m.mongo != nil {
		return m.mongo.Disconnect(ctx)
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func collectionNames() []string {
	return []string{
		models.Achievement{}.TableName(),
		models.Project{}.TableName(),
		models.Event{}.TableName(),
		models.TeamMember{}.TableName(),
	}
}
