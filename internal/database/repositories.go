package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/mongostore"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/repositories"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database/sqlite"
)

// Repositories holds all repository instances
type Repositories struct {
	Charts     repositories.ChartRepository
	Layouts    repositories.LayoutRepository
	Statistics repositories.StatisticsRepository

	closer func() error
}

// NewSQLiteRepositories creates the sqlite-backed repositories
func NewSQLiteRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Charts:     sqlite.NewChartRepository(db),
		Layouts:    sqlite.NewLayoutRepository(db),
		Statistics: sqlite.NewStatisticsRepository(db),
		closer:     db.Close,
	}
}

// NewMongoRepositories creates the MongoDB-backed repositories
func NewMongoRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Charts:     mongostore.NewChartStore(db),
		Layouts:    mongostore.NewLayoutStore(db),
		Statistics: mongostore.NewStatStore(db),
		closer:     func() error { return db.Client().Disconnect(context.Background()) },
	}
}

// Close releases the underlying connection
func (r *Repositories) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// Open connects to the configured driver and returns its repositories
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		_, db, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"driver":   cfg.Database.Driver,
			"database": cfg.Mongo.Database,
		}).Info("Connected to MongoDB")
		return NewMongoRepositories(db), nil

	case config.DriverSQLite, "":
		db, err := Initialize(cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migration.AutoMigrate {
			if err := Migrate(db); err != nil {
				db.Close()
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		logger.WithFields(logrus.Fields{
			"driver": config.DriverSQLite,
			"path":   cfg.Database.Path,
		}).Info("Database initialized")
		return NewSQLiteRepositories(db), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
