package db

import (
	"fmt"
	stdlog "log"
	"net"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/murshop24/admin/internal/config"
	"github.com/murshop24/admin/internal/models"
)

// sqliteParams enable WAL, wait on locks instead of failing, and enforce FKs.
const sqliteParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DBConfig, pg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath + sqliteParams)
	default:
		dialector = postgres.Open(PostgresDSN(pg))
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db open (%s): %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite works best with a single writer; cap the pool accordingly.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	log.Info("database ready", zap.String("driver", cfg.Driver))
	return conn, nil
}

// Migrate creates or updates every table the admin manages.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.City{},
		&models.District{},
		&models.TgOperator{},
		&models.TgReviewsChannel{},
		&models.TgBot{},
		&models.TgCustomer{},
		&models.Product{},
		&models.ProductUnit{},
		&models.DistrictProductUnit{},
		&models.Bank{},
		&models.BankAccount{},
		&models.QiwiWalletAccount{},
		&models.Order{},
		&models.AdminSession{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Order list is always sorted newest first.
	if err := conn.Exec("CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)").Error; err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// PostgresDSN renders a postgres:// URL. Credentials and the database name
// are escaped, so they pass through unchanged.
func PostgresDSN(pg config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pg.User, pg.Password),
		Host:     net.JoinHostPort(pg.Host, strconv.Itoa(pg.Port)),
		Path:     "/" + pg.DB,
		RawQuery: url.Values{"sslmode": {"disable"}, "TimeZone": {"UTC"}}.Encode(),
	}
	return u.String()
}

func gormLogger(log *zap.Logger) logger.Interface {
	w := &zapio.Writer{Log: log.Named("gorm"), Level: zap.WarnLevel}
	return logger.New(
		stdlog.New(w, "", 0),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
