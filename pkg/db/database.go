package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thep200/github-top100/cfg"
)

// Database owns the connection pool for the configured engine.
type Database struct {
	Config  *cfg.Config
	once    sync.Once
	db      *gorm.DB
	initErr error
}

func NewDatabase(config *cfg.Config) (*Database, error) {
	return &Database{
		Config: config,
	}, nil
}

func (d *Database) DSN() string {
	c := d.Config.Database
	switch c.Driver {
	case "mysql":
		config := mysqlDriver.Config{
			User:                 c.Username,
			Passwd:               c.Password,
			DBName:               c.Database,
			Addr:                 c.Host + ":" + c.Port,
			Net:                  "tcp",
			ParseTime:            true,
			AllowNativePasswords: true,
			Params:               map[string]string{"charset": "utf8mb4"},
		}
		return config.FormatDSN()
	case "postgres":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
	default:
		return c.Path
	}
}

func (d *Database) dialector() (gorm.Dialector, error) {
	switch d.Config.Database.Driver {
	case "mysql":
		return mysql.Open(d.DSN()), nil
	case "postgres":
		return postgres.Open(d.DSN()), nil
	case "sqlite":
		return sqlite.Open(d.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", d.Config.Database.Driver)
	}
}

func (d *Database) Db() (*gorm.DB, error) {
	d.once.Do(func() {
		var dialector gorm.Dialector
		dialector, d.initErr = d.dialector()
		if d.initErr != nil {
			return
		}

		// Open connection
		var db *gorm.DB
		db, d.initErr = gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if d.initErr != nil {
			return
		}

		// Get sqlDB
		var sqlDB *sql.DB
		sqlDB, d.initErr = db.DB()
		if d.initErr != nil {
			return
		}

		// Setting connection pool
		sqlDB.SetMaxIdleConns(d.Config.Database.MaxIdleConnection)
		sqlDB.SetMaxOpenConns(d.Config.Database.MaxOpenConnection)
		sqlDB.SetConnMaxLifetime(time.Duration(d.Config.Database.MaxLifeTimeConnection) * time.Second)

		d.db = db
	})
	return d.db, d.initErr
}

// Dialect returns the gorm dialector name of the opened engine.
func (d *Database) Dialect() string {
	db, err := d.Db()
	if err != nil {
		return ""
	}
	return db.Dialector.Name()
}

func (d *Database) Ping() error {
	db, err := d.Db()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	if d.db != nil {
		sqlDB, err := d.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
