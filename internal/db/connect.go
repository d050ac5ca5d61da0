package db

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options describes the database to open. DSN, when set, is used as-is for
// mysql; Path is the sqlite file (":memory:" for tests).
type Options struct {
	Driver   string // "mysql" or "sqlite"
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string
}

// DSN builds a MySQL DSN with parseTime enabled.
func DSN(host string, port int, user, password, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Open opens a GORM connection for the configured driver.
func Open(opts Options) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	switch opts.Driver {
	case "mysql":
		dsn := opts.DSN
		if dsn == "" {
			dsn = DSN(opts.Host, opts.Port, opts.User, opts.Password, opts.Name)
		}
		db, err := gorm.Open(gormmysql.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", opts.Host, opts.Port, opts.Name, err)
		}
		return db, nil
	case "sqlite":
		if opts.Path == "" {
			return nil, fmt.Errorf("db: sqlite path is required")
		}
		db, err := gorm.Open(sqlite.Open(opts.Path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", opts.Path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", opts.Driver)
	}
}
