package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// sqliteBusyPragma 日结与停用巡检并发写入时等待锁释放
const sqliteBusyPragma = "_pragma=busy_timeout(5000)"

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// InitDB 初始化数据库连接
func InitDB(driver, dsn string, pool DBPoolConfig) error {
	dialector, err := OpenDialector(driver, dsn)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	applyDBPool(sqlDB, pool)
	DB = db
	return nil
}

// OpenDialector 按驱动名构造 GORM 方言，支持 sqlite / postgres / mysql
func OpenDialector(driver, dsn string) (gorm.Dialector, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return sqlite.Open(withSQLiteBusyTimeout(dsn)), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(withMySQLParseTime(dsn)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func withSQLiteBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") || strings.Contains(dsn, ":memory:") {
		return dsn
	}
	return appendQuery(dsn, sqliteBusyPragma)
}

// withMySQLParseTime 时间字段需要扫描为 time.Time
func withMySQLParseTime(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "parsetime=") {
		return dsn
	}
	return appendQuery(dsn, "parseTime=true&loc=UTC")
}

func appendQuery(dsn, query string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + query
	}
	return dsn + "?" + query
}

func applyDBPool(sqlDB *sql.DB, pool DBPoolConfig) {
	if sqlDB == nil {
		return
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// AutoMigrate 自动迁移所有数据库表
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.AutoMigrate(
		&Member{},
		&NFTPurchase{},
		&AccrualRecord{},
		&Withdrawal{},
		&WalletTransaction{},
	)
}
