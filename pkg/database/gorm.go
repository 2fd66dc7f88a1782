// Package database 负责创建关系型数据库与 Redis 的客户端。
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pog-gallery/internal/model"
	"pog-gallery/pkg/log"
)

// Open 根据驱动名建立数据库连接并配置连接池。
// 客户端在进程启动时创建一次，之后只读共享。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Infof("%s database connected successfully", driver)
	return db, nil
}

// Migrate 创建或更新所有表结构。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.MediaUpload{},
		&model.VideoThumbnail{},
		&model.User{},
		&model.Comment{},
		&model.Favorite{},
	)
}
