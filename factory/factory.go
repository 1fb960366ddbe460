package factory

import (
	"context"
	"database/sql"
	"eventers-ticketing-backend/config"
	"eventers-ticketing-backend/logger"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Factory builds the process-wide clients on first use.
type Factory interface {
	DB(ctx context.Context) *sql.DB
	Redis(ctx context.Context) *redis.Client
}

type factory struct {
	dbOnce    sync.Once
	redisOnce sync.Once

	db    *sql.DB
	redis *redis.Client
}

func NewFactory() Factory {
	return &factory{}
}

func (f *factory) DB(ctx context.Context) *sql.DB {
	f.dbOnce.Do(func() {
		sqlDB, err := sql.Open("mysql", viper.GetString(config.DBURL))
		if err != nil {
			logger.Fatalf(ctx, "Could not establish connection to the DB: %+v", err)
		}
		sqlDB.SetMaxOpenConns(viper.GetInt(config.DBMaxOpenConns))
		sqlDB.SetConnMaxLifetime(5 * time.Minute)

		f.db = sqlDB
	})

	return f.db
}

func (f *factory) Redis(ctx context.Context) *redis.Client {
	f.redisOnce.Do(func() {
		f.redis = redis.NewClient(&redis.Options{
			Addr:     viper.GetString(config.RedisAddress),
			Password: viper.GetString(config.RedisPassword),
			DB:       viper.GetInt(config.RedisDB),
		})
		logger.Infof(ctx, "factory: redis client created for %s", viper.GetString(config.RedisAddress))
	})

	return f.redis
}
