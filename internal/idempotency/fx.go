package idempotency

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/debtledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Redis  *redis.Client `optional:"true"`
}

func ProvideRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvideGate(p Params) *Gate {
	var store Store
	if p.Redis != nil {
		store = NewRedisStore(p.Redis)
	} else {
		store = NewGormStore(p.DB)
	}
	return NewGate(store, p.Log, p.Config.IdempotencyTTL)
}

var Module = fx.Module("idempotency",
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideGate),
)
