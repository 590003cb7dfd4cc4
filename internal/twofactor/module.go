package twofactor

import (
	"context"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goroutine"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/lock"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"github.com/shandysiswandi/twofa/internal/twofactor/inbound"
	"github.com/shandysiswandi/twofa/internal/twofactor/outbound/cache"
	"github.com/shandysiswandi/twofa/internal/twofactor/outbound/db"
	"github.com/shandysiswandi/twofa/internal/twofactor/outbound/mq"
	"github.com/shandysiswandi/twofa/internal/twofactor/usecase"
)

const defaultReclaimInterval = 60

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    redis.UniversalClient      `validate:"required"`
	Locker       lock.Locker                `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Enforcer     *casbin.Enforcer           `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Messaging    messaging.Publisher        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	Password     hash.Hash                  `validate:"required"`
	Encryptor    mfa.Encryptor              `validate:"required"`
	RecoveryCode *mfa.RecoveryCode          `validate:"required"`
	Totp         *otp.TOTP                  `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument, dep.Password)
	repoCache := cache.NewCache(dep.CacheConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoCache:     repoCache,
		RepoMessaging: repoMsg,
		Locker:        dep.Locker,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Encryptor:     dep.Encryptor,
		RecoveryCode:  dep.RecoveryCode,
		Totp:          dep.Totp,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	interval := dep.Config.GetSecond("mfa.reclaim_interval_seconds")
	if interval <= 0 {
		interval = defaultReclaimInterval * time.Second
	}
	dep.Goroutine.Every(dep.Ctx, "twofactor.reclaim_pending", interval, reclaimer(uc))

	return nil
}

type pendingReclaimer interface {
	ReclaimPending(ctx context.Context) (int, error)
}

func reclaimer(uc pendingReclaimer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := uc.ReclaimPending(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.InfoContext(ctx, "reclaimed pending two-factor setups", "count", n)
		}
		return nil
	}
}
