package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/twofa/internal/twofactor"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.twofactor.enabled") {
		if err := twofactor.New(twofactor.Dependency{
			Ctx:          a.ctx,
			DBConn:       a.dbConn,
			CacheConn:    a.cacheConn,
			Locker:       a.locker,
			Goroutine:    a.goroutine,
			Enforcer:     a.casbin,
			Router:       a.router,
			Messaging:    a.messaging,
			Config:       a.config,
			Instrument:   a.ins,
			UID:          a.uid,
			Password:     a.bcrypt,
			Encryptor:    a.mfaEncryptor,
			RecoveryCode: a.mfaRecoveryCode,
			Totp:         a.totp,
			Clock:        a.clock,
			Validator:    a.validator,
		}); err != nil {
			slog.Error("failed to init module twofactor", "error", err)
			os.Exit(1)
		}
	}
}
