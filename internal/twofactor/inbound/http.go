package inbound

import (
	"context"

	"github.com/shandysiswandi/twofa/internal/pkg/router"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
	"github.com/shandysiswandi/twofa/internal/twofactor/usecase"
)

type uc interface {
	StartSetup(ctx context.Context, in usecase.StartSetupInput) (*usecase.StartSetupOutput, error)
	AbortSetup(ctx context.Context, in usecase.AbortSetupInput) error
	ConfirmEnrollment(ctx context.Context, in usecase.ConfirmEnrollmentInput) (*usecase.ConfirmEnrollmentOutput, error)

	Disable(ctx context.Context, in usecase.DisableInput) error
	RegenerateBackupCodes(ctx context.Context, in usecase.RegenerateBackupCodesInput) (*usecase.RegenerateBackupCodesOutput, error)
	Status(ctx context.Context, in usecase.StatusInput) (*entity.Status, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)

	AdminReset(ctx context.Context, in usecase.AdminResetInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Enrollment
	r.POST("/api/v1/twofactor/setup", end.StartSetup)
	r.DELETE("/api/v1/twofactor/setup", end.AbortSetup)
	r.POST("/api/v1/twofactor/setup/confirm", end.ConfirmEnrollment)

	// Enabled account
	r.GET("/api/v1/twofactor/status", end.Status)
	r.POST("/api/v1/twofactor/verify", end.Verify)
	r.POST("/api/v1/twofactor/disable", end.Disable)
	r.POST("/api/v1/twofactor/backup-codes/regenerate", end.RegenerateBackupCodes)

	// Administration (need authorization)
	r.POST("/api/v1/twofactor/accounts/:id/reset", end.AdminReset)
}
