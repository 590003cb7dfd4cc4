package inbound

import (
	"strconv"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
	"github.com/shandysiswandi/twofa/internal/twofactor/usecase"
)

// HTTPEndpoint exposes the two-factor lifecycle over HTTP. The account is
// always the bearer of the token, never a request field.
type HTTPEndpoint struct {
	uc uc
}

func caller(r *router.Request) (*jwt.Claims, error) {
	clm := jwt.GetAuth(r.Context())
	if clm == nil || clm.AccountID <= 0 {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}

// StartSetup issues a new TOTP secret for the caller.
func (h *HTTPEndpoint) StartSetup(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	label := clm.Email
	if label == "" {
		label = strconv.FormatInt(clm.AccountID, 10)
	}

	resp, err := h.uc.StartSetup(r.Context(), usecase.StartSetupInput{
		AccountID:    clm.AccountID,
		AccountLabel: label,
	})
	if err != nil {
		return nil, err
	}

	return StartSetupResponse{
		Secret:          resp.Secret,
		ProvisioningURI: resp.ProvisioningURI,
		ManualEntryText: resp.ManualEntryText,
	}, nil
}

// AbortSetup discards a pending setup.
func (h *HTTPEndpoint) AbortSetup(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	if err := h.uc.AbortSetup(r.Context(), usecase.AbortSetupInput{AccountID: clm.AccountID}); err != nil {
		return nil, err
	}

	return AbortSetupResponse{}, nil
}

// ConfirmEnrollment enables two-factor and returns the backup codes once.
func (h *HTTPEndpoint) ConfirmEnrollment(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	var req ConfirmEnrollmentRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ConfirmEnrollment(r.Context(), usecase.ConfirmEnrollmentInput{
		AccountID: clm.AccountID,
		Code:      req.Code,
	})
	if err != nil {
		return nil, err
	}

	return ConfirmEnrollmentResponse{BackupCodes: resp.BackupCodes}, nil
}

func (h *HTTPEndpoint) Disable(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	var req DisableRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Disable(r.Context(), usecase.DisableInput{
		AccountID: clm.AccountID,
		Password:  req.Password,
		Code:      req.Code,
	}); err != nil {
		return nil, err
	}

	return DisableResponse{}, nil
}

func (h *HTTPEndpoint) RegenerateBackupCodes(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	var req RegenerateBackupCodesRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RegenerateBackupCodes(r.Context(), usecase.RegenerateBackupCodesInput{
		AccountID: clm.AccountID,
		Code:      req.Code,
	})
	if err != nil {
		return nil, err
	}

	return RegenerateBackupCodesResponse{BackupCodes: resp.BackupCodes}, nil
}

func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Status(r.Context(), usecase.StatusInput{AccountID: clm.AccountID})
	if err != nil {
		return nil, err
	}

	return StatusResponse{
		Enabled:              resp.Enabled,
		State:                resp.State.String(),
		VerifiedAt:           resp.VerifiedAt,
		BackupCodesRemaining: resp.BackupCodesRemaining,
		BackupCodesLow:       resp.BackupCodesLow,
	}, nil
}

// Verify checks a TOTP or backup code for the caller, as a login step would.
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	clm, err := caller(r)
	if err != nil {
		return nil, err
	}

	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		AccountID: clm.AccountID,
		Code:      req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{
		Method:               string(resp.Method),
		BackupCodesRemaining: resp.BackupCodesRemaining,
		BackupCodesLow:       resp.BackupCodesLow,
	}, nil
}

// AdminReset disables two-factor on another account. The usecase checks the
// caller's permission.
func (h *HTTPEndpoint) AdminReset(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.AdminReset(r.Context(), usecase.AdminResetInput{AccountID: id}); err != nil {
		return nil, err
	}

	return AdminResetResponse{}, nil
}
