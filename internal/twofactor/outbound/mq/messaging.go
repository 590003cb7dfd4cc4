package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/shared/event"
	"github.com/shandysiswandi/twofa/internal/twofactor/usecase"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishTwoFactorEnabled(ctx context.Context, msg usecase.TwoFactorEnabledEvent) error {
	return m.publish(ctx, "PublishTwoFactorEnabled", event.TwoFactorEnabledDestination, msg.AccountID,
		event.TwoFactorEnabledMessage{
			AccountID:  msg.AccountID,
			VerifiedAt: msg.VerifiedAt,
		})
}

func (m *Messaging) PublishTwoFactorDisabled(ctx context.Context, msg usecase.TwoFactorDisabledEvent) error {
	return m.publish(ctx, "PublishTwoFactorDisabled", event.TwoFactorDisabledDestination, msg.AccountID,
		event.TwoFactorDisabledMessage{
			AccountID:  msg.AccountID,
			Reason:     string(msg.Reason),
			DisabledAt: msg.DisabledAt,
		})
}

func (m *Messaging) PublishBackupCodesRegenerated(ctx context.Context, msg usecase.BackupCodesRegeneratedEvent) error {
	return m.publish(ctx, "PublishBackupCodesRegenerated", event.BackupCodesRegeneratedDestination, msg.AccountID,
		event.BackupCodesRegeneratedMessage{
			AccountID: msg.AccountID,
			Count:     msg.Count,
		})
}

func (m *Messaging) PublishBackupCodesLow(ctx context.Context, msg usecase.BackupCodesLowEvent) error {
	return m.publish(ctx, "PublishBackupCodesLow", event.BackupCodesLowDestination, msg.AccountID,
		event.BackupCodesLowMessage{
			AccountID: msg.AccountID,
			Remaining: msg.Remaining,
		})
}

// publish keys every message by account so brokers that partition or order
// by key keep one account's events in sequence.
func (m *Messaging) publish(ctx context.Context, name, destination string, accountID int64, payload any) error {
	ctx, span := m.ins.Tracer("twofactor.outbound.mq").Start(ctx, name)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	key := strconv.FormatInt(accountID, 10)
	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:        body,
		Key:         []byte(key),
		OrderingKey: key,
		Headers:     []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
