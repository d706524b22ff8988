package linking

import (
	"context"
	"fmt"

	"banklink/internal/shared/logger"
)

// BankListRevalidator drops the cached bank list of a user and, when a
// notifier is configured, tells the user's devices to reload it.
type BankListRevalidator struct {
	lists    ListInvalidator
	users    UserLookup
	notifier Notifier
}

// NewBankListRevalidator returns a revalidator. users and notifier may be
// nil, in which case no push is sent.
func NewBankListRevalidator(lists ListInvalidator, users UserLookup, notifier Notifier) *BankListRevalidator {
	return &BankListRevalidator{lists: lists, users: users, notifier: notifier}
}

func (r *BankListRevalidator) Revalidate(ctx context.Context, userID string) error {
	r.lists.Invalidate(userID)

	if r.notifier == nil || r.users == nil {
		return nil
	}

	u, err := r.users.GetUserInfo(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user for revalidation: %w", err)
	}
	if len(u.DeviceTokens) == 0 {
		return nil
	}

	if err := r.notifier.SendDataOnly(ctx, u.DeviceTokens, map[string]string{
		"type": "banks_updated",
		"path": "/",
	}); err != nil {
		return fmt.Errorf("failed to notify devices: %w", err)
	}

	logger.Info("bank list revalidated", logger.Fields{"user_id": userID, "devices": len(u.DeviceTokens)})
	return nil
}
