package firebase

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"
)

const fcmBatchLimit = 500

// TokenDeactivator is called when FCM reports a device token as invalid.
type TokenDeactivator func(ctx context.Context, token string) error

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Messenger implements linking.Notifier over Firebase Cloud Messaging.
type Messenger struct {
	sender      multicastSender
	deactivator TokenDeactivator
}

// NewMessenger wraps an FCM client. deactivator may be nil.
func NewMessenger(client *messaging.Client, deactivator TokenDeactivator) *Messenger {
	return &Messenger{sender: client, deactivator: deactivator}
}

// SendDataOnly sends a silent data message to every token, batching at
// the FCM multicast limit. Per-token failures are logged, not returned.
func (m *Messenger) SendDataOnly(ctx context.Context, tokens []string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	var totalSuccess, totalFailure int
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		resp, err := m.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Data:   data,
		})
		if err != nil {
			return fmt.Errorf("failed to send FCM data-only multicast: %w", err)
		}

		totalSuccess += resp.SuccessCount
		totalFailure += resp.FailureCount
		if resp.FailureCount > 0 {
			m.handleMulticastFailures(ctx, batch, resp)
		}
	}

	log.Printf("FCM data-only multicast: %d success, %d failure", totalSuccess, totalFailure)
	return nil
}

func (m *Messenger) handleMulticastFailures(ctx context.Context, tokens []string, resp *messaging.BatchResponse) {
	for i, sendResp := range resp.Responses {
		if sendResp.Error == nil {
			continue
		}
		if messaging.IsUnregistered(sendResp.Error) || messaging.IsInvalidArgument(sendResp.Error) {
			log.Printf("Invalid FCM token at index %d, removing: %v", i, sendResp.Error)
			m.deactivateToken(ctx, tokens[i])
		} else {
			log.Printf("FCM send error at index %d: %v", i, sendResp.Error)
		}
	}
}

func (m *Messenger) deactivateToken(ctx context.Context, token string) {
	if m.deactivator == nil {
		return
	}
	if err := m.deactivator(ctx, token); err != nil {
		log.Printf("Failed to remove FCM token: %v", err)
	}
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
