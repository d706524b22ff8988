package firebase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	batches [][]string
	data    []map[string]string
	err     error
}

func (f *fakeSender) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, msg.Tokens)
	f.data = append(f.data, msg.Data)

	responses := make([]*messaging.SendResponse, len(msg.Tokens))
	for i := range responses {
		responses[i] = &messaging.SendResponse{Success: true}
	}
	return &messaging.BatchResponse{SuccessCount: len(msg.Tokens), Responses: responses}, nil
}

func TestSendDataOnly_BatchesAtLimit(t *testing.T) {
	sender := &fakeSender{}
	m := &Messenger{sender: sender}

	tokens := make([]string, fcmBatchLimit+3)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", i)
	}

	data := map[string]string{"type": "banks_updated", "path": "/"}
	require.NoError(t, m.SendDataOnly(context.Background(), tokens, data))

	require.Len(t, sender.batches, 2)
	assert.Len(t, sender.batches[0], fcmBatchLimit)
	assert.Len(t, sender.batches[1], 3)
	assert.Equal(t, data, sender.data[1])
}

func TestSendDataOnly_NoTokens(t *testing.T) {
	sender := &fakeSender{}
	m := &Messenger{sender: sender}

	require.NoError(t, m.SendDataOnly(context.Background(), nil, map[string]string{"type": "banks_updated"}))
	assert.Empty(t, sender.batches)
}

func TestSendDataOnly_TransportError(t *testing.T) {
	m := &Messenger{sender: &fakeSender{err: errors.New("unavailable")}}

	err := m.SendDataOnly(context.Background(), []string{"t1"}, nil)
	assert.ErrorContains(t, err, "unavailable")
}

func TestHandleMulticastFailures_OtherErrorsKeepToken(t *testing.T) {
	var removed []string
	m := &Messenger{deactivator: func(ctx context.Context, token string) error {
		removed = append(removed, token)
		return nil
	}}

	m.handleMulticastFailures(context.Background(), []string{"t1", "t2"}, &messaging.BatchResponse{
		FailureCount: 1,
		Responses: []*messaging.SendResponse{
			{Success: true},
			{Error: errors.New("internal")},
		},
	})

	assert.Empty(t, removed)
}

func TestChunkTokens(t *testing.T) {
	chunks := chunkTokens([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)
	assert.Nil(t, chunkTokens(nil, 2))
}
