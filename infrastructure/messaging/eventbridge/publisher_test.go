package eventbridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"deployboard/domain/events"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(len(in.Entries))
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func someEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewModuleRemoved("database", fmt.Sprintf("m%d", i), time.Now())
	}
	return out
}

func TestPublishBatchChunks(t *testing.T) {
	client := &mockClient{}
	client.On("PutEvents", 10).Return(&eventbridge.PutEventsOutput{}, nil).Twice()
	client.On("PutEvents", 3).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	p := NewPublisher(client, "bus", "deployboard", zap.NewNop())
	require.NoError(t, p.PublishBatch(context.Background(), someEvents(23)))
	client.AssertExpectations(t)
}

func TestPublishReportsFailures(t *testing.T) {
	client := &mockClient{}
	client.On("PutEvents", 2).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("ok")},
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("nope")},
		},
	}, nil).Once()

	p := NewPublisher(client, "bus", "deployboard", zap.NewNop())
	err := p.PublishBatch(context.Background(), someEvents(2))
	assert.ErrorContains(t, err, "1 events failed")

	client.On("PutEvents", 1).Return(nil, errors.New("network")).Once()
	assert.Error(t, p.Publish(context.Background(), someEvents(1)[0]))
}

func TestForwarderFlushesOnClose(t *testing.T) {
	client := &mockClient{}
	client.On("PutEvents", 3).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	p := NewPublisher(client, "bus", "deployboard", zap.NewNop())
	f := NewForwarder(p, 16, time.Hour, zap.NewNop())
	for _, e := range someEvents(3) {
		require.NoError(t, f.Handle(context.Background(), e))
	}
	require.NoError(t, f.Close(context.Background()))
	client.AssertExpectations(t)

	assert.Error(t, f.Handle(context.Background(), someEvents(1)[0]))
}

func TestForwarderFlushesFullBatches(t *testing.T) {
	client := &mockClient{}
	sent := make(chan struct{}, 1)
	client.On("PutEvents", 10).Return(&eventbridge.PutEventsOutput{}, nil).Run(func(mock.Arguments) {
		sent <- struct{}{}
	}).Once()

	p := NewPublisher(client, "bus", "deployboard", zap.NewNop())
	f := NewForwarder(p, 32, time.Hour, zap.NewNop())
	defer f.Close(context.Background())

	for _, e := range someEvents(10) {
		require.NoError(t, f.Handle(context.Background(), e))
	}
	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("full batch was not sent")
	}
}
