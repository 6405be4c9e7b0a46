package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	errs []error
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcher_RunDelivers(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), time.Second)
	wa := &recordingSender{}
	d.Register(ChannelWhatsApp, wa)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	require.True(t, d.Enqueue(OTPMessage("+919876543210", "123456", 5)))
	require.True(t, d.Enqueue(ManualReminderMessage("+919876543210", "Ravi", "Shop", 100)))

	assert.Eventually(t, func() bool { return wa.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestDispatcher_EnqueueFullQueueDrops(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), time.Second)
	for i := 0; i < defaultQueueSize; i++ {
		require.True(t, d.Enqueue(Message{Channel: ChannelWhatsApp}))
	}
	assert.False(t, d.Enqueue(Message{Channel: ChannelWhatsApp}))
}

func TestDispatcher_DeliverErrors(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), time.Second)

	err := d.Deliver(context.Background(), Message{Channel: ChannelPush})
	assert.ErrorIs(t, err, ErrNoSender)

	failing := &recordingSender{errs: []error{errors.New("boom")}}
	d.Register(ChannelWhatsApp, failing)
	err = d.Deliver(context.Background(), Message{Channel: ChannelWhatsApp})
	assert.EqualError(t, err, "boom")
}

func TestDispatcher_RetriesAfterRateLimit(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), time.Second)
	s := &recordingSender{errs: []error{&RateLimitError{RetryAfter: 0}}}
	d.Register(ChannelWhatsApp, s)

	require.NoError(t, d.Deliver(context.Background(), Message{Channel: ChannelWhatsApp}))
	assert.Equal(t, 2, s.count())
}

func TestDispatcher_UnregisteredToken(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), time.Second)
	d.Register(ChannelPush, &recordingSender{errs: []error{ErrUnregistered}})

	var removed string
	d.OnUnregistered(func(ctx context.Context, token string) { removed = token })

	err := d.Deliver(context.Background(), Message{Channel: ChannelPush, To: "stale-token"})
	assert.ErrorIs(t, err, ErrUnregistered)
	assert.Equal(t, "stale-token", removed)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zap.NewNop())
	assert.NoError(t, s.Send(context.Background(), OTPMessage("+911234567890", "111111", 5)))
}
