package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/pubsub"
	"github.com/dkeye/Conclave/internal/repository"
)

type allowAll struct{}

func (allowAll) HasPermission(context.Context, domain.ConferenceID, domain.ParticipantID, string) (bool, error) {
	return true, nil
}

type resolverFunc func(key string) (bool, error)

func (f resolverFunc) HasPermission(_ context.Context, _ domain.ConferenceID,
	_ domain.ParticipantID, key string) (bool, error) {
	return f(key)
}

type testCommand struct {
	Base
	invalid bool
}

func (c testCommand) Type() Type { return "test/run" }
func (c testCommand) Validate() error {
	if c.invalid {
		return errors.New("bad field")
	}
	return nil
}

type testNotification struct {
	conference domain.ConferenceID
}

func (n testNotification) Kind() string                      { return "test.ran" }
func (n testNotification) ConferenceID() domain.ConferenceID { return n.conference }

type testHandler struct {
	permissions []string
	result      *Result
	calls       int
}

func (h *testHandler) RequiredPermissions() []string { return h.permissions }
func (h *testHandler) Handle(context.Context, Command) *Result {
	h.calls++
	return h.result
}

func newDispatcher(t *testing.T, resolver PermissionResolver) (*Dispatcher, *pubsub.Broker[Notification]) {
	t.Helper()
	bus := pubsub.NewBroker[Notification]()
	t.Cleanup(bus.Close)
	return NewDispatcher(resolver, bus), bus
}

func TestDispatchNoHandler(t *testing.T) {
	d, _ := newDispatcher(t, allowAll{})
	result := d.Dispatch(context.Background(), testCommand{Base: Base{Conference: "c", Caller: "p"}})
	require.False(t, result.Success)
	require.Equal(t, CodeNoHandler, result.Code)
}

func TestDispatchDuplicateRegistration(t *testing.T) {
	d, _ := newDispatcher(t, allowAll{})
	require.NoError(t, d.Register("test/run", &testHandler{}))
	require.Error(t, d.Register("test/run", &testHandler{}))
	require.Panics(t, func() { d.MustRegister("test/run", &testHandler{}) })
}

func TestDispatchValidationRunsBeforeHandler(t *testing.T) {
	h := &testHandler{result: Ok()}
	d, _ := newDispatcher(t, allowAll{})
	d.MustRegister("test/run", h)

	result := d.Dispatch(context.Background(), testCommand{invalid: true})
	require.False(t, result.Success)
	require.Equal(t, CodeValidation, result.Code)
	require.Zero(t, h.calls)
}

func TestDispatchPermissionDenied(t *testing.T) {
	h := &testHandler{permissions: []string{"rooms/canCreateAndRemove"}, result: Ok()}
	d, _ := newDispatcher(t, resolverFunc(func(string) (bool, error) { return false, nil }))
	d.MustRegister("test/run", h)

	result := d.Dispatch(context.Background(), testCommand{})
	require.False(t, result.Success)
	require.Equal(t, CodePermissionDenied, result.Code)
	require.Zero(t, h.calls)
}

func TestDispatchResolverFailureIsStoreUnavailable(t *testing.T) {
	h := &testHandler{permissions: []string{"x"}, result: Ok()}
	d, _ := newDispatcher(t, resolverFunc(func(string) (bool, error) {
		return false, fmt.Errorf("%w: connection refused", repository.ErrStoreUnavailable)
	}))
	d.MustRegister("test/run", h)

	result := d.Dispatch(context.Background(), testCommand{})
	require.False(t, result.Success)
	require.Equal(t, CodeStoreUnavailable, result.Code)
	// The wire message must not leak the internal error.
	require.NotContains(t, result.Message, "connection refused")
	require.Zero(t, h.calls)
}

func TestDispatchPublishesNotificationsOnSuccess(t *testing.T) {
	n := testNotification{conference: "c"}
	h := &testHandler{result: Ok(n)}
	d, bus := newDispatcher(t, allowAll{})
	d.MustRegister("test/run", h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := bus.Subscribe(ctx)

	result := d.Dispatch(context.Background(), testCommand{Base: Base{Conference: "c", Caller: "p"}})
	require.True(t, result.Success)

	select {
	case got := <-sub:
		require.Equal(t, Notification(n), got)
	case <-time.After(time.Second):
		t.Fatal("notification never published")
	}
}

func TestDispatchSuppressesNotificationsOnFailure(t *testing.T) {
	h := &testHandler{result: Fail(CodeConflict, "nope")}
	h.result.Notifications = []Notification{testNotification{conference: "c"}}
	d, bus := newDispatcher(t, allowAll{})
	d.MustRegister("test/run", h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := bus.Subscribe(ctx)

	result := d.Dispatch(context.Background(), testCommand{})
	require.False(t, result.Success)

	select {
	case <-sub:
		t.Fatal("failed command must not publish")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	h := &testHandler{result: Ok()}
	d, _ := newDispatcher(t, allowAll{})
	d.MustRegister("test/run", h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := d.Dispatch(ctx, testCommand{})
	require.False(t, result.Success)
	require.Zero(t, h.calls)
}

func TestFromErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code Code
	}{
		{fmt.Errorf("%w: abc", repository.ErrRoomNotFound), CodeNotFound},
		{repository.ErrConferenceNotFound, CodeNotFound},
		{domain.ErrDuplicateAssignment, CodeConflict},
		{domain.ErrAssignmentOutOfRange, CodeConflict},
		{domain.ErrDisplayNameEmpty, CodeValidation},
		{errors.New("dial tcp: refused"), CodeStoreUnavailable},
	}
	for _, tt := range tests {
		result := FromError(tt.err)
		require.False(t, result.Success)
		require.Equal(t, tt.code, result.Code, "for error %v", tt.err)
	}

	// Store failures keep the cause for logging but hide it from the client.
	cause := errors.New("dial tcp: refused")
	result := FromError(cause)
	require.ErrorIs(t, result.Err, cause)
	require.Equal(t, "storage temporarily unavailable", result.Message)
}
