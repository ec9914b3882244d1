package connect

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/osa030/19queue/internal/domain/errs"
)

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code connect.Code
	}{
		{"not found", errors.Wrap(errs.ErrNotFound, "entry e1"), connect.CodeNotFound},
		{"policy", errs.Denied("full", "Queue is full"), connect.CodeFailedPrecondition},
		{"invalid state", errors.Wrap(errs.ErrInvalidState, "entry is playing"), connect.CodeFailedPrecondition},
		{"already exists", errors.Wrap(errs.ErrAlreadyExists, "track"), connect.CodeAlreadyExists},
		{"permission", errors.Wrap(errs.ErrPermissionDenied, "owner"), connect.CodePermissionDenied},
		{"invalid argument", errors.Mark(errors.New("bad status"), errs.ErrInvalidArgument), connect.CodeInvalidArgument},
		{"canceled", errors.Wrap(context.Canceled, "query"), connect.CodeCanceled},
		{"deadline", context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{"unknown", errors.New("disk on fire"), connect.CodeInternal},
		{"already connect", connect.NewError(connect.CodeUnavailable, errors.New("down")), connect.CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, connect.CodeOf(toConnectError(tt.err)))
		})
	}
	assert.NoError(t, toConnectError(nil))
}

func TestToConnectError_PolicyKeepsReason(t *testing.T) {
	err := toConnectError(errors.Wrap(errs.Denied("locked", "Queue is currently locked"), "enqueue"))

	var ce *connect.Error
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "Queue is currently locked", ce.Message())
	assert.Equal(t, "locked", DenyCode(err))
	assert.Equal(t, "", DenyCode(errors.New("plain")))
}

func TestToConnectError_InternalHidesDetail(t *testing.T) {
	err := toConnectError(errors.New("password=hunter2"))
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestCodec(t *testing.T) {
	var c jsonCodec
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&RemoveRequest{ID: "e1"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id":"e1"}`, string(data))

	var req RemoveRequest
	assert.NoError(t, c.Unmarshal(data, &req))
	assert.Equal(t, "e1", req.ID)
	assert.NoError(t, c.Unmarshal(nil, &req))
	assert.Error(t, c.Unmarshal([]byte("{"), &req))
}
