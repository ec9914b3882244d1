package errs

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestPolicyError(t *testing.T) {
	err := errors.Wrap(Denied("locked", "Queue is currently locked"), "enqueue")

	assert.True(t, errors.Is(err, ErrPolicyDenied))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "locked", PolicyCode(err))
	assert.Contains(t, err.Error(), "Queue is currently locked")

	assert.Equal(t, "", PolicyCode(ErrNotFound))
	assert.Equal(t, "policy denied: full", Denied("full", "").Error())
}
