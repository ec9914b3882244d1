package token

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)

	raw, err := s.Issue(Identity{Email: " Alice@Example.com ", Name: "Alice", ExternalID: "sp-1"})
	require.NoError(t, err)

	id, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", id.Email)
	assert.Equal(t, "Alice", id.Name)
	assert.Equal(t, "sp-1", id.ExternalID)
}

func TestSigner_Rejects(t *testing.T) {
	s, err := NewSigner("secret", time.Minute)
	require.NoError(t, err)
	other, err := NewSigner("other", time.Minute)
	require.NoError(t, err)

	raw, err := other.Issue(Identity{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = s.Verify(raw)
	assert.True(t, errors.Is(err, ErrInvalid))

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	raw, err = s.Issue(Identity{Email: "a@example.com"})
	require.NoError(t, err)
	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Verify(raw)
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = s.Verify("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = s.Issue(Identity{})
	assert.Error(t, err)

	_, err = NewSigner("", time.Minute)
	assert.Error(t, err)
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FromHeader(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
