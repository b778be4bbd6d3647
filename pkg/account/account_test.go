package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"someuser", "someuser"},
		{"@someuser", "someuser"},
		{"  @someuser  ", "someuser"},
		{"  spaced  ", "spaced"},
		{"@MixedCase", "mixedcase"},
		{"", ""},
		{"@", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUsername(tt.in))
	}
}

func TestSessionValid(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Valid())
	assert.False(t, (&Session{}).Valid())
	assert.False(t, (&Session{SessionID: "abc"}).Valid())
	assert.False(t, (&Session{UserID: "1"}).Valid())
	assert.True(t, (&Session{SessionID: "abc", UserID: "1"}).Valid())
}
