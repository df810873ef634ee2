package signal

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	rl := NewRoomRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"))

	now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow("u1"))
}

func TestErrorCodes(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("join x: %w", app.ErrRoomNotFound): codeRoomNotFound,
		fmt.Errorf("leave x: %w", app.ErrNotMember):   codeNotMember,
		app.ErrNotSpace:                               codeNotSpace,
		app.ErrHierarchyCycle:                         codeCycle,
		domain.ErrRoomNameTooLong:                     codeInvalidName,
		domain.ErrUsernameEmpty:                       codeInvalidName,
		errors.New("disk on fire"):                    codeInternal,
	}
	for err, want := range cases {
		assert.Equal(t, want, errorCode(err), err.Error())
	}
}
