package retry_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/intinstall/intinstall/internal/retry"
)

func TestDo(t *testing.T) {
	tests := map[string]struct {
		cfg         retry.Config
		failUntil   int
		expErr      bool
		expAttempts int
	}{
		"Succeeding on the first attempt should not retry": {
			cfg:         retry.Config{Times: 3, Delay: time.Millisecond},
			failUntil:   0,
			expAttempts: 1,
		},

		"Failing attempts should be retried until success": {
			cfg:         retry.Config{Times: 3, Delay: time.Millisecond},
			failUntil:   2,
			expAttempts: 3,
		},

		"Exhausting the retry budget should return the last error": {
			cfg:         retry.Config{Times: 2, Delay: time.Millisecond},
			failUntil:   10,
			expErr:      true,
			expAttempts: 3,
		},

		"Zero retries should run the function exactly once": {
			cfg:         retry.Config{},
			failUntil:   10,
			expErr:      true,
			expAttempts: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			attempts := 0
			err := retry.Do(context.Background(), test.cfg, func(ctx context.Context) error {
				attempts++
				if attempts <= test.failUntil {
					return fmt.Errorf("attempt %d failed", attempts)
				}
				return nil
			})

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
			assert.Equal(test.expAttempts, attempts)
		})
	}
}

func TestDoCancelledContext(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := retry.Do(ctx, retry.Config{Times: 10, Delay: 50 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		cancel()
		return fmt.Errorf("always fails")
	})

	assert.Error(err)
	assert.Equal(1, attempts)
}
