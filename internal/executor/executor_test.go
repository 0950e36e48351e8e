package executor_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/intinstall/intinstall/internal/executor"
	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/runtime"
	"github.com/intinstall/intinstall/internal/runtime/runtimemock"
)

// releaseRecorder records every release so tests can assert the
// release-on-every-exit-path invariant.
type releaseRecorder struct {
	released []string
}

func (r *releaseRecorder) Release(id string) { r.released = append(r.released, id) }

func newTestService(t *testing.T, m *runtimemock.MockRuntime, rec *releaseRecorder) *executor.Service {
	t.Helper()

	svc, err := executor.NewService(executor.ServiceConfig{
		Runtime: m,
		Pool:    rec,
		Logger:  log.Noop,
	})
	require.NoError(t, err)

	return svc
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		mock        func(m *runtimemock.MockRuntime)
		opts        executor.RunOpts
		expErr      error
		expExitCode int
		expOutput   string
	}{
		"A successful run should return the captured output and exit code": {
			mock: func(m *runtimemock.MockRuntime) {
				m.On("Exec", mock.Anything, "env-1", []string{"/bin/sh", "-c", "echo hello"}, mock.Anything).Once().
					Run(func(args mock.Arguments) {
						opts := args.Get(3).(runtime.ExecOpts)
						io.WriteString(opts.Output, "hello\n")
					}).
					Return(0, nil)
			},
			expExitCode: 0,
			expOutput:   "hello\n",
		},

		"A non-zero exit should be a result, not an error": {
			mock: func(m *runtimemock.MockRuntime) {
				m.On("Exec", mock.Anything, "env-1", mock.Anything, mock.Anything).Once().Return(3, nil)
			},
			expExitCode: 3,
		},

		"Secrets in the output should be redacted before leaving the executor": {
			mock: func(m *runtimemock.MockRuntime) {
				m.On("Exec", mock.Anything, "env-1", mock.Anything, mock.Anything).Once().
					Run(func(args mock.Arguments) {
						opts := args.Get(3).(runtime.ExecOpts)
						io.WriteString(opts.Output, "license_key=ABCD1234WXYZ\n")
					}).
					Return(0, nil)
			},
			expExitCode: 0,
			expOutput:   "license_key=A**********Z\n",
		},

		"A timed out run should fail with an execution timeout error": {
			opts: executor.RunOpts{Timeout: 20 * time.Millisecond},
			mock: func(m *runtimemock.MockRuntime) {
				m.On("Exec", mock.Anything, "env-1", mock.Anything, mock.Anything).Once().
					Return(0, func(ctx context.Context, id string, command []string, opts runtime.ExecOpts) error {
						<-ctx.Done()
						return ctx.Err()
					})
			},
			expErr: model.ErrExecutionTimeout,
		},

		"A stream error should be surfaced as an execution error": {
			mock: func(m *runtimemock.MockRuntime) {
				m.On("Exec", mock.Anything, "env-1", mock.Anything, mock.Anything).Once().
					Return(0, model.NewError(model.ErrKindExecution, "stream broke"))
			},
			expErr: model.ErrExecution,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			m := &runtimemock.MockRuntime{}
			test.mock(m)
			rec := &releaseRecorder{}
			svc := newTestService(t, m, rec)

			command := "echo hello"
			result, err := svc.Run(context.TODO(), "env-1", command, test.opts)

			if test.expErr != nil {
				assert.Error(err)
				if modelErr, ok := test.expErr.(*model.Error); ok {
					assert.ErrorIs(err, modelErr)
				}
			} else {
				assert.NoError(err)
				assert.Equal(test.expExitCode, result.ExitCode)
				if test.expOutput != "" {
					assert.Equal(test.expOutput, result.Output)
				}
			}

			// The environment is released back exactly once on every exit
			// path: success, timeout or stream error.
			assert.Equal([]string{"env-1"}, rec.released)

			m.AssertExpectations(t)
		})
	}
}

func TestServiceRunScript(t *testing.T) {
	assert := assert.New(t)

	m := &runtimemock.MockRuntime{}
	m.On("CopyTo", mock.Anything, "env-1", mock.Anything, mock.Anything).Once().Return(nil)
	m.On("Exec", mock.Anything, "env-1", mock.MatchedBy(func(cmd []string) bool {
		return len(cmd) == 3 && cmd[0] == "/bin/sh" && cmd[1] == "-c"
	}), mock.Anything).Once().Return(0, nil)

	rec := &releaseRecorder{}
	svc := newTestService(t, m, rec)

	result, err := svc.RunScript(context.TODO(), "env-1", "#!/bin/sh\necho installing\n", executor.RunOpts{})

	assert.NoError(err)
	assert.Equal(0, result.ExitCode)
	assert.Equal([]string{"env-1"}, rec.released)

	m.AssertExpectations(t)
}

func TestServiceRunScriptCopyFailureReleases(t *testing.T) {
	assert := assert.New(t)

	m := &runtimemock.MockRuntime{}
	m.On("CopyTo", mock.Anything, "env-1", mock.Anything, mock.Anything).Once().
		Return(fmt.Errorf("no such container"))

	rec := &releaseRecorder{}
	svc := newTestService(t, m, rec)

	_, err := svc.RunScript(context.TODO(), "env-1", "echo hi\n", executor.RunOpts{})

	assert.Error(err)
	assert.Equal([]string{"env-1"}, rec.released)

	m.AssertExpectations(t)
}
