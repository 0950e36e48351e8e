package uninstall_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intinstall/intinstall/internal/app/uninstall"
	"github.com/intinstall/intinstall/internal/executor"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/security"
	"github.com/intinstall/intinstall/internal/template"
)

type fakePool struct {
	acquired int
	err      error
}

func (p *fakePool) Acquire(ctx context.Context, image string) (*model.Environment, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return &model.Environment{ID: "env-1", Image: image, Busy: true}, nil
}

type fakeRunner struct {
	scripts []string
	result  *model.ExecutionResult
	err     error
}

func (r *fakeRunner) RunScript(ctx context.Context, envID, script string, opts executor.RunOpts) (*model.ExecutionResult, error) {
	r.scripts = append(r.scripts, script)
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &model.ExecutionResult{ExitCode: 0, Output: "removed\n"}, nil
}

func newTestService(t *testing.T, files map[string]string, pool *fakePool, runner *fakeRunner) *uninstall.Service {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel+template.Ext)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	engine, err := template.NewEngine(template.EngineConfig{Dir: dir})
	require.NoError(t, err)
	scanner, err := security.NewScanner(security.ScannerConfig{})
	require.NoError(t, err)

	svc, err := uninstall.NewService(uninstall.ServiceConfig{
		Renderer: engine,
		Gate:     scanner,
		Pool:     pool,
		Runner:   runner,
		Image:    "ubuntu:22.04",
	})
	require.NoError(t, err)

	return svc
}

func TestServiceUninstall(t *testing.T) {
	tests := map[string]struct {
		files      map[string]string
		runner     *fakeRunner
		poolErr    error
		expSuccess bool
		expMessage string
	}{
		"A clean uninstall should succeed": {
			files:      map[string]string{"redis/default/uninstall": "apt-get remove -y redis\n"},
			runner:     &fakeRunner{},
			expSuccess: true,
		},

		"The generic uninstall template should be used as fallback": {
			files:      map[string]string{"generic/uninstall": "echo nothing to remove for {{integration_name}}\n"},
			runner:     &fakeRunner{},
			expSuccess: true,
		},

		"A missing template should fail before provisioning": {
			files:      map[string]string{},
			runner:     &fakeRunner{},
			expSuccess: false,
			expMessage: "could not generate uninstall script",
		},

		"A non-zero exit should come back as a failure result": {
			files:      map[string]string{"redis/default/uninstall": "apt-get remove -y redis\n"},
			runner:     &fakeRunner{result: &model.ExecutionResult{ExitCode: 2, Output: "package not installed\n"}},
			expSuccess: false,
			expMessage: "exited with code 2",
		},

		"A pool failure should come back as a failure result": {
			files:      map[string]string{"redis/default/uninstall": "apt-get remove -y redis\n"},
			runner:     &fakeRunner{},
			poolErr:    model.NewError(model.ErrKindResourceExhaustion, "pool at capacity"),
			expSuccess: false,
			expMessage: "could not provision environment",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			pool := &fakePool{err: test.poolErr}
			svc := newTestService(t, test.files, pool, test.runner)

			result, err := svc.Uninstall(context.TODO(), uninstall.Request{Integration: "redis"})
			require.NoError(t, err)

			assert.Equal(test.expSuccess, result.Success)
			if test.expMessage != "" {
				assert.Contains(result.Message, test.expMessage)
			}
		})
	}
}
