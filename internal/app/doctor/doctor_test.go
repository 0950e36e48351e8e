package doctor_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intinstall/intinstall/internal/app/doctor"
	"github.com/intinstall/intinstall/internal/model"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func TestServiceCheck(t *testing.T) {
	tests := map[string]struct {
		pingErr     error
		useTempDir  bool
		baseImage   string
		lookPathErr error
		expStatus   map[string]model.CheckStatus
		expErrors   bool
	}{
		"A healthy setup should pass every check": {
			useTempDir: true,
			baseImage:  "ubuntu:22.04",
			expStatus: map[string]model.CheckStatus{
				"docker_daemon": model.CheckStatusOK,
				"templates_dir": model.CheckStatusOK,
				"base_image":    model.CheckStatusOK,
				"shellcheck":    model.CheckStatusOK,
			},
		},

		"An unreachable daemon should be an error": {
			pingErr:    fmt.Errorf("connection refused"),
			useTempDir: true,
			baseImage:  "ubuntu:22.04",
			expStatus:  map[string]model.CheckStatus{"docker_daemon": model.CheckStatusError},
			expErrors:  true,
		},

		"A missing templates directory should be an error": {
			baseImage: "ubuntu:22.04",
			expStatus: map[string]model.CheckStatus{"templates_dir": model.CheckStatusError},
			expErrors: true,
		},

		"A missing base image should be an error": {
			useTempDir: true,
			expStatus:  map[string]model.CheckStatus{"base_image": model.CheckStatusError},
			expErrors:  true,
		},

		"A missing shellcheck binary should only be a warning": {
			useTempDir:  true,
			baseImage:   "ubuntu:22.04",
			lookPathErr: fmt.Errorf("not found"),
			expStatus:   map[string]model.CheckStatus{"shellcheck": model.CheckStatusWarning},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			templatesDir := "/does/not/exist"
			if test.useTempDir {
				templatesDir = t.TempDir()
			}

			svc, err := doctor.NewService(doctor.ServiceConfig{
				Runtime:      fakePinger{err: test.pingErr},
				TemplatesDir: templatesDir,
				BaseImage:    test.baseImage,
				LookPath: func(file string) (string, error) {
					if test.lookPathErr != nil {
						return "", test.lookPathErr
					}
					return "/usr/bin/" + file, nil
				},
			})
			require.NoError(t, err)

			results := svc.Check(context.TODO())

			byID := map[string]model.CheckStatus{}
			for _, r := range results {
				byID[r.ID] = r.Status
			}
			for id, status := range test.expStatus {
				assert.Equal(status, byID[id], id)
			}
			assert.Equal(test.expErrors, model.HasErrors(results))
		})
	}
}
