package security_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/security"
)

type testLinter struct {
	issues []security.Issue
	err    error
}

func (l testLinter) Lint(ctx context.Context, script string) ([]security.Issue, error) {
	return l.issues, l.err
}

func TestScannerScan(t *testing.T) {
	tests := map[string]struct {
		linter    security.Linter
		script    string
		expValid  bool
		expIssues int
	}{
		"A harmless script should be valid with no issues": {
			script:   "#!/bin/sh\necho hello\n",
			expValid: true,
		},

		"Removing the filesystem root should be critical and invalid": {
			script:    "#!/bin/sh\nrm -rf /\n",
			expValid:  false,
			expIssues: 1,
		},

		"Removing a scoped path should not be flagged": {
			script:   "#!/bin/sh\nrm -rf /opt/agent\n",
			expValid: true,
		},

		"Writing to a block device should be critical and invalid": {
			script:    "dd if=/dev/zero of=/dev/sda bs=1M\n",
			expValid:  false,
			expIssues: 1,
		},

		"A fork bomb should be critical and invalid": {
			script:    ":(){ :|:& };:\n",
			expValid:  false,
			expIssues: 1,
		},

		"Download piped into a shell should be high severity but valid": {
			script:    "curl -sL https://example.com/install.sh | sh\n",
			expValid:  true,
			expIssues: 1,
		},

		"An embedded credential should be medium severity but valid": {
			script:    "#!/bin/sh\nexport DB_PASSWORD=hunter2\necho connecting\n",
			expValid:  true,
			expIssues: 1,
		},

		"Linter error-level findings should mark the script invalid": {
			script: "#!/bin/sh\necho ok\n",
			linter: testLinter{issues: []security.Issue{
				{Line: 2, Severity: security.SeverityCritical, Message: "shellcheck: parse error"},
			}},
			expValid:  false,
			expIssues: 1,
		},

		"Linter failures should be skipped, never block the script": {
			script:   "#!/bin/sh\necho ok\n",
			linter:   testLinter{err: fmt.Errorf("shellcheck crashed")},
			expValid: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			scanner, err := security.NewScanner(security.ScannerConfig{
				Linter: test.linter,
				Logger: log.Noop,
			})
			require.NoError(err)

			result := scanner.Scan(context.TODO(), test.script)

			assert.Equal(test.expValid, result.Valid)
			assert.Len(result.Issues, test.expIssues)
		})
	}
}
