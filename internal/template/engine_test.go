package template_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/template"
)

// writeTemplates lays out a template hierarchy in a temp dir. Keys are
// relative paths without the extension.
func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel+template.Ext)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return dir
}

func TestEngineResolve(t *testing.T) {
	tests := map[string]struct {
		files   map[string]string
		spec    template.RenderSpec
		expErr  bool
		expPath string
	}{
		"An exact OS and version match should win over everything else": {
			files: map[string]string{
				"redis/ubuntu/22.04/install": "exact",
				"redis/ubuntu/install":       "os",
				"redis/default/install":      "default",
				"generic/install":            "generic",
			},
			spec: template.RenderSpec{
				Integration: "redis", Operation: model.OperationInstall,
				OS: "ubuntu", OSVersion: "22.04",
			},
			expPath: "redis/ubuntu/22.04/install",
		},

		"Without a version match the OS level template should win": {
			files: map[string]string{
				"redis/ubuntu/install":  "os",
				"redis/default/install": "default",
				"generic/install":       "generic",
			},
			spec: template.RenderSpec{
				Integration: "redis", Operation: model.OperationInstall,
				OS: "ubuntu", OSVersion: "24.04",
			},
			expPath: "redis/ubuntu/install",
		},

		"The integration default should win over the generic fallback": {
			files: map[string]string{
				"foo/default/install": "default",
				"generic/install":     "generic",
			},
			spec: template.RenderSpec{
				Integration: "foo", Operation: model.OperationInstall,
				OS: "ubuntu", OSVersion: "22.04",
			},
			expPath: "foo/default/install",
		},

		"With nothing integration specific the generic template should be used": {
			files: map[string]string{
				"generic/uninstall": "generic",
			},
			spec: template.RenderSpec{
				Integration: "foo", Operation: model.OperationUninstall,
				OS: "debian",
			},
			expPath: "generic/uninstall",
		},

		"No template at any level should fail with a script generation error": {
			files: map[string]string{},
			spec: template.RenderSpec{
				Integration: "foo", Operation: model.OperationVerify,
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			dir := writeTemplates(t, test.files)
			engine, err := template.NewEngine(template.EngineConfig{Dir: dir})
			require.NoError(t, err)

			path, err := engine.Resolve(test.spec)

			if test.expErr {
				assert.Error(err)
				assert.ErrorIs(err, model.ErrScriptGeneration)
			} else {
				assert.NoError(err)
				assert.Equal(filepath.Join(dir, test.expPath+template.Ext), path)
			}
		})
	}
}

func TestEngineRender(t *testing.T) {
	tests := map[string]struct {
		template string
		params   map[string]any
		expText  string
	}{
		"Scalar placeholders should be substituted": {
			template: "redis-cli -h {{redis_host}} -p {{redis_port}} ping\n",
			params:   map[string]any{"redis_host": "localhost", "redis_port": 6379.0},
			expText:  "redis-cli -h localhost -p 6379 ping\n",
		},

		"Unknown placeholders should be left untouched": {
			template: "echo {{known}} {{unknown}}\n",
			params:   map[string]any{"known": "yes"},
			expText:  "echo yes {{unknown}}\n",
		},

		"A truthy bare key condition should keep its block": {
			template: "cmd{{#if redis_password}} -a {{redis_password}}{{/if}}\n",
			params:   map[string]any{"redis_password": "s3cret"},
			expText:  "cmd -a s3cret\n",
		},

		"A missing bare key condition should drop its block": {
			template: "cmd{{#if redis_password}} -a {{redis_password}}{{/if}}\n",
			params:   map[string]any{},
			expText:  "cmd\n",
		},

		"A binary comparison condition should be evaluated": {
			template: "{{#if params.workers > 1}}parallel{{/if}}serial\n",
			params:   map[string]any{"workers": 4.0},
			expText:  "parallelserial\n",
		},

		"An unparseable condition should always evaluate to false": {
			template: "{{#if what ~~ ever}}kept{{/if}}base\n",
			params:   map[string]any{"what": "x", "ever": "x"},
			expText:  "base\n",
		},

		"The integration name should be available as an implicit parameter": {
			template: "echo removing {{integration_name}}\n",
			params:   map[string]any{},
			expText:  "echo removing foo\n",
		},

		"Multiline conditional blocks should work": {
			template: "start\n{{#if debug}}set -x\nexec 2>&1\n{{/if}}end\n",
			params:   map[string]any{"debug": true},
			expText:  "start\nset -x\nexec 2>&1\nend\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			dir := writeTemplates(t, map[string]string{"foo/default/install": test.template})
			engine, err := template.NewEngine(template.EngineConfig{Dir: dir})
			require.NoError(t, err)

			script, err := engine.Render(template.RenderSpec{
				Integration: "foo",
				Operation:   model.OperationInstall,
				Params:      test.params,
			})

			assert.NoError(err)
			assert.Equal(test.expText, script.Text)
		})
	}
}

func TestEngineRenderValidation(t *testing.T) {
	assert := assert.New(t)

	engine, err := template.NewEngine(template.EngineConfig{Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = engine.Render(template.RenderSpec{Operation: model.OperationInstall})
	assert.ErrorIs(err, model.ErrScriptGeneration)

	_, err = engine.Render(template.RenderSpec{Integration: "redis"})
	assert.ErrorIs(err, model.ErrScriptGeneration)
}

func TestEngineRenderCaching(t *testing.T) {
	assert := assert.New(t)

	dir := writeTemplates(t, map[string]string{"foo/default/install": "echo {{v}}\n"})
	engine, err := template.NewEngine(template.EngineConfig{Dir: dir})
	require.NoError(t, err)

	spec := template.RenderSpec{
		Integration: "foo",
		Operation:   model.OperationInstall,
		Params:      map[string]any{"v": "1"},
	}

	first, err := engine.Render(spec)
	require.NoError(t, err)

	// The second render is served from the cache even if the file changes
	// underneath.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo/default/install"+template.Ext), []byte("changed\n"), 0o644))
	second, err := engine.Render(spec)
	require.NoError(t, err)
	assert.Equal(first.Text, second.Text)

	// Different non-secret parameters miss the cache.
	spec.Params = map[string]any{"v": "2"}
	third, err := engine.Render(spec)
	require.NoError(t, err)
	assert.NotEqual(first.Text, third.Text)
}
