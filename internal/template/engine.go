// Package template resolves and renders the integration script templates
// from a layered filesystem hierarchy with a small conditional language.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/security"
)

// Ext is the file extension of script templates.
const Ext = ".sh.tmpl"

var (
	conditionalRegexp = regexp.MustCompile(`(?s)\{\{#if ([^\}]+?)\}\}(.*?)\{\{/if\}\}`)
	placeholderRegexp = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)
)

// EngineConfig is the configuration for the template engine.
type EngineConfig struct {
	// Dir is the root of the template hierarchy. Required.
	Dir string
	// TemplateCacheSize bounds the compiled template cache. Defaults to 64.
	TemplateCacheSize int
	// ScriptCacheSize bounds the rendered script cache. Defaults to 128.
	ScriptCacheSize int
	Logger          log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("templates dir is required")
	}
	if c.TemplateCacheSize <= 0 {
		c.TemplateCacheSize = 64
	}
	if c.ScriptCacheSize <= 0 {
		c.ScriptCacheSize = 128
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "template.Engine"})
	return nil
}

// Engine resolves and renders integration scripts.
type Engine struct {
	dir       string
	templates *boundedCache
	scripts   *boundedCache
	logger    log.Logger
}

// NewEngine creates a new template engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		dir:       cfg.Dir,
		templates: newBoundedCache(cfg.TemplateCacheSize),
		scripts:   newBoundedCache(cfg.ScriptCacheSize),
		logger:    cfg.Logger,
	}, nil
}

// RenderSpec identifies the script to render.
type RenderSpec struct {
	Integration string
	Operation   model.Operation
	// OS and OSVersion narrow the template lookup, both optional.
	OS        string
	OSVersion string
	Params    map[string]any
}

// Resolve returns the most specific existing template path for the spec,
// trying in order: {integration}/{os}/{version}, {integration}/{os},
// {integration}/default, generic.
func (e *Engine) Resolve(spec RenderSpec) (string, error) {
	var candidates []string
	if spec.OS != "" && spec.OSVersion != "" {
		candidates = append(candidates, filepath.Join(spec.Integration, spec.OS, spec.OSVersion, string(spec.Operation)+Ext))
	}
	if spec.OS != "" {
		candidates = append(candidates, filepath.Join(spec.Integration, spec.OS, string(spec.Operation)+Ext))
	}
	candidates = append(candidates,
		filepath.Join(spec.Integration, "default", string(spec.Operation)+Ext),
		filepath.Join("generic", string(spec.Operation)+Ext),
	)

	for _, c := range candidates {
		path := filepath.Join(e.dir, c)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", model.NewError(model.ErrKindScriptGeneration,
		"no template found for integration %q operation %q (tried %s)",
		spec.Integration, spec.Operation, strings.Join(candidates, ", "))
}

// Render resolves the template for the spec and renders it with the given
// parameters. Rendered scripts are cached keyed on integration, operation and
// a fingerprint of the non-secret parameters.
func (e *Engine) Render(spec RenderSpec) (*model.RenderedScript, error) {
	if spec.Integration == "" {
		return nil, model.NewError(model.ErrKindScriptGeneration, "integration name is required")
	}
	if spec.Operation == "" {
		return nil, model.NewError(model.ErrKindScriptGeneration, "operation is required")
	}

	cacheKey := e.scriptCacheKey(spec)
	if v, ok := e.scripts.get(cacheKey); ok {
		e.logger.Debugf("Rendered script cache hit for %s/%s", spec.Integration, spec.Operation)
		script := v.(model.RenderedScript)
		return &script, nil
	}

	path, err := e.Resolve(spec)
	if err != nil {
		return nil, err
	}

	text, err := e.loadTemplate(path)
	if err != nil {
		return nil, err
	}

	rendered := e.render(text, renderParams(spec))
	script := model.RenderedScript{Text: rendered, TemplatePath: path}
	e.scripts.put(cacheKey, script)

	e.logger.Debugf("Rendered %s/%s from %s", spec.Integration, spec.Operation, path)

	return &script, nil
}

func (e *Engine) loadTemplate(path string) (string, error) {
	if v, ok := e.templates.get(path); ok {
		return v.(string), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", model.WrapError(model.ErrKindScriptGeneration, err, "could not read template %s", path)
	}

	text := string(data)
	e.templates.put(path, text)

	return text, nil
}

// render applies conditional blocks first, then scalar placeholder
// substitution. Placeholders without a matching parameter are left untouched
// so broken renders are visible in the gate instead of silently empty.
func (e *Engine) render(text string, params map[string]any) string {
	text = conditionalRegexp.ReplaceAllStringFunc(text, func(block string) string {
		m := conditionalRegexp.FindStringSubmatch(block)
		if m == nil {
			return ""
		}
		if evalCondition(m[1], params) {
			return m[2]
		}
		return ""
	})

	text = placeholderRegexp.ReplaceAllStringFunc(text, func(ph string) string {
		key := placeholderRegexp.FindStringSubmatch(ph)[1]
		v, ok := params[key]
		if !ok {
			return ph
		}
		return scalarString(v)
	})

	return text
}

// renderParams copies the spec parameters and injects the implicit
// integration_name parameter templates can always rely on.
func renderParams(spec RenderSpec) map[string]any {
	if _, ok := spec.Params["integration_name"]; ok {
		return spec.Params
	}

	params := make(map[string]any, len(spec.Params)+1)
	for k, v := range spec.Params {
		params[k] = v
	}
	params["integration_name"] = spec.Integration

	return params
}

// scriptCacheKey fingerprints the parameter set excluding secrets, so cached
// rendered scripts never key on sensitive values.
func (e *Engine) scriptCacheKey(spec RenderSpec) string {
	keys := make([]string, 0, len(spec.Params))
	for k := range spec.Params {
		if security.IsSensitiveKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s;", k, scalarString(spec.Params[k]))
	}
	fingerprint := hex.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s/%s/%s/%s/%s", spec.Integration, spec.Operation, spec.OS, spec.OSVersion, fingerprint)
}

// scalarString formats a scalar parameter for substitution. Whole numbers
// render without a decimal part (ports, PIDs and friends).
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}

	return fmt.Sprintf("%v", v)
}
