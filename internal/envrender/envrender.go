/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package envrender implements the environment-variable template renderer
// (§4.4): a mustache-like `{{name______attr}}` placeholder language over a
// name-keyed index of peer deploys, with default-UUID fallback and the
// hyphen-escape/%%SPLIT%% wire contract preserved bit-exact for
// compatibility with persisted templates.
package envrender

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
)

// hyphenEscape is the six-underscore sequence substituted for '-' before
// parsing, because the template engine's identifier grammar forbids
// hyphens. SplitSentinel is the array-value separator recovered by
// callers after rendering.
const (
	hyphenEscape  = "______"
	SplitSentinel = "%%SPLIT%%"
)

// ServiceEnvFacts is the per-deploy data available to the renderer: the
// facts a peer deploy may be referenced by (branchName, publicUrl, uuid,
// internalHostname, dockerImage, sha, internalPort, buildOutput).
type ServiceEnvFacts struct {
	BranchName       string
	PublicURL        string
	UUID             string
	InternalHostname string
	DockerImage      string
	SHA              string
	InternalPort     string
	BuildOutput      string
}

// DomainDefaults carries the process-wide default-UUID fallback inputs
// (§4.4 bullet on useDefaultUUID).
type DomainDefaults struct {
	DefaultUUID        string
	DefaultNamespace   string
	DomainDefaultsHTTP string
}

var attrPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+?)_(branchName|publicUrl|UUID|internalHostname|dockerImage|sha|internalPort|buildOutput\([^)]*\))\}\}`)

// TemplateRenderer renders env/initEnv templates against a name-keyed
// index of peer deploys. It is the sole entry point referenced by the
// design note's "isolate behind TemplateRenderer" instruction.
type TemplateRenderer struct {
	Defaults DomainDefaults
}

// New builds a TemplateRenderer with the given process-wide defaults.
func New(defaults DomainDefaults) *TemplateRenderer {
	return &TemplateRenderer{Defaults: defaults}
}

// Render renders tpl against avail (peer deploys keyed by service name),
// appending the cluster-local suffix to resolved internalHostnames and
// falling back to the default UUID for unresolved placeholders when
// useDefaultUUID is true. namespace is the build's own namespace, used for
// the cluster suffix of resolved internalHostnames only; the default-UUID
// case uses DomainDefaults.DefaultNamespace instead, since a default-UUID
// reference points at a long-lived shared environment, not this build's
// namespace.
func (r *TemplateRenderer) Render(tpl string, avail map[string]ServiceEnvFacts, useDefaultUUID bool, namespace string) (string, error) {
	escaped := strings.ReplaceAll(tpl, "-", hyphenEscape)

	funcs := sprig.TxtFuncMap()
	delete(funcs, "env")
	delete(funcs, "expandenv")
	t, err := template.New("env").Funcs(funcs).Parse(wrapPlaceholders(escaped))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	data := r.buildData(avail, useDefaultUUID, namespace)

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	out := strings.ReplaceAll(buf.String(), hyphenEscape, "-")
	return out, nil
}

// wrapPlaceholders rewrites every recognised `{{name______attr}}`
// reference into a lookup against the rendering context's `.Get` method,
// since the raw identifier form (containing the escaped hyphens and
// parens for buildOutput) is not valid Go template action syntax. A bare
// `{{buildUUID}}` is rewritten the same way so Get can resolve it.
func wrapPlaceholders(escaped string) string {
	escaped = strings.ReplaceAll(escaped, "{{buildUUID}}", `{{ .Get "buildUUID" "" }}`)
	return attrPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		sub := attrPattern.FindStringSubmatch(match)
		name, attr := sub[1], sub[2]
		return fmt.Sprintf(`{{ .Get %q %q }}`, name, attr)
	})
}

// renderCtx is the template execution context exposing Get to resolved
// placeholder actions.
type renderCtx struct {
	avail          map[string]ServiceEnvFacts
	useDefaultUUID bool
	namespace      string
	defaults       DomainDefaults
}

func (r *TemplateRenderer) buildData(avail map[string]ServiceEnvFacts, useDefaultUUID bool, namespace string) *renderCtx {
	return &renderCtx{avail: avail, useDefaultUUID: useDefaultUUID, namespace: namespace, defaults: r.Defaults}
}

// Get resolves one (name, attr) pair. name and attr still carry the
// hyphen-escape at this point; Render strips it from the final output.
func (c *renderCtx) Get(escapedName, attr string) (string, error) {
	name := strings.ReplaceAll(escapedName, hyphenEscape, "-")

	if name == "buildUUID" && !hasPeer(c.avail, name) {
		// {{buildUUID}} with no matching data substitutes empty string,
		// never the default UUID (§4.4 last bullet).
		return "", nil
	}

	base := attrBase(attr)
	facts, ok := c.avail[name]

	switch base {
	case "UUID":
		if ok && facts.UUID != "" {
			return facts.UUID, nil
		}
		if c.useDefaultUUID {
			return c.defaults.DefaultUUID, nil
		}
		return "", nil
	case "internalHostname":
		if ok && facts.InternalHostname != "" {
			return appendClusterSuffix(facts.InternalHostname, c.namespace), nil
		}
		if c.useDefaultUUID {
			return fmt.Sprintf("%s-%s.%s.svc.cluster.local", name, c.defaults.DefaultUUID, c.defaults.DefaultNamespace), nil
		}
		return "", nil
	case "publicUrl":
		if ok && facts.PublicURL != "" {
			return facts.PublicURL, nil
		}
		if c.useDefaultUUID {
			return fmt.Sprintf("%s-%s.%s", name, c.defaults.DefaultUUID, c.defaults.DomainDefaultsHTTP), nil
		}
		return "", nil
	case "branchName":
		if ok {
			return facts.BranchName, nil
		}
		return "", nil
	case "dockerImage":
		if ok {
			return facts.DockerImage, nil
		}
		return "", nil
	case "sha":
		if ok {
			return facts.SHA, nil
		}
		return "", nil
	case "internalPort":
		if ok {
			return facts.InternalPort, nil
		}
		return "", nil
	default:
		if strings.HasPrefix(attr, "buildOutput(") {
			return resolveBuildOutput(attr, facts, ok)
		}
		return "", nil
	}
}

func hasPeer(avail map[string]ServiceEnvFacts, name string) bool {
	_, ok := avail[name]
	return ok
}

func attrBase(attr string) string {
	if idx := strings.Index(attr, "("); idx >= 0 {
		return attr[:idx]
	}
	return attr
}

// appendClusterSuffix appends `.<namespace>.svc.cluster.local` to a
// resolved internal hostname. A hostname that already carries a suffix
// segment (e.g. "hostname-master") still gets the cluster suffix appended
// after it, per §4.4.
func appendClusterSuffix(hostname, namespace string) string {
	return fmt.Sprintf("%s.%s.svc.cluster.local", hostname, namespace)
}

func resolveBuildOutput(attr string, facts ServiceEnvFacts, ok bool) (string, error) {
	if !ok || facts.BuildOutput == "" {
		return "", nil
	}
	pattern := strings.TrimSuffix(strings.TrimPrefix(attr, "buildOutput("), ")")
	// attr still carries the six-underscore hyphen escape (see Get), so
	// restore the hyphens before compiling; regexes containing a literal
	// hyphen then match as written.
	pattern = strings.ReplaceAll(pattern, hyphenEscape, "-")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("compiling buildOutput regex %q: %w", pattern, err)
	}
	m := re.FindStringSubmatch(facts.BuildOutput)
	if m == nil {
		return "", nil
	}
	if len(m) > 1 {
		return m[1], nil
	}
	return m[0], nil
}

// SplitArray splits a rendered array-valued string on the %%SPLIT%%
// sentinel, recovering the original []string the caller joined before
// templating.
func SplitArray(rendered string) []string {
	return strings.Split(rendered, SplitSentinel)
}

// JoinArray is the caller-side inverse of SplitArray, used before handing
// an array value to Render.
func JoinArray(values []string) string {
	return strings.Join(values, SplitSentinel)
}
