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

// Package comment parses the PR status-comment's editable block (§4.3 step
// 5, §6 wire format) into per-service selection state.
package comment

import (
	"regexp"
	"strings"
)

// Wire-format markers, exact per §6.
const (
	HEADER = "----EDIT BELOW THIS LINE----"
	FOOTER = "----EDIT ABOVE THIS LINE----"
)

// ServiceSelection is the parsed state of one `[x?] name: branchOrUrl`
// line.
type ServiceSelection struct {
	Name          string
	Active        bool
	BranchOrURL   string
	VanityURL     string
}

// ParseResult is the full parse of the editable comment block.
type ParseResult struct {
	Services          map[string]ServiceSelection
	CommentRuntimeEnv map[string]string
}

var (
	checkboxLine = regexp.MustCompile(`^\[( |x|X)\]\s*([A-Za-z0-9_.-]+)\s*:\s*(.+)$`)
	urlLine      = regexp.MustCompile(`^url:\s*([A-Za-z0-9_.-]+)\s*:\s*(.+)$`)
	envLine      = regexp.MustCompile(`^ENV:([A-Za-z0-9_.-]+):(.*)$`)
)

// Parse extracts the editable block between HEADER and FOOTER from body
// and parses its lines. A body with no HEADER/FOOTER pair yields an empty
// ParseResult rather than an error — an unedited comment has no selection
// overrides.
func Parse(body string) ParseResult {
	result := ParseResult{
		Services:          map[string]ServiceSelection{},
		CommentRuntimeEnv: map[string]string{},
	}

	start := strings.Index(body, HEADER)
	end := strings.Index(body, FOOTER)
	if start < 0 || end < 0 || end <= start {
		return result
	}
	block := body[start+len(HEADER) : end]

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case checkboxLine.MatchString(line):
			m := checkboxLine.FindStringSubmatch(line)
			active := strings.EqualFold(m[1], "x")
			name := m[2]
			result.Services[name] = ServiceSelection{
				Name:        name,
				Active:      active,
				BranchOrURL: strings.TrimSpace(m[3]),
			}
		case urlLine.MatchString(line):
			m := urlLine.FindStringSubmatch(line)
			name := m[1]
			sel := result.Services[name]
			sel.Name = name
			sel.VanityURL = strings.TrimSpace(m[2])
			result.Services[name] = sel
		case envLine.MatchString(line):
			m := envLine.FindStringSubmatch(line)
			result.CommentRuntimeEnv[m[1]] = m[2]
		}
	}
	return result
}

// Render writes services into the wire format: prefix, HEADER, one checkbox
// line per service (plus a `url:` line when it has a VanityURL), FOOTER,
// then suffix. It writes no `ENV:` lines. Used when the build service posts
// the initial status-comment stub.
func Render(prefix string, services []ServiceSelection, suffix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("\n")
	b.WriteString(HEADER)
	b.WriteString("\n")
	for _, s := range services {
		mark := " "
		if s.Active {
			mark = "x"
		}
		b.WriteString("[" + mark + "] " + s.Name + ": " + s.BranchOrURL + "\n")
		if s.VanityURL != "" {
			b.WriteString("url:" + s.Name + ":" + s.VanityURL + "\n")
		}
	}
	b.WriteString(FOOTER)
	b.WriteString("\n")
	b.WriteString(suffix)
	return b.String()
}
