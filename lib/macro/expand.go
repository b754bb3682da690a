// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package macro

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// tokenPattern matches one ${...} token. The body may contain any
// characters except braces and '$', so "${server.4401/tcp}" and
// "${editor.current.file.path}" are tokens while nested or unbalanced
// forms are not.
var tokenPattern = regexp.MustCompile(`\$\{[^{}$]*\}`)

// IsToken reports whether name is exactly one ${...} token.
func IsToken(name string) bool {
	location := tokenPattern.FindStringIndex(name)
	return location != nil && location[0] == 0 && location[1] == len(name)
}

// Tokens returns every ${...} token in template, in order of
// appearance, registered or not.
func Tokens(template string) []string {
	return tokenPattern.FindAllString(template, -1)
}

// Expander substitutes registered macros in command templates.
// It holds no per-call state and is safe for concurrent use.
type Expander struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExpander returns an expander backed by registry.
func NewExpander(registry *Registry, logger *slog.Logger) *Expander {
	return &Expander{registry: registry, logger: logger}
}

// occurrence is one registered token found in a template.
type occurrence struct {
	start, end int
	provider   Provider
}

// Expand returns template with every registered macro replaced by its
// provider's value. Each occurrence is evaluated in its own goroutine
// and Expand returns once all of them have finished. Substitution is
// single-pass: a value that itself contains ${...} is inserted as-is.
//
// Unregistered tokens and tokens whose provider fails are left
// verbatim. If ctx is cancelled, providers that honor it fail and
// their tokens stay unexpanded.
func (e *Expander) Expand(ctx context.Context, template string) string {
	locations := tokenPattern.FindAllStringIndex(template, -1)
	if len(locations) == 0 {
		return template
	}

	names := make([]string, len(locations))
	for i, location := range locations {
		names[i] = template[location[0]:location[1]]
	}
	providers := e.registry.lookup(names)

	var occurrences []occurrence
	for i, provider := range providers {
		if provider == nil {
			continue
		}
		occurrences = append(occurrences, occurrence{
			start:    locations[i][0],
			end:      locations[i][1],
			provider: provider,
		})
	}
	if len(occurrences) == 0 {
		return template
	}

	values := make([]string, len(occurrences))
	var waitGroup sync.WaitGroup
	for i, found := range occurrences {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			values[i] = e.expandOne(ctx, found.provider, template[found.start:found.end])
		}()
	}
	waitGroup.Wait()

	var builder strings.Builder
	builder.Grow(len(template))
	previous := 0
	for i, found := range occurrences {
		builder.WriteString(template[previous:found.start])
		builder.WriteString(values[i])
		previous = found.end
	}
	builder.WriteString(template[previous:])
	return builder.String()
}

// expandOne evaluates a single provider, falling back to the original
// token text on failure.
func (e *Expander) expandOne(ctx context.Context, provider Provider, token string) (value string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.Warn("command macro provider panicked", "macro", token, "panic", recovered)
			value = token
		}
	}()

	value, err := provider.Expand(ctx)
	if err != nil {
		e.logger.Warn("command macro expansion failed", "macro", token, "error", err)
		return token
	}
	return value
}
