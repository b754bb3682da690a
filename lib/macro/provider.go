// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package macro

import "context"

// Provider produces the current value of one macro.
//
// Name is the full token, "${" and "}" included. It must not change
// after the provider is registered. Expand may block (querying a
// machine, reading a file) and is called concurrently with other
// providers' Expand; implementations must honor ctx.
type Provider interface {
	Name() string
	Description() string
	Expand(ctx context.Context) (string, error)
}

// StaticProvider is a Provider with a fixed value.
type StaticProvider struct {
	name        string
	value       string
	description string
}

// NewStaticProvider returns a provider that always expands to value.
func NewStaticProvider(name, value, description string) *StaticProvider {
	return &StaticProvider{name: name, value: value, description: description}
}

func (p *StaticProvider) Name() string        { return p.name }
func (p *StaticProvider) Description() string { return p.description }

func (p *StaticProvider) Expand(ctx context.Context) (string, error) {
	return p.value, nil
}

// FuncProvider adapts a function to the Provider interface.
type FuncProvider struct {
	name        string
	description string
	expand      func(ctx context.Context) (string, error)
}

// NewFuncProvider returns a provider that calls expand on every
// expansion.
func NewFuncProvider(name, description string, expand func(ctx context.Context) (string, error)) *FuncProvider {
	return &FuncProvider{name: name, description: description, expand: expand}
}

func (p *FuncProvider) Name() string        { return p.name }
func (p *FuncProvider) Description() string { return p.description }

func (p *FuncProvider) Expand(ctx context.Context) (string, error) {
	return p.expand(ctx)
}
