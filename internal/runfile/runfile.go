// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package runfile loads task definitions for the run command from an HCL
// file. Task bodies may reference the env and args variables, which are
// bound from the invocation when a task is resolved.
package runfile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/staranto/runcachego/internal/cache"
)

// DefaultName is the runfile looked for in the working directory when no
// --runfile flag or config entry names one.
const DefaultName = "runcache.hcl"

var ErrTaskNotFound = errors.New("task not found")

// Task is one named, cacheable command definition.
type Task struct {
	Name    string
	Command []string
	TTL     int
	Env     map[string]string
}

// Runfile holds the parsed task file. Task bodies stay undecoded until
// requested so that a task referencing args does not break invocations of
// the tasks that don't.
type Runfile struct {
	DefaultTTL int

	blocks map[string]*hcl.Block
}

var runfileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "defaults"},
		{Type: "task", LabelNames: []string{"name"}},
	},
}

type defaultsHCL struct {
	TTL *int `hcl:"ttl,optional"`
}

type taskHCL struct {
	Command []string          `hcl:"command"`
	TTL     *int              `hcl:"ttl,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

// Load reads the runfile at path and indexes its task blocks. A missing file
// surfaces as the underlying fs error so callers can fall back to literal
// command mode.
func Load(path string) (*Runfile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	content, diags := file.Body.Content(runfileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	rf := &Runfile{
		DefaultTTL: cache.DefaultTTL,
		blocks:     make(map[string]*hcl.Block),
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case "defaults":
			var d defaultsHCL
			if diags := gohcl.DecodeBody(block.Body, nil, &d); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode defaults in %s: %s", path, diags.Error())
			}
			if d.TTL != nil {
				rf.DefaultTTL = *d.TTL
			}
		case "task":
			rf.blocks[block.Labels[0]] = block
		}
	}

	return rf, nil
}

// Task decodes the named task with env bound to envName and args bound to
// extraArgs, so a task can splice the invocation into its command line.
func (rf *Runfile) Task(name string, envName string, extraArgs []string) (Task, error) {
	block, ok := rf.blocks[name]
	if !ok {
		return Task{}, fmt.Errorf("task %s: %w", name, ErrTaskNotFound)
	}

	ectx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":  cty.StringVal(envName),
			"args": argsValue(extraArgs),
		},
	}

	var t taskHCL
	if diags := gohcl.DecodeBody(block.Body, ectx, &t); diags.HasErrors() {
		return Task{}, fmt.Errorf("failed to decode task %s: %s", name, diags.Error())
	}

	task := Task{
		Name:    name,
		Command: t.Command,
		TTL:     rf.DefaultTTL,
		Env:     t.Env,
	}
	if t.TTL != nil {
		task.TTL = *t.TTL
	}

	return task, nil
}

// Names returns the defined task names sorted for stable listings.
func (rf *Runfile) Names() []string {
	names := make([]string, 0, len(rf.blocks))
	for name := range rf.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func argsValue(args []string) cty.Value {
	if len(args) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, 0, len(args))
	for _, a := range args {
		vals = append(vals, cty.StringVal(a))
	}
	return cty.ListVal(vals)
}
