// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package plan

import (
	"fmt"

	"github.com/petenewcomb/sitepool/errs"
)

// Level is the granularity at which a plan splits its sites.
type Level int

const (
	// LevelNode splits the full site set across batch-queue nodes.
	LevelNode Level = iota
	// LevelCore splits one node's slice across the processes on that node.
	LevelCore
)

func (l Level) String() string {
	switch l {
	case LevelNode:
		return "node"
	case LevelCore:
		return "core"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel returns the level named s.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "node":
		return LevelNode, nil
	case "core":
		return LevelCore, nil
	default:
		return 0, errs.Configf("level", "unknown execution level %q", s)
	}
}

// next returns the level below l. Core is the lowest level.
func (l Level) next() (Level, error) {
	if l == LevelNode {
		return LevelCore, nil
	}
	return 0, &errs.ConfigError{Field: "level", Err: fmt.Errorf("%v: %w", l, errs.ErrNotSplittable)}
}

// Control is the raw per-level execution configuration. Zero Nodes and
// ProcessesPerNode mean one; zero SitesPerUnit means derive the chunk size
// from the site count and worker count.
type Control struct {
	Nodes            int
	ProcessesPerNode int
	SitesPerUnit     int
}

// Workers returns the total number of workers the level spreads units over.
func (c Control) Workers() int {
	c = c.withDefaults()
	return c.Nodes * c.ProcessesPerNode
}

func (c Control) withDefaults() Control {
	if c.Nodes == 0 {
		c.Nodes = 1
	}
	if c.ProcessesPerNode == 0 {
		c.ProcessesPerNode = 1
	}
	return c
}

// Validate rejects negative counts.
func (c Control) Validate() error {
	switch {
	case c.Nodes < 0:
		return errs.Configf("nodes", "must not be negative, got %d", c.Nodes)
	case c.ProcessesPerNode < 0:
		return errs.Configf("ppn", "must not be negative, got %d", c.ProcessesPerNode)
	case c.SitesPerUnit < 0:
		return errs.Configf("sites_per_unit", "must not be negative, got %d", c.SitesPerUnit)
	}
	return nil
}
