// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package config loads run configuration from a YAML or JSON file,
// SITEPOOL_* environment variables and command line flags, in increasing
// order of precedence.
//
// Config ids under "configs" are case-insensitive: keys are read through
// viper, which folds them to lower case.
package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/hpc"
	"github.com/petenewcomb/sitepool/memgov"
	"github.com/petenewcomb/sitepool/plan"
	"github.com/petenewcomb/sitepool/points"
)

// DefaultName is the run name used when none is configured.
const DefaultName = "sitepool"

// Config is a complete run configuration.
type Config struct {
	Name          string            `mapstructure:"name"`
	LogLevel      string            `mapstructure:"log_level"`
	ProjectPoints ProjectPoints     `mapstructure:"project_points"`
	Configs       map[string]string `mapstructure:"configs"`
	Resource      Resource          `mapstructure:"resource"`
	Execution     Execution         `mapstructure:"execution_control"`
}

// ProjectPoints selects the sites to run, either from a CSV table with
// "sites" and "configs" columns or from a start/stop/step range. Stop may
// be "inf" for a range that ends where the resource does.
type ProjectPoints struct {
	File  string `mapstructure:"file"`
	Start *int   `mapstructure:"start"`
	Stop  string `mapstructure:"stop"`
	Step  int    `mapstructure:"step"`
}

// Resource names the resource files. A "{}" in File is replaced by each of
// Years in turn.
type Resource struct {
	File     string `mapstructure:"file"`
	Years    []int  `mapstructure:"years"`
	MetaFile string `mapstructure:"meta_file"`
}

// Execution controls how the run is spread over nodes and cores.
type Execution struct {
	Option                 string  `mapstructure:"option"`
	Nodes                  int     `mapstructure:"nodes"`
	PPN                    int     `mapstructure:"ppn"`
	SitesPerCore           int     `mapstructure:"sites_per_core"`
	SitesPerNode           int     `mapstructure:"sites_per_node"`
	MemoryUtilizationLimit float64 `mapstructure:"memory_utilization_limit"`
	Workers                int     `mapstructure:"workers"`
	Queue                  string  `mapstructure:"queue"`
	Allocation             string  `mapstructure:"allocation"`
	Memory                 string  `mapstructure:"memory"`
	Walltime               string  `mapstructure:"walltime"`
	Feature                string  `mapstructure:"feature"`
	Command                string  `mapstructure:"command"`
	Output                 string  `mapstructure:"output"`
	MetricsFile            string  `mapstructure:"metrics_file"`
	StdoutDir              string  `mapstructure:"stdout_dir"`
	KeepScript             bool    `mapstructure:"keep_script"`
}

// FlagKeys maps command line flag names to the configuration keys they
// override.
var FlagKeys = map[string]string{
	"name":         "name",
	"log-level":    "log_level",
	"option":       "execution_control.option",
	"nodes":        "execution_control.nodes",
	"ppn":          "execution_control.ppn",
	"workers":      "execution_control.workers",
	"memory-limit": "execution_control.memory_utilization_limit",
	"output":       "execution_control.output",
	"metrics-file": "execution_control.metrics_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", DefaultName)
	v.SetDefault("log_level", "info")
	v.SetDefault("project_points.file", "")
	v.SetDefault("project_points.stop", "")
	v.SetDefault("project_points.step", 1)
	v.SetDefault("resource.file", "")
	v.SetDefault("resource.meta_file", "")
	v.SetDefault("execution_control.option", string(hpc.Local))
	v.SetDefault("execution_control.nodes", 1)
	v.SetDefault("execution_control.ppn", 1)
	v.SetDefault("execution_control.sites_per_core", 0)
	v.SetDefault("execution_control.sites_per_node", 0)
	v.SetDefault("execution_control.memory_utilization_limit", memgov.DefaultLimit)
	v.SetDefault("execution_control.workers", 0)
	v.SetDefault("execution_control.queue", hpc.DefaultQueue)
	v.SetDefault("execution_control.allocation", hpc.DefaultAllocation)
	v.SetDefault("execution_control.memory", fmt.Sprintf("%dGB", hpc.DefaultMemoryGB))
	v.SetDefault("execution_control.walltime", "")
	v.SetDefault("execution_control.feature", "")
	v.SetDefault("execution_control.command", "")
	v.SetDefault("execution_control.output", "")
	v.SetDefault("execution_control.metrics_file", "")
	v.SetDefault("execution_control.stdout_dir", hpc.DefaultStdoutDir)
	v.SetDefault("execution_control.keep_script", false)
}

// Load reads the configuration file at path, if any, then applies
// environment and flag overrides and validates the result. Only flags
// named in [FlagKeys] are bound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SITEPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errs.ConfigError{Field: "config", Err: err}
		}
	}
	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, &errs.ConfigError{Field: "config", Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field values and cross-field constraints, returning the
// first problem found as a [*errs.ConfigError]. A file and a range may both
// be given for the project points; [Config.PointSet] warns about that when
// it picks the file.
func (c *Config) Validate() error {
	if c.Name == "" || strings.ContainsAny(c.Name, " \t/") {
		return errs.Configf("name", "must be non-empty without whitespace or slashes, got %q", c.Name)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return &errs.ConfigError{Field: "log_level", Err: err}
	}
	if err := c.validatePoints(); err != nil {
		return err
	}
	if err := c.validateResource(); err != nil {
		return err
	}
	return c.validateExecution()
}

func (c *Config) validatePoints() error {
	pp := c.ProjectPoints
	if pp.File == "" && pp.Start == nil {
		return errs.Configf("project_points", "either file or start must be given")
	}
	if pp.Start == nil {
		return nil
	}
	if *pp.Start < 0 {
		return errs.Configf("project_points.start", "must not be negative, got %d", *pp.Start)
	}
	if pp.Step <= 0 {
		return errs.Configf("project_points.step", "must be positive, got %d", pp.Step)
	}
	r, err := c.pointsRange()
	if err != nil {
		return err
	}
	if !r.Open && r.Stop < r.Start {
		return errs.Configf("project_points.stop", "stop %d is before start %d", r.Stop, r.Start)
	}
	if pp.File == "" && len(c.Configs) == 0 {
		return errs.Configf("configs", "a project points range needs at least one config")
	}
	return nil
}

func (c *Config) pointsRange() (points.Range, error) {
	pp := c.ProjectPoints
	r := points.Range{Start: *pp.Start, Step: pp.Step}
	switch stop := strings.ToLower(strings.TrimSpace(pp.Stop)); stop {
	case "", "inf", "none":
		r.Open = true
	default:
		n, err := strconv.Atoi(stop)
		if err != nil {
			return points.Range{}, errs.Configf("project_points.stop", "want an integer or inf, got %q", pp.Stop)
		}
		r.Stop = n
	}
	return r, nil
}

func (c *Config) validateResource() error {
	r := c.Resource
	if r.File == "" {
		return errs.Configf("resource.file", "must be given")
	}
	if strings.Contains(r.File, "{}") && len(r.Years) == 0 {
		return errs.Configf("resource.years", "resource file %s has a year placeholder but no years are given", r.File)
	}
	return nil
}

func (c *Config) validateExecution() error {
	e := c.Execution
	kind, err := hpc.ParseKind(e.Option)
	if err != nil {
		return err
	}
	ctl := []struct {
		field string
		n     int
	}{
		{"execution_control.nodes", e.Nodes},
		{"execution_control.ppn", e.PPN},
		{"execution_control.sites_per_core", e.SitesPerCore},
		{"execution_control.sites_per_node", e.SitesPerNode},
		{"execution_control.workers", e.Workers},
	}
	for _, x := range ctl {
		if x.n < 0 {
			return errs.Configf(x.field, "must not be negative, got %d", x.n)
		}
	}
	if !memgov.ValidLimit(e.MemoryUtilizationLimit) {
		return errs.Configf("execution_control.memory_utilization_limit", "must be in (0, 1], got %v", e.MemoryUtilizationLimit)
	}
	if e.Command == "" {
		return errs.Configf("execution_control.command", "must be given")
	}
	if kind == hpc.Local {
		return nil
	}
	if _, err := hpc.ParseMemoryGB(e.Memory); err != nil {
		return err
	}
	if _, err := c.Walltime(); err != nil {
		return err
	}
	return nil
}

// Kind returns the execution option.
func (c *Config) Kind() hpc.Kind {
	k, _ := hpc.ParseKind(c.Execution.Option)
	return k
}

// Level returns the configured log level.
func (c *Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Walltime returns the configured walltime, or the default for the queue.
func (c *Config) Walltime() (time.Duration, error) {
	if c.Execution.Walltime != "" {
		return hpc.ParseWalltime(c.Execution.Walltime)
	}
	if d, ok := hpc.DefaultWalltime(c.Execution.Queue); ok {
		return d, nil
	}
	return 0, errs.Configf("execution_control.walltime", "must be given for queue %q", c.Execution.Queue)
}

// ConfigIDs returns the configured config ids in sorted order.
func (c *Config) ConfigIDs() []string {
	ids := make([]string, 0, len(c.Configs))
	for id := range c.Configs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ResourceFiles expands the resource file template over the configured
// years.
func (c *Config) ResourceFiles() []string {
	f := c.Resource.File
	if !strings.Contains(f, "{}") {
		return []string{f}
	}
	files := make([]string, 0, len(c.Resource.Years))
	for _, y := range c.Resource.Years {
		files = append(files, strings.ReplaceAll(f, "{}", strconv.Itoa(y)))
	}
	return files
}

// PointsSpec returns the project points selection.
func (c *Config) PointsSpec() (points.Spec, error) {
	spec := points.Spec{File: c.ProjectPoints.File}
	if c.ProjectPoints.Start != nil {
		r, err := c.pointsRange()
		if err != nil {
			return points.Spec{}, err
		}
		spec.Range = &r
	}
	return spec, nil
}

// PointSet loads the project points. An open-ended range is resolved by
// counting the rows of the resource meta file, when one is configured.
// Config ids read from a table are folded to lower case, like the keys
// under configs, and each must have an entry there.
func (c *Config) PointSet(logger *zap.Logger) (*points.PointSet, error) {
	spec, err := c.PointsSpec()
	if err != nil {
		return nil, err
	}
	var oracle points.SiteCounter
	if c.Resource.MetaFile != "" {
		oracle = points.CSVRowCounter{}
	}
	ps, err := points.FromSpec(spec, c.ConfigIDs(), oracle, c.Resource.MetaFile, logger)
	if err != nil || spec.File == "" {
		return ps, err
	}
	return c.foldConfigs(ps)
}

func (c *Config) foldConfigs(ps *points.PointSet) (*points.PointSet, error) {
	for _, id := range ps.ConfigIDs() {
		if _, ok := c.Configs[strings.ToLower(id)]; !ok {
			return nil, errs.Configf("project_points.file", "config id %q has no entry under configs", id)
		}
	}
	sites := ps.Sites()
	folded := make(map[int]string, len(sites))
	for _, s := range sites {
		id, _ := ps.Config(s)
		folded[s] = strings.ToLower(id)
	}
	return points.NewExplicit(sites, folded)
}

// NodeControl returns the control for splitting the run over nodes.
func (c *Config) NodeControl() plan.Control {
	return plan.Control{Nodes: c.Execution.Nodes, ProcessesPerNode: 1, SitesPerUnit: c.Execution.SitesPerNode}
}

// CoreControl returns the control for splitting one node's sites over its
// processes.
func (c *Config) CoreControl() plan.Control {
	return plan.Control{Nodes: 1, ProcessesPerNode: c.Execution.PPN, SitesPerUnit: c.Execution.SitesPerCore}
}

// JobName returns the queue job name for node.
func (c *Config) JobName(node int) string {
	return fmt.Sprintf("%s_node%d", c.Name, node)
}

// Job returns the batch-queue job that runs command on node.
func (c *Config) Job(node int, command string) (hpc.Job, error) {
	e := c.Execution
	mem, err := hpc.ParseMemoryGB(e.Memory)
	if err != nil {
		return hpc.Job{}, err
	}
	wall, err := c.Walltime()
	if err != nil {
		return hpc.Job{}, err
	}
	return hpc.Job{
		Name:       c.JobName(node),
		Command:    command,
		Allocation: e.Allocation,
		Queue:      e.Queue,
		MemoryGB:   mem,
		Walltime:   wall,
		Feature:    e.Feature,
		StdoutDir:  e.StdoutDir,
		KeepScript: e.KeepScript,
	}, nil
}

// OutputPath returns the results file for node, defaulting to
// "<name>_node<N>.yaml".
func (c *Config) OutputPath(node int) string {
	if o := c.Execution.Output; o != "" {
		if strings.Contains(o, "{}") {
			return strings.ReplaceAll(o, "{}", strconv.Itoa(node))
		}
		return o
	}
	return c.JobName(node) + ".yaml"
}
