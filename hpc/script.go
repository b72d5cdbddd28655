// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

var slurmScript = template.Must(template.New("slurm").Parse(`#!/bin/bash
#SBATCH --account={{.Allocation}} # allocation account
#SBATCH --time={{.Walltime}} # walltime
#SBATCH --job-name={{.Name}} # job name
#SBATCH --nodes=1 # number of nodes
#SBATCH --mem={{.MemoryMB}} # node RAM in MB
#SBATCH --output={{.StdoutDir}}/{{.Name}}_%j.o
#SBATCH --error={{.StdoutDir}}/{{.Name}}_%j.e
echo Running on: $HOSTNAME, Machine Type: $MACHTYPE
{{.Command}}
`))

var pbsScript = template.Must(template.New("pbs").Parse(`#!/bin/bash
#PBS -N {{.Name}} # job name
#PBS -A {{.Allocation}} # allocation account
#PBS -q {{.Queue}} # queue
#PBS -o {{.StdoutDir}}/{{.Name}}_$PBS_JOBID.o
#PBS -e {{.StdoutDir}}/{{.Name}}_$PBS_JOBID.e
{{if .Feature}}#PBS -l {{.Feature}}
{{end}}echo Running on: $HOSTNAME, Machine Type: $MACHTYPE
{{.Command}}
`))

type scriptData struct {
	Name       string
	Command    string
	Allocation string
	Queue      string
	Walltime   string
	MemoryMB   string
	Feature    string
	StdoutDir  string
}

func newScriptData(job Job) scriptData {
	return scriptData{
		Name:       job.Name,
		Command:    job.Command,
		Allocation: job.Allocation,
		Queue:      job.Queue,
		Walltime:   FormatWalltime(job.Walltime.Hours()),
		MemoryMB:   memoryMB(job.MemoryGB),
		Feature:    strings.ReplaceAll(job.Feature, " ", ""),
		StdoutDir:  job.stdoutDir(),
	}
}

func renderScript(t *template.Template, job Job) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, newScriptData(job)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeScript writes the job script and returns its path.
func writeScript(job Job, script string, logger *zap.Logger) (string, error) {
	if err := os.MkdirAll(job.stdoutDir(), 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(job.ScriptDir, job.Name+".sh")
	logger.Debug("Writing job script", zap.String("path", path), zap.String("script", script))
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}
