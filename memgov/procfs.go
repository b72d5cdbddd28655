// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package memgov

import (
	"context"
	"errors"

	"github.com/prometheus/procfs"
)

// ProcSampler samples host memory from /proc/meminfo. Used memory is
// MemTotal minus MemAvailable, which counts reclaimable page cache as free.
type ProcSampler struct {
	fs procfs.FS
}

// NewProcSampler returns a sampler reading the default /proc mount.
func NewProcSampler() (*ProcSampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, err
	}
	return &ProcSampler{fs: fs}, nil
}

// NewProcSamplerAt returns a sampler reading a proc filesystem mounted at
// mountPoint.
func NewProcSamplerAt(mountPoint string) (*ProcSampler, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, err
	}
	return &ProcSampler{fs: fs}, nil
}

func (p *ProcSampler) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	mi, err := p.fs.Meminfo()
	if err != nil {
		return Sample{}, err
	}
	if mi.MemTotal == nil || mi.MemAvailable == nil {
		return Sample{}, errors.New("meminfo lacks MemTotal or MemAvailable")
	}
	total := *mi.MemTotal * 1024
	avail := min(*mi.MemAvailable*1024, total)
	return Sample{Used: total - avail, Total: total}, nil
}
