// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package points

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/errs"
)

const (
	sitesColumn   = "sites"
	configsColumn = "configs"
)

// LoadTable reads an explicit PointSet from CSV with a header row containing
// "sites" and "configs" columns. Other columns are ignored. Row order is the
// site order.
func LoadTable(r io.Reader) (*PointSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errs.Configf("project_points.file", "reading header: %v", err)
	}
	siteCol, configCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case sitesColumn:
			siteCol = i
		case configsColumn:
			configCol = i
		}
	}
	if siteCol < 0 || configCol < 0 {
		return nil, errs.Configf("project_points.file", "table must have %q and %q columns, got %v",
			sitesColumn, configsColumn, header)
	}

	var sites []int
	configs := make(map[int]string)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Configf("project_points.file", "%v", err)
		}
		site, err := strconv.Atoi(strings.TrimSpace(rec[siteCol]))
		if err != nil {
			return nil, errs.Configf("project_points.file", "line %d: bad site id %q", line, rec[siteCol])
		}
		if _, dup := configs[site]; dup {
			return nil, errs.Configf("project_points.file", "line %d: site %d listed more than once", line, site)
		}
		sites = append(sites, site)
		configs[site] = strings.TrimSpace(rec[configCol])
	}
	return NewExplicit(sites, configs)
}

// LoadTableFile is [LoadTable] on the named file.
func LoadTableFile(name string) (*PointSet, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errs.Configf("project_points.file", "%v", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// Spec selects project points either from a table file or from a range.
type Spec struct {
	File  string
	Range *Range
}

// FromSpec builds the PointSet described by spec. A table file takes
// precedence over a range; if both are given the range is ignored with a
// warning. A range uses the first of the sorted configIDs for every site,
// warning when there is more than one to choose from. Open-ended ranges
// resolve their stop through oracle using resource.
func FromSpec(spec Spec, configIDs []string, oracle SiteCounter, resource string, logger *zap.Logger) (*PointSet, error) {
	if logger == nil {
		logger = zap.L()
	}
	switch {
	case spec.File != "":
		if spec.Range != nil {
			logger.Warn("more than one project points selection method requested; using the file and ignoring the range",
				zap.String("file", spec.File), zap.Stringer("range", spec.Range))
		}
		return LoadTableFile(spec.File)
	case spec.Range != nil:
		if len(configIDs) == 0 {
			return nil, errs.Configf("configs", "no config ids available for range-form project points")
		}
		ids := slices.Sorted(slices.Values(configIDs))
		if len(ids) > 1 {
			logger.Warn("multiple configs available for range-form project points; using the first",
				zap.String("config", ids[0]), zap.Strings("available", ids))
		}
		return NewRange(*spec.Range, ids[0], oracle, resource)
	default:
		return nil, errs.Configf("project_points", "either file or start/stop must be given")
	}
}

// CSVRowCounter is a [SiteCounter] that treats each resource as the path of
// a CSV meta table with one header row and one row per site.
type CSVRowCounter struct{}

func (CSVRowCounter) SiteCount(ctx context.Context, resource string) (int, error) {
	f, err := os.Open(resource)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.ReuseRecord = true
	if _, err := cr.Read(); err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	n := 0
	for {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		n++
	}
}
