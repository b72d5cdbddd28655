// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package points_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/points"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoadTable(t *testing.T) {
	chk := require.New(t)
	ps, err := points.LoadTable(strings.NewReader("gid,sites,configs\n0,12,wind_a\n1,4,wind_b\n2,7,wind_a\n"))
	chk.NoError(err)
	chk.Equal([]int{12, 4, 7}, ps.Sites())
	chk.Equal([]string{"wind_a", "wind_b"}, ps.ConfigIDs())
}

func TestLoadTableErrors(t *testing.T) {
	for name, input := range map[string]string{
		"missing column": "sites,gid\n1,2\n",
		"bad site":       "sites,configs\nx,a\n",
		"duplicate":      "sites,configs\n1,a\n1,b\n",
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			chk := require.New(t)
			_, err := points.LoadTable(strings.NewReader(input))
			var ce *errs.ConfigError
			chk.True(errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestFromSpecFileWinsOverRange(t *testing.T) {
	chk := require.New(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "points.csv")
	chk.NoError(os.WriteFile(file, []byte("sites,configs\n5,a\n6,b\n"), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	ps, err := points.FromSpec(points.Spec{
		File:  file,
		Range: &points.Range{Start: 0, Stop: 100},
	}, []string{"a", "b"}, nil, "", zap.New(core))
	chk.NoError(err)
	chk.Equal([]int{5, 6}, ps.Sites())
	chk.Equal(1, logs.FilterMessageSnippet("using the file").Len())
}

func TestFromSpecRangeUsesFirstSortedConfig(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zap.WarnLevel)
	ps, err := points.FromSpec(points.Spec{
		Range: &points.Range{Start: 0, Stop: 4},
	}, []string{"zeta", "alpha"}, nil, "", zap.New(core))
	chk.NoError(err)
	chk.Equal([]string{"alpha"}, ps.ConfigIDs())
	chk.Equal(1, logs.FilterMessageSnippet("multiple configs").Len())

	ps, err = points.FromSpec(points.Spec{
		Range: &points.Range{Start: 0, Stop: 4},
	}, []string{"only"}, nil, "", zap.New(core))
	chk.NoError(err)
	chk.Equal([]string{"only"}, ps.ConfigIDs())
	chk.Equal(1, logs.Len())
}

func TestFromSpecRequiresSelection(t *testing.T) {
	chk := require.New(t)
	_, err := points.FromSpec(points.Spec{}, []string{"a"}, nil, "", zap.NewNop())
	chk.ErrorContains(err, "either file or start/stop")

	_, err = points.FromSpec(points.Spec{Range: &points.Range{Stop: 3}}, nil, nil, "", zap.NewNop())
	chk.ErrorContains(err, "no config ids")
}

func TestCSVRowCounter(t *testing.T) {
	chk := require.New(t)
	dir := t.TempDir()
	meta := filepath.Join(dir, "meta.csv")
	chk.NoError(os.WriteFile(meta, []byte("gid,latitude,longitude\n0,39.1,-105.2\n1,39.2,-105.1\n2,39.3,-105.0\n"), 0o644))

	n, err := points.CSVRowCounter{}.SiteCount(context.Background(), meta)
	chk.NoError(err)
	chk.Equal(3, n)

	ps, err := points.NewRange(points.Range{Start: 1, Open: true}, "a", points.CSVRowCounter{}, meta)
	chk.NoError(err)
	resolved, ok, err := ps.Resolve(context.Background())
	chk.NoError(err)
	chk.True(ok)
	chk.Equal([]int{1, 2}, resolved.Sites())

	_, err = points.CSVRowCounter{}.SiteCount(context.Background(), filepath.Join(dir, "missing.csv"))
	chk.Error(err)
}
