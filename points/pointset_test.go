// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package points_test

import (
	"errors"
	"testing"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/points"
	"github.com/stretchr/testify/require"
)

func TestNewExplicitRejectsDuplicates(t *testing.T) {
	chk := require.New(t)
	_, err := points.NewExplicit([]int{1, 2, 1}, map[int]string{1: "a", 2: "a"})
	var ce *errs.ConfigError
	chk.True(errors.As(err, &ce))
	chk.Contains(err.Error(), "site 1 listed more than once")
}

func TestNewExplicitRequiresExactMapping(t *testing.T) {
	chk := require.New(t)

	_, err := points.NewExplicit([]int{1, 2}, map[int]string{1: "a"})
	chk.ErrorContains(err, "site 2 has no config")

	_, err = points.NewExplicit([]int{1}, map[int]string{1: "a", 7: "b"})
	chk.ErrorContains(err, "site 7 which is not in the site list")
}

func TestNewExplicitCopiesInputs(t *testing.T) {
	chk := require.New(t)
	sites := []int{4, 5}
	configs := map[int]string{4: "a", 5: "b"}
	ps, err := points.NewExplicit(sites, configs)
	chk.NoError(err)

	sites[0] = 99
	configs[5] = "z"
	chk.Equal([]int{4, 5}, ps.Sites())
	id, ok := ps.Config(5)
	chk.True(ok)
	chk.Equal("b", id)
}

func TestNewRangeValidation(t *testing.T) {
	chk := require.New(t)

	_, err := points.NewRange(points.Range{Start: 0, Stop: 10}, "", nil, "")
	chk.ErrorContains(err, "default config id")

	_, err = points.NewRange(points.Range{Start: 0, Stop: 10, Step: -1}, "a", nil, "")
	chk.ErrorContains(err, "must not be negative")

	_, err = points.NewRange(points.Range{Start: -3, Stop: 10}, "a", nil, "")
	chk.ErrorContains(err, "must not be negative")
}

func TestRangeAccessors(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewRange(points.Range{Start: 20, Stop: 30, Step: 3}, "cfg", nil, "")
	chk.NoError(err)

	chk.True(ps.IsRange())
	chk.False(ps.IsOpen())
	chk.Equal(4, ps.Len())
	chk.Equal([]int{20, 23, 26, 29}, ps.Sites())
	chk.Equal([]string{"cfg"}, ps.ConfigIDs())
	chk.Equal([]int{20, 23, 26, 29}, ps.SitesForConfig("cfg"))
	chk.Nil(ps.SitesForConfig("other"))
	chk.Equal("sites [20, 30) step 3", ps.String())

	id, ok := ps.Config(26)
	chk.True(ok)
	chk.Equal("cfg", id)
	_, ok = ps.Config(27)
	chk.False(ok)
	_, ok = ps.Config(32)
	chk.False(ok)
}

func TestOpenRangeAccessors(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewRange(points.Range{Start: 5, Open: true}, "cfg", nil, "")
	chk.NoError(err)

	chk.True(ps.IsOpen())
	chk.Equal(-1, ps.Len())
	chk.False(ps.Empty())
	chk.Nil(ps.Sites())
	chk.Equal("sites [5, inf)", ps.String())
	_, ok := ps.Config(1_000_000)
	chk.True(ok)
}

func TestExplicitConfigQueries(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewExplicit(
		[]int{3, 1, 8, 5},
		map[int]string{3: "wind", 1: "solar", 8: "wind", 5: "solar"},
	)
	chk.NoError(err)

	chk.Equal([]string{"solar", "wind"}, ps.ConfigIDs())
	chk.Equal([]int{3, 8}, ps.SitesForConfig("wind"))
	chk.Equal([]int{1, 5}, ps.SitesForConfig("solar"))
	chk.Equal("4 sites 3..5", ps.String())
}

func TestAsRange(t *testing.T) {
	chk := require.New(t)

	seq, err := points.NewExplicit([]int{10, 12, 14}, map[int]string{10: "a", 12: "a", 14: "a"})
	chk.NoError(err)
	r, ok := seq.AsRange()
	chk.True(ok)
	chk.Equal(points.Range{Start: 10, Stop: 15, Step: 2}, r)
	chk.Equal(seq.Sites(), mustRange(t, r).Sites())

	irregular, err := points.NewExplicit([]int{1, 2, 4}, map[int]string{1: "a", 2: "a", 4: "a"})
	chk.NoError(err)
	_, ok = irregular.AsRange()
	chk.False(ok)

	descending, err := points.NewExplicit([]int{3, 2}, map[int]string{3: "a", 2: "a"})
	chk.NoError(err)
	_, ok = descending.AsRange()
	chk.False(ok)

	var empty points.PointSet
	_, ok = empty.AsRange()
	chk.False(ok)
	chk.True(empty.Empty())
}

func mustRange(t *testing.T, r points.Range) *points.PointSet {
	ps, err := points.NewRange(r, "a", nil, "")
	require.NoError(t, err)
	return ps
}
