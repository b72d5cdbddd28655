// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package points_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/points"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSplitByPositionNotValue(t *testing.T) {
	chk := require.New(t)
	ps := mustRange(t, points.Range{Start: 20, Stop: 100})

	sub, err := ps.Split(0, 10)
	chk.NoError(err)
	r, ok := sub.Range()
	chk.True(ok)
	chk.Equal(points.Range{Start: 20, Stop: 30, Step: 1}, r)
}

func TestSplitClampsAtEnd(t *testing.T) {
	chk := require.New(t)
	ps := mustRange(t, points.Range{Start: 0, Stop: 10})

	sub, err := ps.Split(9, 12)
	chk.NoError(err)
	chk.Equal([]int{9}, sub.Sites())

	sub, err = ps.Split(10, 13)
	chk.NoError(err)
	chk.True(sub.Empty())
}

func TestSplitExplicitPreservesOrderAndConfigs(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewExplicit(
		[]int{7, 3, 9, 1, 4},
		map[int]string{7: "a", 3: "b", 9: "a", 1: "c", 4: "b"},
	)
	chk.NoError(err)

	sub, err := ps.Split(1, 4)
	chk.NoError(err)
	chk.Equal([]int{3, 9, 1}, sub.Sites())
	chk.Equal([]string{"a", "b", "c"}, sub.ConfigIDs())
	_, ok := sub.Config(7)
	chk.False(ok)
	id, ok := sub.Config(1)
	chk.True(ok)
	chk.Equal("c", id)
}

func TestSplitSteppedRangeMaterializes(t *testing.T) {
	chk := require.New(t)
	ps := mustRange(t, points.Range{Start: 0, Stop: 20, Step: 5})

	sub, err := ps.Split(1, 3)
	chk.NoError(err)
	chk.False(sub.IsRange())
	chk.Equal([]int{5, 10}, sub.Sites())
	id, _ := sub.Config(10)
	chk.Equal("a", id)
}

func TestSplitOpenUnitStepStaysSymbolic(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewRange(points.Range{Start: 100, Open: true}, "a", nil, "")
	chk.NoError(err)

	sub, err := ps.Split(10, 20)
	chk.NoError(err)
	r, ok := sub.Range()
	chk.True(ok)
	chk.Equal(points.Range{Start: 110, Stop: 120, Step: 1}, r)
	chk.False(sub.IsOpen())
}

func TestSplitOpenSteppedFails(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewRange(points.Range{Start: 0, Step: 2, Open: true}, "a", nil, "")
	chk.NoError(err)

	_, err = ps.Split(0, 10)
	var pe *errs.PartitionError
	chk.True(errors.As(err, &pe))
	chk.Equal(2, pe.Step)
	chk.ErrorIs(err, errs.ErrOpenEnded)
}

func TestSplitDoesNotMutateParent(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewExplicit([]int{1, 2, 3}, map[int]string{1: "a", 2: "a", 3: "a"})
	chk.NoError(err)
	before := ps.Sites()

	_, err = ps.Split(0, 2)
	chk.NoError(err)
	chk.Equal(before, ps.Sites())
	chk.Equal(3, ps.Len())
}

// pointSetGen draws either an explicit PointSet of unique shuffled sites or a
// closed range.
func pointSetGen() *rapid.Generator[*points.PointSet] {
	return rapid.Custom(func(t *rapid.T) *points.PointSet {
		if rapid.Bool().Draw(t, "ranged") {
			start := rapid.IntRange(0, 1000).Draw(t, "start")
			r := points.Range{
				Start: start,
				Stop:  start + rapid.IntRange(0, 300).Draw(t, "length"),
				Step:  rapid.IntRange(1, 4).Draw(t, "step"),
			}
			ps, err := points.NewRange(r, "cfg", nil, "")
			if err != nil {
				t.Fatalf("NewRange: %v", err)
			}
			return ps
		}
		sites := rapid.SliceOfDistinct(rapid.IntRange(0, 10_000), rapid.ID[int]).Draw(t, "sites")
		configs := make(map[int]string, len(sites))
		for _, s := range sites {
			configs[s] = rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "config")
		}
		ps, err := points.NewExplicit(sites, configs)
		if err != nil {
			t.Fatalf("NewExplicit: %v", err)
		}
		return ps
	})
}

func TestSplitCoverageAndDisjointness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ps := pointSetGen().Draw(t, "points")
		c := rapid.IntRange(1, 50).Draw(t, "chunk")
		n := ps.Len()

		var joined []int
		seen := make(map[int]int)
		for i0 := 0; i0 < n; i0 += c {
			sub, err := ps.Split(i0, i0+c)
			if err != nil {
				t.Fatalf("Split(%d, %d): %v", i0, i0+c, err)
			}
			if sub.Empty() {
				t.Fatalf("Split(%d, %d) of %d sites is empty", i0, i0+c, n)
			}
			for _, s := range sub.Sites() {
				want, _ := ps.Config(s)
				got, ok := sub.Config(s)
				if !ok || got != want {
					t.Fatalf("site %d config %q, want %q", s, got, want)
				}
				seen[s]++
			}
			joined = append(joined, sub.Sites()...)
		}
		if diff := cmp.Diff(ps.Sites(), joined); n > 0 && diff != "" {
			t.Fatalf("partitions do not reproduce the site sequence (-want +got):\n%s", diff)
		}
		for s, count := range seen {
			if count != 1 {
				t.Fatalf("site %d appeared in %d partitions", s, count)
			}
		}
	})
}
