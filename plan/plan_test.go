// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/plan"
	"github.com/petenewcomb/sitepool/points"
)

func closedRange(t *testing.T, start, stop int) *points.PointSet {
	ps, err := points.NewRange(points.Range{Start: start, Stop: stop}, "default", nil, "")
	require.NoError(t, err)
	return ps
}

func partitionSizes(t *testing.T, p *plan.Plan) []int {
	parts, err := p.Partitions(context.Background())
	require.NoError(t, err)
	var sizes []int
	for _, part := range parts {
		sizes = append(sizes, part.Points().Len())
	}
	return sizes
}

func TestChunkFromWorkers(t *testing.T) {
	chk := require.New(t)
	p, err := plan.New(context.Background(),
		plan.Control{Nodes: 1, ProcessesPerNode: 4},
		closedRange(t, 0, 250), nil, plan.LevelCore)
	chk.NoError(err)

	chk.Equal(63, p.ChunkSize())
	chk.Equal(4, p.Units())
	chk.Empty(p.Warnings())
	chk.Equal([]int{63, 63, 63, 61}, partitionSizes(t, p))
}

func TestExplicitChunkSize(t *testing.T) {
	chk := require.New(t)
	p, err := plan.New(context.Background(),
		plan.Control{SitesPerUnit: 3},
		closedRange(t, 0, 10), nil, plan.LevelCore)
	chk.NoError(err)
	chk.Equal(4, p.Units())

	parts, err := p.Partitions(context.Background())
	chk.NoError(err)
	var got [][]int
	for _, part := range parts {
		got = append(got, part.Points().Sites())
	}
	want := [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9}}
	chk.Empty(cmp.Diff(want, got))
}

func TestOpenRangeResolvedBeforeChunking(t *testing.T) {
	chk := require.New(t)
	calls := 0
	oracle := points.SiteCounterFunc(func(ctx context.Context, resource string) (int, error) {
		calls++
		chk.Equal("meta.csv", resource)
		return 500, nil
	})
	ps, err := points.NewRange(points.Range{Open: true}, "default", oracle, "meta.csv")
	chk.NoError(err)

	p, err := plan.New(context.Background(),
		plan.Control{Nodes: 2}, ps, []string{"res_2012.csv"}, plan.LevelNode)
	chk.NoError(err)
	chk.Equal(250, p.ChunkSize())
	chk.Equal(2, p.Units())
	chk.Equal([]int{250, 250}, partitionSizes(t, p))
	chk.Equal(1, calls)
}

func TestOpenRangeWithoutOracleFallsBack(t *testing.T) {
	chk := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps, err := points.NewRange(points.Range{Start: 7, Open: true}, "default", nil, "")
	chk.NoError(err)
	core, logs := observer.New(zap.WarnLevel)
	p, err := plan.New(ctx, plan.Control{ProcessesPerNode: 8}, ps, nil, plan.LevelCore,
		plan.WithLogger(zap.New(core)))
	chk.NoError(err)

	chk.Equal(plan.FallbackChunkSize, p.ChunkSize())
	chk.Equal(-1, p.Units())
	chk.Len(p.Warnings(), 1)
	chk.Equal(1, logs.Len())

	_, err = p.Partitions(ctx)
	chk.ErrorIs(err, errs.ErrOpenEnded)

	it := p.Iter()
	for k := range 3 {
		child, ok, err := it.Next(ctx)
		chk.NoError(err)
		chk.True(ok)
		r, _ := child.Points().Range()
		chk.Equal(points.Range{Start: 7 + 100*k, Stop: 107 + 100*k, Step: 1}, r)
	}
	cancel()
	_, _, err = it.Next(ctx)
	chk.ErrorIs(err, context.Canceled)
}

func TestOpenSteppedRangeFailsToSplit(t *testing.T) {
	chk := require.New(t)
	ps, err := points.NewRange(points.Range{Step: 3, Open: true}, "default", nil, "")
	chk.NoError(err)
	p, err := plan.New(context.Background(), plan.Control{}, ps, nil, plan.LevelNode, plan.WithLogger(zap.NewNop()))
	chk.NoError(err)

	it := p.Iter()
	_, ok, err := it.Next(context.Background())
	chk.False(ok)
	var pe *errs.PartitionError
	chk.True(errors.As(err, &pe))

	_, ok, err = it.Next(context.Background())
	chk.False(ok)
	chk.NoError(err)
}

func TestOracleFailurePropagates(t *testing.T) {
	chk := require.New(t)
	oracle := points.SiteCounterFunc(func(context.Context, string) (int, error) {
		return 0, errors.New("no meta")
	})
	ps, err := points.NewRange(points.Range{Open: true}, "default", oracle, "meta.csv")
	chk.NoError(err)

	_, err = plan.New(context.Background(), plan.Control{}, ps, nil, plan.LevelNode)
	var rle *errs.ResourceLookupError
	chk.True(errors.As(err, &rle))
}

func TestChildrenInheritControlAndResources(t *testing.T) {
	chk := require.New(t)
	resources := []string{"res_2012.csv", "res_2013.csv"}
	p, err := plan.New(context.Background(),
		plan.Control{Nodes: 3, SitesPerUnit: 4},
		closedRange(t, 100, 110), resources, plan.LevelNode)
	chk.NoError(err)
	resources[0] = "mutated"

	parts, err := p.Partitions(context.Background())
	chk.NoError(err)
	chk.Len(parts, 3)
	for _, part := range parts {
		chk.Equal(plan.LevelNode, part.Level())
		chk.Equal(p.Control(), part.Control())
		chk.Equal([]string{"res_2012.csv", "res_2013.csv"}, part.ResourceFiles())
	}
}

func TestDescend(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	p, err := plan.New(ctx, plan.Control{Nodes: 2}, closedRange(t, 0, 100), []string{"r"}, plan.LevelNode)
	chk.NoError(err)

	node, ok, err := p.Iter().Next(ctx)
	chk.NoError(err)
	chk.True(ok)
	chk.Equal(50, node.Points().Len())

	core, err := node.Descend(plan.Control{ProcessesPerNode: 4})
	chk.NoError(err)
	chk.Equal(plan.LevelCore, core.Level())
	chk.Equal(13, core.ChunkSize())
	chk.Equal([]int{13, 13, 13, 11}, partitionSizes(t, core))
	chk.Equal([]string{"r"}, core.ResourceFiles())

	_, err = core.Descend(plan.Control{})
	var ce *errs.ConfigError
	chk.True(errors.As(err, &ce))
	chk.ErrorIs(err, errs.ErrNotSplittable)
}

func TestEmptyPointSetHasNoUnits(t *testing.T) {
	chk := require.New(t)
	p, err := plan.New(context.Background(), plan.Control{ProcessesPerNode: 4}, closedRange(t, 5, 5), nil, plan.LevelCore)
	chk.NoError(err)
	chk.Equal(0, p.Units())
	_, ok, err := p.Iter().Next(context.Background())
	chk.NoError(err)
	chk.False(ok)
}

func TestControlValidation(t *testing.T) {
	chk := require.New(t)
	_, err := plan.New(context.Background(), plan.Control{Nodes: -1}, closedRange(t, 0, 1), nil, plan.LevelNode)
	chk.ErrorContains(err, "nodes")
	_, err = plan.New(context.Background(), plan.Control{}, nil, nil, plan.LevelNode)
	chk.Error(err)

	chk.Equal(6, plan.Control{Nodes: 2, ProcessesPerNode: 3}.Workers())
	chk.Equal(1, plan.Control{}.Workers())
}

func TestParseLevel(t *testing.T) {
	chk := require.New(t)
	l, err := plan.ParseLevel("core")
	chk.NoError(err)
	chk.Equal(plan.LevelCore, l)
	chk.Equal("node", plan.LevelNode.String())
	_, err = plan.ParseLevel("rack")
	chk.Error(err)
}

func TestIterationTerminates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 2000).Draw(t, "n")
		c := rapid.IntRange(1, 300).Draw(t, "c")
		start := rapid.IntRange(0, 100).Draw(t, "start")
		ps, err := points.NewRange(points.Range{Start: start, Stop: start + n}, "default", nil, "")
		if err != nil {
			t.Fatal(err)
		}
		p, err := plan.New(context.Background(), plan.Control{SitesPerUnit: c}, ps, nil, plan.LevelCore)
		if err != nil {
			t.Fatal(err)
		}
		want := (n + c - 1) / c
		if p.Units() != want {
			t.Fatalf("Units() = %d, want %d", p.Units(), want)
		}
		it := p.Iter()
		total := 0
		for {
			child, ok, err := it.Next(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			if child.Points().Empty() {
				t.Fatalf("step %d is empty", it.Steps())
			}
			total += child.Points().Len()
		}
		if it.Steps() != want || total != n {
			t.Fatalf("got %d steps over %d sites, want %d over %d", it.Steps(), total, want, n)
		}
		if _, ok, _ := it.Next(context.Background()); ok {
			t.Fatal("iterator resumed after stopping")
		}
	})
}
