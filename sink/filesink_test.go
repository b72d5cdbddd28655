// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sink_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool"
	"github.com/petenewcomb/sitepool/plan"
	"github.com/petenewcomb/sitepool/points"
	"github.com/petenewcomb/sitepool/sink"
)

type energy struct {
	MWh float64 `yaml:"mwh"`
}

func results(t *testing.T, round int, sites ...[]int) []sitepool.WorkResult[energy] {
	var out []sitepool.WorkResult[energy]
	for i, s := range sites {
		configs := make(map[int]string, len(s))
		for _, site := range s {
			configs[site] = "wind"
		}
		ps, err := points.NewExplicit(s, configs)
		require.NoError(t, err)
		unit, err := plan.New(context.Background(), plan.Control{}, ps, nil, plan.LevelCore)
		require.NoError(t, err)
		out = append(out, sitepool.WorkResult[energy]{
			Seq:   i,
			Round: round,
			Unit:  unit,
			Value: energy{MWh: float64(len(s)) * 1.5},
		})
	}
	return out
}

func TestFileSinkAppendsAcrossFlushes(t *testing.T) {
	chk := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.yaml")
	s := sink.NewFileSink[energy](path, zap.NewNop())

	chk.NoError(s.Accumulate(results(t, 1, []int{1, 2}, []int{3})))
	chk.NoError(s.Flush(ctx))
	s.ResetAccumulator()
	chk.NoError(s.Accumulate(results(t, 2, []int{9})))
	chk.NoError(s.Flush(ctx))
	s.ResetAccumulator()

	chk.Equal(3, s.Written())
	chk.Equal(2, s.Flushes())

	f, err := os.Open(path)
	chk.NoError(err)
	defer f.Close()
	recs, err := sink.ReadRecords[energy](f)
	chk.NoError(err)
	chk.Len(recs, 3)
	chk.Equal(sink.Record[energy]{Seq: 0, Round: 1, Sites: []int{1, 2}, Configs: []string{"wind"}, Value: energy{MWh: 3}}, recs[0])
	chk.Equal([]int{9}, recs[2].Sites)
	chk.Equal(2, recs[2].Round)
}

func TestFileSinkEmptyFlushIsNoOp(t *testing.T) {
	chk := require.New(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	s := sink.NewFileSink[energy](path, zap.NewNop())

	chk.NoError(s.Flush(context.Background()))
	_, err := os.Stat(path)
	chk.True(os.IsNotExist(err))
	chk.Zero(s.Flushes())
}

func TestFileSinkResetDropsPending(t *testing.T) {
	chk := require.New(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	s := sink.NewFileSink[energy](path, zap.NewNop())

	chk.NoError(s.Accumulate(results(t, 1, []int{4})))
	s.ResetAccumulator()
	chk.NoError(s.Flush(context.Background()))
	chk.Zero(s.Written())
}

func TestFileSinkReportsWriteErrors(t *testing.T) {
	chk := require.New(t)
	s := sink.NewFileSink[energy](filepath.Join(t.TempDir(), "missing", "out.yaml"), zap.NewNop())
	chk.NoError(s.Accumulate(results(t, 1, []int{4})))
	chk.Error(s.Flush(context.Background()))
}
