package constraint

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/xizheyin/callgraph4rs/internal/ir"
)

// AnalyzeAll runs ComputeShortestPaths over bodies with at most jobs
// workers. results[i] belongs to bodies[i]; a nil body yields an empty Info.
func AnalyzeAll(ctx context.Context, bodies []*ir.Body, jobs int) ([]*Info, error) {
	results := make([]*Info, len(bodies))
	if len(bodies) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if jobs == 1 || len(bodies) == 1 {
		for i, b := range bodies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = ComputeShortestPaths(b)
		}
		return results, nil
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(bodies)))
	for i, b := range bodies {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = ComputeShortestPaths(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
