package parser

import (
	"context"

	"github.com/vvka-141/dbfill/internal/report"
	"github.com/vvka-141/dbfill/pkg/dbfill"
	"golang.org/x/sync/errgroup"
)

// Builder assembles the schema map from a selection.
type Builder struct {
	classifier *Classifier
	workers    int
}

// NewBuilder creates a Builder. workers > 1 classifies entity types in
// parallel; the result and the order of reported lines do not change.
func NewBuilder(c *Classifier, workers int) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{classifier: c, workers: workers}
}

type buildResult struct {
	record *dbfill.EntityRecord
	lines  *report.Buffer
	err    error
}

// Build classifies every selected entity type and returns the schema map.
// Every selected group is present, including empty ones. The first
// conflict in registry order fails the build; lines reported by entity
// types before it are still written to the sink.
func (b *Builder) Build(ctx context.Context, sel *Selection) (*dbfill.SchemaMap, error) {
	sink := b.classifier.sink
	if sink == nil {
		return nil, dbfill.ErrSinkNotConfigured
	}

	var types []*dbfill.EntityType
	for _, g := range sel.Groups() {
		types = append(types, g.Types...)
	}

	results := make([]buildResult, len(types))
	if b.workers == 1 {
		for i, et := range types {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := b.classifier.classify(et, sink)
			if err != nil {
				return nil, err
			}
			results[i] = buildResult{record: rec}
		}
	} else if err := b.classifyParallel(ctx, types, results); err != nil {
		return nil, err
	}

	if b.workers > 1 {
		for _, r := range results {
			r.lines.FlushTo(sink)
			if r.err != nil {
				return nil, r.err
			}
		}
	}

	m := dbfill.NewSchemaMap()
	i := 0
	for _, g := range sel.Groups() {
		records := dbfill.NewOrderedMap[*dbfill.EntityRecord]()
		for _, et := range g.Types {
			records.Set(et.Type, results[i].record)
			i++
		}
		m.Set(g.Group, records)
	}
	return m, nil
}

// classifyParallel fills results for every entity type. Conflicts are kept
// per entity type instead of cancelling the group so that the caller can
// pick the first one in registry order.
func (b *Builder) classifyParallel(ctx context.Context, types []*dbfill.EntityType, results []buildResult) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)

	for i, et := range types {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines := report.NewBuffer()
			rec, err := b.classifier.classify(et, lines)
			results[i] = buildResult{record: rec, lines: lines, err: err}
			return nil
		})
	}

	return eg.Wait()
}
