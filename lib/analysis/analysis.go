// Package analysis orchestrates the fetch-join-enrich pipelines that
// turn raw TopLogger resources into the denormalized tables the
// dashboards consume.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"toplogger-backend/lib/table"
	"toplogger-backend/lib/toplogger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("analysis")

// fetchConcurrency bounds the worker pools for gym metadata and
// per-ascent community stats fetches.
const fetchConcurrency = 4

// noSetter is the sentinel the service uses for climbs without a
// setter. It never matches a real setter id and always resolves to an
// empty name.
const noSetter int64 = -1

type Service struct {
	TL *toplogger.Client
}

type Hold struct {
	ID    int64
	Brand string
	Color string
}

type Setter struct {
	ID   int64
	Name string
}

// GymInfo is a gym with its holds and setters re-keyed by id for O(1)
// lookup during enrichment. The maps are rebuilt on every fetch so a
// force refresh never sees stale metadata.
type GymInfo struct {
	ID      int64
	Name    string
	Holds   map[int64]Hold
	Setters map[int64]Setter
}

// fetchGym loads one gym with holds and setters included and converts
// both lists into id-keyed maps.
func (s Service) fetchGym(ctx context.Context, gymID int64, force bool) (GymInfo, error) {
	ctx, span := tracer.Start(ctx, "fetchGym")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "gym_id",
		Value: attribute.Int64Value(gymID),
	})

	raw, err := s.TL.Gym(gymID).
		Include("holds").
		Include("setters").
		Execute(ctx, !force)
	if err != nil {
		return GymInfo{}, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return GymInfo{}, fmt.Errorf("analysis: gym %d: expected a JSON object, got %T", gymID, raw)
	}

	info := GymInfo{
		ID:      gymID,
		Holds:   map[int64]Hold{},
		Setters: map[int64]Setter{},
	}
	info.Name, _ = obj["name"].(string)

	holds, _ := obj["holds"].([]any)
	for _, h := range holds {
		rec, ok := h.(map[string]any)
		if !ok {
			continue
		}
		id, ok := asInt64(rec["id"])
		if !ok {
			continue
		}
		brand, _ := rec["brand"].(string)
		color, _ := rec["color"].(string)
		info.Holds[id] = Hold{ID: id, Brand: brand, Color: color}
	}

	setters, _ := obj["setters"].([]any)
	for _, st := range setters {
		rec, ok := st.(map[string]any)
		if !ok {
			continue
		}
		id, ok := asInt64(rec["id"])
		if !ok {
			continue
		}
		name, _ := rec["name"].(string)
		info.Setters[id] = Setter{ID: id, Name: name}
	}

	return info, nil
}

// fetchGyms loads gym metadata for every id, on a bounded pool. A
// single failed fetch fails the whole call.
func (s Service) fetchGyms(ctx context.Context, gymIDs []int64, force bool) (map[int64]GymInfo, error) {
	ctx, span := tracer.Start(ctx, "fetchGyms")
	defer span.End()

	ids := append([]int64{}, gymIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]GymInfo, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			info, err := s.fetchGym(ctx, id, force)
			if err != nil {
				return err
			}
			results[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int64]GymInfo, len(results))
	for _, info := range results {
		out[info.ID] = info
	}
	return out, nil
}

// hold resolves a climb's hold within its gym. A miss is a data
// inconsistency from the service and fails loudly.
func (g GymInfo) hold(holdID int64) (Hold, error) {
	h, ok := g.Holds[holdID]
	if !ok {
		return Hold{}, fmt.Errorf("analysis: gym %d has no hold %d", g.ID, holdID)
	}
	return h, nil
}

// setterName resolves a climb's setter within its gym. The -1 sentinel
// and unknown ids both yield an empty name, never an error.
func (g GymInfo) setterName(setterID int64) string {
	if setterID == noSetter {
		return ""
	}
	return g.Setters[setterID].Name
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// cellInt64 reads an integer cell, treating absent and null as the
// given default.
func cellInt64(t *table.Table, row int, col string, def int64) (int64, error) {
	v, ok := t.Value(row, col)
	if !ok || v == nil {
		return def, nil
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, fmt.Errorf("analysis: row %d: column %q holds %T, not a number", row, col, v)
	}
	return n, nil
}
