package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"toplogger-backend/lib/table"

	"go.opentelemetry.io/otel/attribute"
)

// GymClimbsOptions controls the gym master table build.
type GymClimbsOptions struct {
	// bypass cache reads on every fetch (responses are still cached)
	ForceRefresh bool
}

var circuitOrdinal = regexp.MustCompile(`\d+`)

// GymClimbs builds the master table of a gym's current climbs: the
// live climb list enriched with grade glyphs, hold colors and setter
// names, joined against the gym's live circuits.
func (s Service) GymClimbs(ctx context.Context, gymID int64, opts GymClimbsOptions) (*table.Table, error) {
	ctx, span := tracer.Start(ctx, "GymClimbs")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "gym_id",
		Value: attribute.Int64Value(gymID),
	})

	raw, err := s.TL.Climbs(gymID).Execute(ctx, !opts.ForceRefresh)
	if err != nil {
		return nil, err
	}
	climbs, err := table.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("analysis: climbs for gym %d: %w", gymID, err)
	}
	climbs = climbs.FilterRows(func(row map[string]any) bool {
		lived, _ := row["lived"].(bool)
		return lived
	})

	gym, err := s.fetchGym(ctx, gymID, opts.ForceRefresh)
	if err != nil {
		return nil, err
	}

	err = enrichGymClimbs(climbs, gym)
	if err != nil {
		return nil, err
	}
	climbs = climbs.Drop("climb_gym_id")

	circuits, err := s.fetchCircuits(ctx, gymID, opts.ForceRefresh)
	if err != nil {
		return nil, err
	}

	joined, err := climbs.LeftJoin(circuits, "id", "climb_groups_climb_id")
	if err != nil {
		return nil, err
	}

	for i := 0; i < joined.Len(); i++ {
		for _, col := range []string{"circuit_name", "remarks"} {
			if v, ok := joined.Value(i, col); !ok || v == nil {
				joined.Set(i, col, "")
			}
		}
		joined.Set(i, "number", circuitNumber(joined, i))
	}

	return joined, nil
}

// fetchCircuits loads the gym's live climb groups, exploded so each
// row is one (circuit, climb) membership, and strips the columns the
// join doesn't need.
func (s Service) fetchCircuits(ctx context.Context, gymID int64, force bool) (*table.Table, error) {
	raw, err := s.TL.Groups(gymID).Include("climb_groups").Execute(ctx, !force)
	if err != nil {
		return nil, err
	}
	groups, err := table.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("analysis: groups for gym %d: %w", gymID, err)
	}

	groups, err = groups.Explode("climb_groups")
	if err != nil {
		return nil, err
	}
	groups, err = groups.Flatten("climb_groups")
	if err != nil {
		return nil, err
	}

	groups = groups.Drop(
		"gym_id", "order", "live", "lived",
		"climbs_type", "score_system",
		"approve_participation", "split_gender", "split_age",
		"climb_groups_order",
	)
	return groups.Rename("name", "circuit_name"), nil
}

// enrichGymClimbs resolves grade glyphs, hold colors and setter names
// on the raw climb rows. The grade may arrive as a JSON number or a
// decimal string.
func enrichGymClimbs(climbs *table.Table, gym GymInfo) error {
	gyms := map[int64]GymInfo{gym.ID: gym}
	for i := 0; i < climbs.Len(); i++ {
		climbs.Set(i, "climb_gym_id", gym.ID)
	}
	return enrichClimbRows(climbs, gyms, "climb_gym_id", "hold_id", "setter_id", "grade", "grade_str")
}

// circuitNumber extracts the ordinal from a circuit's "number" label
// ("boulder 12a" yields 12). Rows outside any circuit, or with a label
// holding no digits, get -1.
func circuitNumber(t *table.Table, row int) int64 {
	v, ok := t.Value(row, "climb_groups_number")
	if !ok || v == nil {
		return -1
	}
	var label string
	switch n := v.(type) {
	case string:
		label = n
	case float64:
		return int64(n)
	default:
		return -1
	}
	digits := circuitOrdinal.FindString(label)
	if digits == "" {
		return -1
	}
	out, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return -1
	}
	return out
}
