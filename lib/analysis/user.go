package analysis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"toplogger-backend/lib/grades"
	"toplogger-backend/lib/table"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// UserTables are the master tables for one user: the enriched ascent
// history plus the community stats fetched per ascent.
type UserTables struct {
	Ascends           *table.Table
	Gyms              map[int64]GymInfo
	CommunityGrades   *table.Table
	CommunityOpinions *table.Table
	Toppers           *table.Table
}

type UserTablesOptions struct {
	// bypass cache reads on every fetch (responses are still cached)
	ForceRefresh bool
	// keep ascents that weren't topped; by default only tops survive
	IncludeUntopped bool
	// ask the service for logged ("used") ascents only
	UsedOnly bool
}

// UserMasterTables runs the full user pipeline: fetch ascents with
// climb data, flatten, coerce, join gym metadata, fetch community
// stats per ascent, and enrich. Any failed remote fetch aborts the
// whole build.
func (s Service) UserMasterTables(ctx context.Context, userID int64, opts UserTablesOptions) (UserTables, error) {
	ctx, span := tracer.Start(ctx, "UserMasterTables")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "user_id",
		Value: attribute.Int64Value(userID),
	})

	builder := s.TL.UserAscends(userID).Include("climb")
	if opts.UsedOnly {
		builder.Filter(map[string]any{"used": true})
	}
	raw, err := builder.Execute(ctx, !opts.ForceRefresh)
	if err != nil {
		return UserTables{}, err
	}

	ascends, err := table.FromAny(raw)
	if err != nil {
		return UserTables{}, fmt.Errorf("analysis: ascends for user %d: %w", userID, err)
	}
	ascends, err = ascends.Flatten("climb")
	if err != nil {
		return UserTables{}, err
	}
	err = coerceAscends(ascends)
	if err != nil {
		return UserTables{}, err
	}
	if !opts.IncludeUntopped {
		ascends = ascends.FilterRows(func(row map[string]any) bool {
			topped, _ := row["topped"].(bool)
			return topped
		})
	}

	gyms, err := s.fetchGyms(ctx, distinctInt64(ascends, "climb_gym_id"), opts.ForceRefresh)
	if err != nil {
		return UserTables{}, err
	}

	stats, err := s.fetchClimbStats(ctx, ascends, opts.ForceRefresh)
	if err != nil {
		return UserTables{}, err
	}

	err = enrichClimbRows(ascends, gyms, "climb_gym_id", "climb_hold_id", "climb_setter_id", "climb_grade", "grade_string")
	if err != nil {
		return UserTables{}, err
	}

	out := UserTables{
		Ascends:           ascends,
		Gyms:              gyms,
		CommunityGrades:   table.New("community_grade", "gym_id", "climb_id"),
		CommunityOpinions: table.New("community_opinion", "gym_id", "climb_id"),
	}
	toppers := table.New("topper", "gym_id", "climb_id")
	for i := 0; i < ascends.Len(); i++ {
		gymID, _ := ascends.Value(i, "climb_gym_id")
		climbID, _ := ascends.Value(i, "climb_id")
		out.CommunityGrades.Append(map[string]any{
			"community_grade": stats[i].grades,
			"gym_id":          gymID,
			"climb_id":        climbID,
		})
		out.CommunityOpinions.Append(map[string]any{
			"community_opinion": stats[i].opinions,
			"gym_id":            gymID,
			"climb_id":          climbID,
		})
		toppers.Append(map[string]any{
			"topper":   stats[i].toppers,
			"gym_id":   gymID,
			"climb_id": climbID,
		})
	}
	toppers, err = toppers.Explode("topper")
	if err != nil {
		return UserTables{}, err
	}
	out.Toppers, err = toppers.Flatten("topper")
	if err != nil {
		return UserTables{}, err
	}

	return out, nil
}

// UserProfile fetches a user's profile record (name, avatar, ...).
func (s Service) UserProfile(ctx context.Context, userID int64, force bool) (map[string]any, error) {
	raw, err := s.TL.User(userID).Execute(ctx, !force)
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("analysis: user %d: expected a JSON object, got %T", userID, raw)
	}
	return obj, nil
}

// coerceAscends fixes up the value kinds of the flattened ascend
// table: ids become int64 (a missing setter id becomes the -1
// sentinel), the grade becomes float64 and date_logged becomes a
// time.Time.
func coerceAscends(t *table.Table) error {
	for i := 0; i < t.Len(); i++ {
		for _, col := range []string{"climb_gym_id", "climb_hold_id"} {
			v, ok := t.Value(i, col)
			if !ok || v == nil {
				return fmt.Errorf("analysis: ascend row %d has no %s", i, col)
			}
			n, ok := asInt64(v)
			if !ok {
				return fmt.Errorf("analysis: ascend row %d: %s holds %T, not a number", i, col, v)
			}
			t.Set(i, col, n)
		}

		setterID, err := cellInt64(t, i, "climb_setter_id", noSetter)
		if err != nil {
			return err
		}
		t.Set(i, "climb_setter_id", setterID)

		if v, ok := t.Value(i, "climb_id"); ok && v != nil {
			if n, ok := asInt64(v); ok {
				t.Set(i, "climb_id", n)
			}
		}

		grade, err := cellFloat64(t, i, "climb_grade")
		if err != nil {
			return err
		}
		t.Set(i, "climb_grade", grade)

		if v, ok := t.Value(i, "date_logged"); ok {
			if str, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339, str); err == nil {
					t.Set(i, "date_logged", ts)
				}
			}
		}
	}
	return nil
}

// cellFloat64 reads a numeric cell that may arrive as a JSON number or
// a decimal string.
func cellFloat64(t *table.Table, row int, col string) (float64, error) {
	v, ok := t.Value(row, col)
	if !ok || v == nil {
		return 0, fmt.Errorf("analysis: row %d has no %s", row, col)
	}
	if f, ok := asFloat64(v); ok {
		return f, nil
	}
	if str, ok := v.(string); ok {
		f, err := strconv.ParseFloat(str, 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("analysis: row %d: %s holds %T, not a number", row, col, v)
}

func distinctInt64(t *table.Table, col string) []int64 {
	seen := map[int64]bool{}
	var out []int64
	for i := 0; i < t.Len(); i++ {
		v, ok := t.Value(i, col)
		if !ok {
			continue
		}
		n, ok := asInt64(v)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

type climbStats struct {
	grades   any
	opinions any
	toppers  any
}

// fetchClimbStats fetches community stats for every ascend row, one
// call per row with no dedup by climb id: two ascents of the same
// climb fetch twice. Results are placed by row index so the output is
// order-stable even though the fetches run on a pool.
func (s Service) fetchClimbStats(ctx context.Context, ascends *table.Table, force bool) ([]climbStats, error) {
	ctx, span := tracer.Start(ctx, "fetchClimbStats")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "rows",
		Value: attribute.IntValue(ascends.Len()),
	})

	results := make([]climbStats, ascends.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := 0; i < ascends.Len(); i++ {
		gymID, err := cellInt64(ascends, i, "climb_gym_id", 0)
		if err != nil {
			return nil, err
		}
		climbID, err := cellInt64(ascends, i, "climb_id", 0)
		if err != nil {
			return nil, err
		}

		i := i
		g.Go(func() error {
			raw, err := s.TL.ClimbStats(gymID, climbID).Execute(ctx, !force)
			if err != nil {
				return err
			}
			obj, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("analysis: stats for climb %d: expected a JSON object, got %T", climbID, raw)
			}
			results[i] = climbStats{
				grades:   obj["community_grades"],
				opinions: obj["community_opinions"],
				toppers:  obj["toppers"],
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// enrichClimbRows adds grade glyph, hold brand/color and setter name
// columns, resolved against the owning gym's metadata maps.
func enrichClimbRows(t *table.Table, gyms map[int64]GymInfo, gymCol, holdCol, setterCol, gradeCol, glyphCol string) error {
	for i := 0; i < t.Len(); i++ {
		gymID, err := cellInt64(t, i, gymCol, 0)
		if err != nil {
			return err
		}
		gym, ok := gyms[gymID]
		if !ok {
			return fmt.Errorf("analysis: row %d references gym %d which was never fetched", i, gymID)
		}

		grade, err := cellFloat64(t, i, gradeCol)
		if err != nil {
			return err
		}
		if glyph, ok := grades.GlyphForValue(grade); ok {
			t.Set(i, glyphCol, glyph)
		}

		holdID, err := cellInt64(t, i, holdCol, 0)
		if err != nil {
			return err
		}
		hold, err := gym.hold(holdID)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		t.Set(i, "color", hold.Brand)
		t.Set(i, "hexcolor", hold.Color)

		setterID, err := cellInt64(t, i, setterCol, noSetter)
		if err != nil {
			return err
		}
		t.Set(i, "setter", gym.setterName(setterID))
	}
	return nil
}
