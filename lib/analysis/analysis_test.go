package analysis

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"toplogger-backend/lib/table"
	"toplogger-backend/lib/telemetry"
	"toplogger-backend/lib/toplogger"

	"github.com/stretchr/testify/require"
)

// fakeService is an in-process stand-in for the remote API serving a
// single gym with two holds, two setters, a couple of climbs and one
// live circuit.
type fakeService struct {
	mux       *http.ServeMux
	statsHits atomic.Int64
}

func newFakeService(t *testing.T) (*fakeService, Service) {
	f := &fakeService{mux: http.NewServeMux()}

	f.mux.HandleFunc("/ascends", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "topped": true, "date_logged": "2024-03-01T10:00:00Z",
			 "climb": {"id": 100, "gym_id": 5, "hold_id": 11, "setter_id": 21, "grade": "6.17"}},
			{"id": 2, "topped": true, "date_logged": "2024-03-02T10:00:00Z",
			 "climb": {"id": 100, "gym_id": 5, "hold_id": 11, "setter_id": null, "grade": 6.33}},
			{"id": 3, "topped": false,
			 "climb": {"id": 101, "gym_id": 5, "hold_id": 12, "setter_id": 22, "grade": 5.0}}
		]`)
	})
	f.mux.HandleFunc("/gyms/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": 5, "name": "Boulder Barn",
			"holds": [
				{"id": 11, "brand": "Red", "color": "#ff0000"},
				{"id": 12, "brand": "Blue", "color": "#0000ff"}
			],
			"setters": [
				{"id": 21, "name": "Alex"},
				{"id": 22, "name": "Sam"}
			]
		}`)
	})
	f.mux.HandleFunc("/gyms/5/climbs/", func(w http.ResponseWriter, r *http.Request) {
		f.statsHits.Add(1)
		fmt.Fprint(w, `{
			"community_grades": [{"grade": 6.17, "count": 3}],
			"community_opinions": [{"stars": 4, "count": 2}],
			"toppers": [{"uid": 7, "date_logged": "2024-02-01T09:00:00Z"}, {"uid": 8}]
		}`)
	})
	f.mux.HandleFunc("/gyms/5/climbs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 100, "lived": true, "hold_id": 11, "setter_id": 21, "grade": "6.17", "remarks": "slopey"},
			{"id": 101, "lived": true, "hold_id": 12, "setter_id": null, "grade": 5.0},
			{"id": 102, "lived": false, "hold_id": 11, "setter_id": 21, "grade": 4.0}
		]`)
	})
	f.mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 900, "name": "Comp circuit", "gym_id": 5, "order": 1,
			 "live": true, "lived": true, "climbs_type": "boulder",
			 "score_system": "points", "approve_participation": false,
			 "split_gender": false, "split_age": false,
			 "climb_groups": [
				{"climb_id": 100, "number": "boulder 12a", "order": 1},
				{"climb_id": 103, "number": "7", "order": 2}
			 ]}
		]`)
	})

	server := httptest.NewServer(f.mux)
	t.Cleanup(server.Close)

	client := toplogger.NewClient(toplogger.Options{BaseURL: server.URL})
	return f, Service{TL: client}
}

func TestUserMasterTables(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:analysis")
	defer cleanup()

	fake, svc := newFakeService(t)
	tables, err := svc.UserMasterTables(context.Background(), 42, UserTablesOptions{})
	require.NoError(t, err)

	// the untopped ascend is gone
	require.Equal(t, 2, tables.Ascends.Len())

	glyph, _ := tables.Ascends.Value(0, "grade_string")
	require.Equal(t, "6ᴀ⁺", glyph)
	glyph, _ = tables.Ascends.Value(1, "grade_string")
	require.Equal(t, "6ʙ", glyph)

	color, _ := tables.Ascends.Value(0, "color")
	require.Equal(t, "Red", color)
	hexcolor, _ := tables.Ascends.Value(0, "hexcolor")
	require.Equal(t, "#ff0000", hexcolor)

	setter, _ := tables.Ascends.Value(0, "setter")
	require.Equal(t, "Alex", setter)
	// null setter id falls back to the empty name
	setter, _ = tables.Ascends.Value(1, "setter")
	require.Equal(t, "", setter)

	require.Contains(t, tables.Gyms, int64(5))
	require.Equal(t, "Boulder Barn", tables.Gyms[5].Name)

	// one stats row per ascend, even for repeats of the same climb
	require.EqualValues(t, 2, fake.statsHits.Load())
	require.Equal(t, 2, tables.CommunityGrades.Len())
	require.Equal(t, 2, tables.CommunityOpinions.Len())

	// two toppers per ascend, exploded and flattened
	require.Equal(t, 4, tables.Toppers.Len())
	uid, _ := tables.Toppers.Value(0, "topper_uid")
	require.Equal(t, float64(7), uid)
}

func TestUserMasterTablesIncludeUntopped(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:analysis")
	defer cleanup()

	_, svc := newFakeService(t)
	tables, err := svc.UserMasterTables(context.Background(), 42, UserTablesOptions{IncludeUntopped: true})
	require.NoError(t, err)
	require.Equal(t, 3, tables.Ascends.Len())
}

func TestGymClimbs(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:analysis")
	defer cleanup()

	_, svc := newFakeService(t)
	climbs, err := svc.GymClimbs(context.Background(), 5, GymClimbsOptions{})
	require.NoError(t, err)

	// the dead climb never shows up
	require.Equal(t, 2, climbs.Len())

	glyph, _ := climbs.Value(0, "grade_str")
	require.Equal(t, "6ᴀ⁺", glyph)
	setter, _ := climbs.Value(0, "setter")
	require.Equal(t, "Alex", setter)
	color, _ := climbs.Value(1, "color")
	require.Equal(t, "Blue", color)

	// climb 100 sits in the circuit, its label ordinal extracted
	name, _ := climbs.Value(0, "circuit_name")
	require.Equal(t, "Comp circuit", name)
	number, _ := climbs.Value(0, "number")
	require.Equal(t, int64(12), number)
	remarks, _ := climbs.Value(0, "remarks")
	require.Equal(t, "slopey", remarks)

	// climb 101 is outside every circuit
	name, _ = climbs.Value(1, "circuit_name")
	require.Equal(t, "", name)
	number, _ = climbs.Value(1, "number")
	require.Equal(t, int64(-1), number)
	remarks, _ = climbs.Value(1, "remarks")
	require.Equal(t, "", remarks)

	// the group id collides with the climb id across the join
	require.True(t, climbs.HasColumn("id_x"))
	require.True(t, climbs.HasColumn("id_y"))
}

func TestUserMasterTablesUnknownHold(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:analysis")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/ascends", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "topped": true,
			"climb": {"id": 100, "gym_id": 5, "hold_id": 99, "setter_id": 21, "grade": 6.0}}]`)
	})
	mux.HandleFunc("/gyms/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 5, "name": "Boulder Barn", "holds": [], "setters": []}`)
	})
	mux.HandleFunc("/gyms/5/climbs/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"community_grades": [], "community_opinions": [], "toppers": []}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := Service{TL: toplogger.NewClient(toplogger.Options{BaseURL: server.URL})}
	_, err := svc.UserMasterTables(context.Background(), 42, UserTablesOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "has no hold")
}

func TestUserMasterTablesRemoteFailureAborts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:analysis")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/ascends", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "topped": true,
			"climb": {"id": 100, "gym_id": 5, "hold_id": 11, "setter_id": 21, "grade": 6.0}}]`)
	})
	mux.HandleFunc("/gyms/5", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := Service{TL: toplogger.NewClient(toplogger.Options{BaseURL: server.URL})}
	_, err := svc.UserMasterTables(context.Background(), 42, UserTablesOptions{})
	require.Error(t, err)

	var remoteErr *toplogger.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
}

func TestCircuitNumber(t *testing.T) {
	tab := table.New("climb_groups_number")
	tab.Append(map[string]any{"climb_groups_number": "boulder 12a"})
	tab.Append(map[string]any{"climb_groups_number": "no ordinal here"})
	tab.Append(map[string]any{"climb_groups_number": float64(7)})
	tab.Append(map[string]any{})

	require.Equal(t, int64(12), circuitNumber(tab, 0))
	require.Equal(t, int64(-1), circuitNumber(tab, 1))
	require.Equal(t, int64(7), circuitNumber(tab, 2))
	require.Equal(t, int64(-1), circuitNumber(tab, 3))
}

func TestParseUserID(t *testing.T) {
	id, err := ParseUserID("4711")
	require.NoError(t, err)
	require.EqualValues(t, 4711, id)

	id, err = ParseUserID("https://app.toplogger.nu/en-us/profile?uid=4711&gym=5")
	require.NoError(t, err)
	require.EqualValues(t, 4711, id)

	for _, bad := range []string{"", "climber", "https://app.toplogger.nu/en-us/profile", "12abc"} {
		_, err := ParseUserID(bad)
		require.ErrorIs(t, err, ErrBadUserID, "input %q", bad)
	}
}
