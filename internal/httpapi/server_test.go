package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/slotmap/internal/placement"
	"github.com/arloliu/slotmap/internal/rebalance"
	"github.com/arloliu/slotmap/types"
)

// fakeCoordinator serves a fixed table and records rebalance requests.
type fakeCoordinator struct {
	table      *types.SlotTable
	leader     bool
	rebalanced []rebalance.Kind
	outcome    rebalance.Outcome
	err        error
}

func (f *fakeCoordinator) NodeID() string { return "meta-1" }
func (f *fakeCoordinator) IsLeader() bool { return f.leader }

func (f *fakeCoordinator) CurrentLeader(context.Context) (string, error) {
	if f.leader {
		return "meta-1", nil
	}
	return "meta-2", nil
}

func (f *fakeCoordinator) Table() *types.SlotTable { return f.table }

func (f *fakeCoordinator) Slot(id int) (types.Slot, error) {
	if f.table == nil {
		return types.Slot{}, types.ErrNoTable
	}
	slot, ok := f.table.Get(id)
	if !ok {
		return types.Slot{}, fmt.Errorf("%w: %d", types.ErrSlotNotFound, id)
	}
	return slot, nil
}

func (f *fakeCoordinator) Route(key string) (types.Slot, error) {
	return f.Slot(types.SlotForKey(key, f.table.Len()))
}

func (f *fakeCoordinator) Rebalance(_ context.Context, kind rebalance.Kind) (rebalance.Outcome, error) {
	f.rebalanced = append(f.rebalanced, kind)
	return f.outcome, f.err
}

func newTestTable(t *testing.T) *types.SlotTable {
	t.Helper()

	engine, err := placement.New(4, 1)
	require.NoError(t, err)
	table, err := engine.Assign([]types.Node{{Address: "a:1"}, {Address: "b:1"}, {Address: "c:1"}}, 1<<20)
	require.NoError(t, err)

	return table
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

func TestServer_Table(t *testing.T) {
	coord := &fakeCoordinator{table: newTestTable(t), leader: true}
	h := NewServer(coord).Handler()

	rec := do(t, h, http.MethodGet, "/v1/slots")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))

	resp := decode[TableResponse](t, rec)
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, coord.table.Epoch, resp.Epoch)
	require.Len(t, resp.Slots, 4)
	for i, slot := range resp.Slots {
		require.Equal(t, i, slot.ID)
		require.Equal(t, coord.table.LeaderOf(i), slot.Leader)
	}
	require.NotEmpty(t, resp.CommittedAt)
}

func TestServer_TableMissing(t *testing.T) {
	h := NewServer(&fakeCoordinator{}).Handler()

	rec := do(t, h, http.MethodGet, "/v1/slots")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, StatusError, decode[Response](t, rec).Status)
}

func TestServer_Slot(t *testing.T) {
	coord := &fakeCoordinator{table: newTestTable(t)}
	h := NewServer(coord).Handler()

	rec := do(t, h, http.MethodGet, "/v1/slots/2")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SlotResponse](t, rec)
	require.Equal(t, 2, resp.Slot.ID)
	require.Equal(t, coord.table.FollowersOf(2), resp.Slot.Followers)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/slots/99").Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/slots/two").Code)
}

func TestServer_Route(t *testing.T) {
	coord := &fakeCoordinator{table: newTestTable(t)}
	h := NewServer(coord).Handler()

	rec := do(t, h, http.MethodGet, "/v1/route/tenant-a")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[RouteResponse](t, rec)
	require.Equal(t, "tenant-a", resp.Key)
	require.Equal(t, types.SlotForKey("tenant-a", 4), resp.Slot.ID)
}

func TestServer_Leader(t *testing.T) {
	h := NewServer(&fakeCoordinator{leader: false}).Handler()

	rec := do(t, h, http.MethodGet, "/v1/leader")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[LeaderResponse](t, rec)
	require.Equal(t, "meta-2", resp.Leader)
	require.Equal(t, "meta-1", resp.NodeID)
	require.False(t, resp.IsLeader)
}

func TestServer_Rebalance(t *testing.T) {
	t.Run("defaults to incremental", func(t *testing.T) {
		coord := &fakeCoordinator{table: newTestTable(t), leader: true, outcome: rebalance.OutcomeCommitted}
		h := NewServer(coord).Handler()

		rec := do(t, h, http.MethodPost, "/v1/rebalance")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []rebalance.Kind{rebalance.KindIncremental}, coord.rebalanced)

		resp := decode[RebalanceResponse](t, rec)
		require.Equal(t, "incremental", resp.Kind)
		require.Equal(t, "committed", resp.Outcome)
		require.Equal(t, coord.table.Epoch, resp.Epoch)
	})

	t.Run("parses kind", func(t *testing.T) {
		coord := &fakeCoordinator{leader: true, outcome: rebalance.OutcomeCommitted}
		h := NewServer(coord).Handler()

		rec := do(t, h, http.MethodPost, "/v1/rebalance?kind=full-reinit")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []rebalance.Kind{rebalance.KindFullReinit}, coord.rebalanced)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		coord := &fakeCoordinator{}
		h := NewServer(coord).Handler()

		rec := do(t, h, http.MethodPost, "/v1/rebalance?kind=shuffle")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, coord.rebalanced)
	})

	t.Run("follower reports conflict", func(t *testing.T) {
		coord := &fakeCoordinator{outcome: rebalance.OutcomeSkippedNotLeader}
		h := NewServer(coord).Handler()

		rec := do(t, h, http.MethodPost, "/v1/rebalance?kind=node_removal")
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "not_leader", decode[RebalanceResponse](t, rec).Outcome)
	})

	t.Run("maps task errors", func(t *testing.T) {
		coord := &fakeCoordinator{leader: true, err: fmt.Errorf("compute: %w", types.ErrInvalidConfiguration)}
		h := NewServer(coord).Handler()

		rec := do(t, h, http.MethodPost, "/v1/rebalance")
		require.Equal(t, http.StatusConflict, rec.Code)

		resp := decode[RebalanceResponse](t, rec)
		require.Equal(t, StatusError, resp.Status)
		require.Contains(t, resp.Error, "invalid placement configuration")
	})

	t.Run("get is not allowed", func(t *testing.T) {
		h := NewServer(&fakeCoordinator{}).Handler()
		require.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/v1/rebalance").Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "slotmap_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewServer(&fakeCoordinator{}, WithGatherer(reg)).Handler()

	rec := do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "slotmap_test_total 1")
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(&fakeCoordinator{})
	require.NoError(t, s.Start("127.0.0.1:0"))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), `"OK"`))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
