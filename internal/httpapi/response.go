package httpapi

import (
	"time"

	"github.com/arloliu/slotmap/internal/epoch"
	"github.com/arloliu/slotmap/types"
)

// Status is the outcome reported in every response envelope.
type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates a request completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates a request failed.
	StatusError Status = "error"
)

// Response is the envelope for responses without a payload.
type Response struct {
	Status Status `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}

// TableResponse is the JSON view of a slot table, slots ordered by ID.
// CommittedAt is the wall-clock part of the epoch.
type TableResponse struct {
	Status      Status       `json:"status"`
	Epoch       int64        `json:"epoch"`
	CommittedAt string       `json:"committedAt"`
	Slots       []types.Slot `json:"slots"`
}

func newTableResponse(table *types.SlotTable) TableResponse {
	slots := make([]types.Slot, 0, table.Len())
	for _, id := range table.IDs() {
		slot, _ := table.Get(id)
		slots = append(slots, slot)
	}

	return TableResponse{
		Status:      StatusSuccess,
		Epoch:       table.Epoch,
		CommittedAt: epoch.Time(table.Epoch).UTC().Format(time.RFC3339Nano),
		Slots:       slots,
	}
}

// SlotResponse carries a single slot.
type SlotResponse struct {
	Status Status     `json:"status"`
	Slot   types.Slot `json:"slot"`
}

// RouteResponse carries the slot a key maps to.
type RouteResponse struct {
	Status Status     `json:"status"`
	Key    string     `json:"key"`
	Slot   types.Slot `json:"slot"`
}

// LeaderResponse describes the current meta leader.
type LeaderResponse struct {
	Status   Status `json:"status"`
	Leader   string `json:"leader"`
	NodeID   string `json:"nodeId"`
	IsLeader bool   `json:"isLeader"`
}

// RebalanceResponse reports a manual rebalance.
type RebalanceResponse struct {
	Status  Status `json:"status"`
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`
	Epoch   int64  `json:"epoch,omitempty"`
	Error   string `json:"error,omitempty"`
}
