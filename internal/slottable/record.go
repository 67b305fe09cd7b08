package slottable

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/arloliu/slotmap/types"
)

// record is the stored form of a committed table.
type record struct {
	Epoch       int64        `json:"epoch"`
	Leader      string       `json:"leader,omitempty"`
	CommittedAt time.Time    `json:"committedAt"`
	Slots       []types.Slot `json:"slots"`
}

// encodeTable serializes table as snappy-compressed JSON.
func encodeTable(table *types.SlotTable, leader string, now time.Time) ([]byte, error) {
	rec := record{
		Epoch:       table.Epoch,
		Leader:      leader,
		CommittedAt: now.UTC(),
		Slots:       make([]types.Slot, 0, table.Len()),
	}
	for _, id := range table.IDs() {
		rec.Slots = append(rec.Slots, table.Slots[id])
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode slot table: %w", err)
	}

	return snappy.Encode(nil, data), nil
}

// decodeTable parses a stored record.
func decodeTable(data []byte) (*types.SlotTable, *record, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress slot table: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil, fmt.Errorf("failed to decode slot table: %w", err)
	}

	slots := make(map[int]types.Slot, len(rec.Slots))
	for _, s := range rec.Slots {
		if s.Followers == nil {
			s.Followers = []string{}
		}
		slots[s.ID] = s
	}

	return types.NewSlotTable(rec.Epoch, slots), &rec, nil
}
