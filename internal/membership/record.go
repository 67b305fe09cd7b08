package membership

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is the heartbeat value a data node publishes.
type Record struct {
	Address      string    `json:"address"`
	RegisteredAt time.Time `json:"registeredAt"`
	HeartbeatAt  time.Time `json:"heartbeatAt"`
}

// Token encodes an address into a KV-safe key token.
//
// Addresses usually contain ':' which NATS KV keys do not allow.
func Token(address string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(address))
}

// Key returns the heartbeat key of address under prefix.
func Key(prefix, address string) string {
	return fmt.Sprintf("%s.%s", prefix, Token(address))
}

// addressFromKey decodes the address carried by a heartbeat key.
func addressFromKey(prefix, key string) (string, bool) {
	token, ok := strings.CutPrefix(key, prefix+".")
	if !ok || token == "" {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}

	return string(raw), true
}

func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode heartbeat record: %w", err)
	}

	return data, nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode heartbeat record: %w", err)
	}

	return rec, nil
}
