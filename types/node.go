package types

import "slices"

// Node identifies a data-serving process eligible to own slots.
//
// Nodes are borrowed from the membership view; the slot table only stores
// their addresses.
type Node struct {
	// Address is the network address of the node (e.g. "10.0.0.7" or "10.0.0.7:9600").
	Address string `json:"address"`
}

// String returns the node address.
func (n Node) String() string {
	return n.Address
}

// Addresses returns the addresses of the given nodes in order.
func Addresses(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Address
	}

	return out
}

// UniqueNodes drops empty and repeated addresses, keeping the first occurrence.
//
// The relative order of the remaining nodes is preserved.
func UniqueNodes(nodes []Node) []Node {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Address == "" {
			continue
		}
		if _, ok := seen[n.Address]; ok {
			continue
		}
		seen[n.Address] = struct{}{}
		out = append(out, n)
	}

	return out
}

// SortNodes sorts nodes by address in place.
func SortNodes(nodes []Node) {
	slices.SortFunc(nodes, func(a, b Node) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		default:
			return 0
		}
	})
}
