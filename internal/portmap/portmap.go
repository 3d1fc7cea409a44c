// Package portmap loads the static identifier-to-port table that stands in
// for DNS/SRV-based discovery when a ring is run entirely on localhost
// (spec.md §6): a deployment-provided table maps node IDs to TCP ports.
package portmap

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"chordring/internal/ring"
)

// Table maps a node identifier to the localhost TCP port it listens on.
type Table map[ring.ID]int

// Load reads a flat YAML mapping of decimal identifier strings to port
// numbers, e.g.:
//
//	"3":  5003
//	"9":  5009
//	"14": 5014
func Load(path string, space ring.Space) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("portmap: %w", err)
	}

	var raw map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("portmap: %w", err)
	}

	out := make(Table, len(raw))
	for idStr, port := range raw {
		n, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("portmap: invalid identifier %q: %w", idStr, err)
		}
		id := space.Reduce(n)
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("portmap: invalid port %d for identifier %q", port, idStr)
		}
		out[id] = port
	}
	return out, nil
}

// Lookup resolves id's advertised "host:port" address on localhost, or
// false if the table has no entry for it.
func (t Table) Lookup(id ring.ID) (string, bool) {
	port, ok := t[id]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("127.0.0.1:%d", port), true
}
