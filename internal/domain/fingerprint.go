package domain

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a stable digest of the section set. Two topologies
// holding the same sections produce the same fingerprint regardless of
// insertion order.
func (t *Topology) Fingerprint() string {
	keys := make([]string, 0, t.Len())
	for _, s := range t.byUp {
		keys = append(keys, fmt.Sprintf("%d>%d:%d", s.up, s.down, s.distance))
	}
	sort.Strings(keys)

	h, _ := blake2b.New(16, nil)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
