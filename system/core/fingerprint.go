package engine

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a 128-bit content hash identifying exactly the inputs that
// fed one resolve: the actor's identity and version, the registry and rule
// versions in effect, which subsystems actually participated, which buffs
// were active, and the actor's data payload. Two resolves with equal
// Fingerprints produce Snapshots identical in everything but CreatedAt; this is
// what makes the cache layers safe to share across actors and processes.
type Fingerprint [16]byte

// String renders the fingerprint as lowercase hex, used as the cache key
// wire format.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%x", f[:])
}

// fingerprintInputs collects everything that must feed a Fingerprint.
// Passed as a struct instead of separate args so adding an input later
// (e.g. a new registry) only touches one call site.
type fingerprintInputs struct {
	actorID          string
	actorKind        string
	actorVersion     uint64
	registryVersion  uint64
	combinerVersion  uint64
	capLayerVersion  uint64
	subsystemIDs     []string // subsystems selected for the resolve
	buffs            []string
	data             []DataEntry
	epoch            uint64 // bumped by Engine.Invalidate / ClearAll
}

// computeFingerprint hashes fingerprintInputs into a 128-bit Fingerprint
// using two independent xxhash passes over a deterministic byte encoding,
// folded into the low and high halves. Determinism requires sorting every
// set-like input (subsystemIDs, buffs) before hashing, since Go map/slice
// iteration order is not itself part of the identity; DataEntry is already
// insertion-ordered by the Actor and is hashed in that order on purpose,
// since two actors that set the same keys in a different order are not
// guaranteed to resolve identically under a CONDITIONAL bucket.
func computeFingerprint(in fingerprintInputs) Fingerprint {
	subsystems := append([]string{}, in.subsystemIDs...)
	sort.Strings(subsystems)
	buffs := append([]string{}, in.buffs...)
	sort.Strings(buffs)

	buf := make([]byte, 0, 256)
	buf = appendString(buf, in.actorID)
	buf = appendString(buf, in.actorKind)
	buf = appendUint64(buf, in.actorVersion)
	buf = appendUint64(buf, in.registryVersion)
	buf = appendUint64(buf, in.combinerVersion)
	buf = appendUint64(buf, in.capLayerVersion)
	buf = appendUint64(buf, in.epoch)
	buf = appendUint64(buf, uint64(len(subsystems)))
	for _, s := range subsystems {
		buf = appendString(buf, s)
	}
	buf = appendUint64(buf, uint64(len(buffs)))
	for _, b := range buffs {
		buf = appendString(buf, b)
	}
	buf = appendUint64(buf, uint64(len(in.data)))
	for _, e := range in.data {
		buf = appendString(buf, e.Key)
		buf = appendString(buf, fmt.Sprintf("%v", e.Value))
	}

	lo := xxhash.Sum64(buf)
	hi := xxhash.Sum64(append(buf, 0xff))

	var fp Fingerprint
	binary.BigEndian.PutUint64(fp[0:8], lo)
	binary.BigEndian.PutUint64(fp[8:16], hi)
	return fp
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint64(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
