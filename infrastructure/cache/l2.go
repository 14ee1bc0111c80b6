package cache

import (
	"encoding/binary"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"

	engine "github.com/R3E-Network/actorcore/system/core"
	infraerrors "github.com/R3E-Network/actorcore/infrastructure/errors"
)

// recordHeaderSize is the 4-byte big-endian length prefix in front of every
// record's JSON payload plus its 8-byte expiry timestamp (unix nanos).
const recordHeaderSize = 4 + 8

// L2 is the on-disk persistence layer: an append-only, mmap-backed log of
// (fingerprint -> snapshot) records. Reads are served directly from the
// mapped memory; writes grow the file and remap, the way erigon's
// mmap-backed stores handle append-heavy workloads.
type L2 struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	mm    mmap.MMap
	size  int64
	index map[string]int64 // fingerprint hex -> record offset
}

// OpenL2 opens (or creates) the log file at path and rebuilds its in-memory
// index by scanning existing records.
func OpenL2(path string) (*L2, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, infraerrors.CacheIO("l2", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, infraerrors.CacheIO("l2", err)
	}

	l := &L2{path: path, file: f, size: info.Size(), index: make(map[string]int64)}
	if l.size > 0 {
		if err := l.mapFile(); err != nil {
			f.Close()
			return nil, err
		}
		l.rebuildIndex()
	}
	return l, nil
}

func (l *L2) mapFile() error {
	mm, err := mmap.Map(l.file, mmap.RDWR, 0)
	if err != nil {
		return infraerrors.CacheIO("l2", err)
	}
	l.mm = mm
	return nil
}

func (l *L2) rebuildIndex() {
	var offset int64
	for offset+recordHeaderSize <= l.size {
		length := int64(binary.BigEndian.Uint32(l.mm[offset : offset+4]))
		recordEnd := offset + recordHeaderSize + length
		if recordEnd > l.size {
			break // truncated trailing record from a crash mid-write
		}
		expiresAtNano := int64(binary.BigEndian.Uint64(l.mm[offset+4 : offset+recordHeaderSize]))
		payload := l.mm[offset+recordHeaderSize : recordEnd]
		if snap, err := decodeSnapshot(payload); err == nil {
			if expiresAtNano == 0 || time.Now().UnixNano() < expiresAtNano {
				l.index[snap.Fingerprint.String()] = offset
			} else {
				delete(l.index, snap.Fingerprint.String())
			}
		}
		offset = recordEnd
	}
}

// Get looks up fp and returns the stored Snapshot, if present and unexpired.
func (l *L2) Get(fp engine.Fingerprint) (*engine.Snapshot, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offset, ok := l.index[fp.String()]
	if !ok {
		return nil, false, nil
	}
	length := int64(binary.BigEndian.Uint32(l.mm[offset : offset+4]))
	expiresAtNano := int64(binary.BigEndian.Uint64(l.mm[offset+4 : offset+recordHeaderSize]))
	if expiresAtNano != 0 && time.Now().UnixNano() >= expiresAtNano {
		delete(l.index, fp.String())
		return nil, false, nil
	}
	payload := make([]byte, length)
	copy(payload, l.mm[offset+recordHeaderSize:offset+recordHeaderSize+length])

	snap, err := decodeSnapshot(payload)
	if err != nil {
		return nil, false, infraerrors.Wrap(infraerrors.ErrCodeCacheCorrupt, "l2 record corrupt", err).WithDetails("fingerprint", fp.String())
	}
	return snap, true, nil
}

// Set appends a new record for fp, superseding any earlier record (the old
// bytes are left in place as dead space until the next Compact).
func (l *L2) Set(fp engine.Fingerprint, snap *engine.Snapshot, ttl time.Duration) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return infraerrors.Wrap(infraerrors.ErrCodeCacheIO, "l2 encode failed", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	offset := l.size
	newSize := offset + recordHeaderSize + int64(len(data))
	if err := l.file.Truncate(newSize); err != nil {
		return infraerrors.CacheIO("l2", err)
	}
	if l.mm != nil {
		if err := l.mm.Unmap(); err != nil {
			return infraerrors.CacheIO("l2", err)
		}
	}
	if err := l.mapFile(); err != nil {
		return err
	}

	var expiresAtNano int64
	if ttl > 0 {
		expiresAtNano = time.Now().Add(ttl).UnixNano()
	}
	binary.BigEndian.PutUint32(l.mm[offset:offset+4], uint32(len(data)))
	binary.BigEndian.PutUint64(l.mm[offset+4:offset+recordHeaderSize], uint64(expiresAtNano))
	copy(l.mm[offset+recordHeaderSize:newSize], data)

	l.size = newSize
	l.index[fp.String()] = offset
	return nil
}

// Remove drops fp from the index. The underlying bytes are reclaimed at the
// next Compact.
func (l *L2) Remove(fp engine.Fingerprint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.index, fp.String())
}

// Len returns the number of indexed (non-removed) entries. An expired entry
// stays indexed, and counted, until a Get, a Compact or a reopen drops it.
func (l *L2) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.index)
}

// Compact rewrites the log file keeping only the live entries, reclaiming
// space from superseded and expired records. Call periodically; it's not
// run automatically since it briefly blocks all L2 access.
func (l *L2) Compact() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tmpPath := l.path + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infraerrors.CacheIO("l2", err)
	}

	newIndex := make(map[string]int64, len(l.index))
	var offset int64
	now := time.Now().UnixNano()
	for key, oldOffset := range l.index {
		length := int64(binary.BigEndian.Uint32(l.mm[oldOffset : oldOffset+4]))
		expiresAtNano := int64(binary.BigEndian.Uint64(l.mm[oldOffset+4 : oldOffset+recordHeaderSize]))
		if expiresAtNano != 0 && now >= expiresAtNano {
			continue
		}
		record := l.mm[oldOffset : oldOffset+recordHeaderSize+length]
		if _, err := tmp.Write(record); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return infraerrors.CacheIO("l2", err)
		}
		newIndex[key] = offset
		offset += recordHeaderSize + length
	}
	tmp.Close()

	if l.mm != nil {
		l.mm.Unmap()
	}
	l.file.Close()

	if err := os.Rename(tmpPath, l.path); err != nil {
		return infraerrors.CacheIO("l2", err)
	}
	f, err := os.OpenFile(l.path, os.O_RDWR, 0o644)
	if err != nil {
		return infraerrors.CacheIO("l2", err)
	}
	l.file = f
	l.size = offset
	l.index = newIndex
	if l.size > 0 {
		return l.mapFile()
	}
	return nil
}

// Close unmaps and closes the underlying file.
func (l *L2) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mm != nil {
		l.mm.Unmap()
	}
	return l.file.Close()
}
