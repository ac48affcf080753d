package archive

// FNV-1a 32-bit hashing and key derivation for the LSTGRETROARC stream
// cipher. None of this is a security boundary — the cipher deters casual
// inspection of game assets, nothing more. See ArchiveEncryption in the
// original engine.

const (
	fnvOffsetBasis32 uint32 = 2166136261
	fnvPrime32       uint32 = 16777619
)

// FNV1a32 computes the FNV-1a 32-bit hash of data.
func FNV1a32(data []byte) uint32 {
	hash := fnvOffsetBasis32
	for _, b := range data {
		hash ^= uint32(b)
		hash *= fnvPrime32
	}
	return hash
}

// MasterKey is the master encryption key embedded in the original binary.
// Implementations are free to parameterize this; the archive format itself
// does not depend on its value beyond it being a stable byte sequence fed
// through HeaderKey/HeaderKeyLegacy.
var MasterKey = []byte("Sonic The Hedgehog")

// legacyHeaderKeyBase and legacyHeaderKeyStep are the v1 header keystream
// seed bytes for MasterKey. The original engine derives these from the
// MSVC runtime's std::hash<string_view> (_Hash_array_representation), which
// is a platform-specific 64-bit FNV-1a variant unavailable outside MSVC.
// Since MasterKey is fixed, the pair is deterministic: it was computed once
// offline by replicating MSVC's FNV-1a-64 (offset basis
// 14695981039346656037, prime 1099511628211) over MasterKey's 18 bytes,
// truncating to the low 32 bits as the original code does via
// static_cast<uint32_t>, and is hard-coded here so v1 archives stay
// readable regardless of host platform. See DESIGN.md for the derivation.
const (
	legacyHeaderKeyBase byte = 0xE4
	legacyHeaderKeyStep byte = 0x25
)

// HeaderKey derives the v2 header keystream seed from key.
func HeaderKey(key []byte) (base, step byte) {
	h := FNV1a32(key)
	base = byte(h) ^ 0x55
	step = byte(h>>8) ^ 0xC8
	return base, step
}

// HeaderKeyLegacy returns the documented v1 header keystream seed for
// MasterKey. Unlike HeaderKey it does not hash key at call time — see the
// legacyHeaderKeyBase/Step comment for why.
func HeaderKeyLegacy(key []byte) (base, step byte) {
	return legacyHeaderKeyBase, legacyHeaderKeyStep
}

// FileKey derives a per-file keystream seed from path and the archive's
// header-level key.
func FileKey(path string, headerBase, headerStep byte) (base, step byte) {
	h := FNV1a32([]byte(path))
	base = byte(h>>24) ^ headerBase ^ 0x4A
	step = byte(h>>16) ^ headerStep ^ 0xEB
	return base, step
}

// Shift applies the v2 stream cipher to data in place. base is advanced by
// reference so callers can continue the same keystream across multiple
// calls (e.g. header then directory).
func Shift(data []byte, base *byte, step byte) {
	b := *base
	for i := range data {
		data[i] ^= b
		b = byte(uint32(b)*0xBD + uint32(step))
	}
	*base = b
}

// ShiftLegacy applies the v1 stream cipher to data in place.
func ShiftLegacy(data []byte, base *byte, step byte) {
	b := *base
	for i := range data {
		data[i] ^= b
		b = byte(uint32(b) + uint32(step))
	}
	*base = b
}
