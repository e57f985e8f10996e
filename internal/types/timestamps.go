package types

import "time"

// EncodeTimestamp converts t to the on-disk int64 (Unix nanoseconds, UTC).
// The zero time encodes as 0.
func EncodeTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// DecodeTimestamp is the inverse of EncodeTimestamp.
func DecodeTimestamp(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}
