package dtlproc

import (
	"encoding/binary"
	"math"
	"time"
)

// DecodePacket decodes one fixed 9-byte packet into a record.
//
// Layout: bytes 0-3 little-endian unsigned POSIX timestamp, byte 4
// sub-second unit in tens of milliseconds, bytes 5-8 the value as
// little-endian int32 or float32 depending on enc. The timestamp is
// rendered in loc into separate zero-padded date and time fields.
//
// The second return value is false for anything that cannot become a
// whole record: wrong length, or a float value that is NaN or infinite.
// Callers skip such packets and continue.
func DecodePacket(packet []byte, enc ValueEncoding, loc *time.Location) (DecodedRecord, bool) {
	if len(packet) != RecordSize {
		return DecodedRecord{}, false
	}

	ts := binary.LittleEndian.Uint32(packet[0:4])
	dt := time.Unix(int64(ts), 0).In(loc)

	value := RecordValue{Encoding: enc}
	switch enc {
	case EncodingInt:
		value.Int = int32(binary.LittleEndian.Uint32(packet[5:9]))
	default:
		f := math.Float32frombits(binary.LittleEndian.Uint32(packet[5:9]))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return DecodedRecord{}, false
		}
		value.Float = f
	}

	return DecodedRecord{
		Date:         dt.Format("2006-01-02"),
		Time:         dt.Format("15:04:05"),
		Milliseconds: int(packet[4]) * 10,
		Value:        value,
	}, true
}
