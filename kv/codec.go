package kv

import (
	"encoding/binary"

	"github.com/dashpay/drive-feepool/errs"
)

// EncodeU64 / DecodeU64 implement the big-endian u64 item encoding used
// throughout Pools (credits, multipliers, heights).
func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func DecodeU64(path string, b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, &errs.Corrupted{Kind: errs.CorruptedLength, Path: path, Detail: "want 8 bytes"}
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeI64 / DecodeI64 implement the big-endian i64 item encoding used
// for start_block_time.
func EncodeI64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func DecodeI64(path string, b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, &errs.Corrupted{Kind: errs.CorruptedLength, Path: path, Detail: "want 8 bytes"}
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}
