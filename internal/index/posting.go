package index

import (
	"encoding/binary"
)

// RecordSize is the width of one encoded posting: a 4-byte big-endian
// document id followed by a 2-byte big-endian term frequency.
const RecordSize = 6

// DocID identifies a document across every field and metadata table.
type DocID uint32

// Posting is one (document, term frequency) pair of a posting list. For the
// anchor field Frequency holds the anchor-text occurrence count.
type Posting struct {
	DocID     DocID
	Frequency uint16
}

// PostingList is the decoded posting list of one term in one field.
type PostingList []Posting

// AppendRecord appends the fixed-width encoding of p to dst.
func AppendRecord(dst []byte, p Posting) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(p.DocID))
	return binary.BigEndian.AppendUint16(dst, p.Frequency)
}

// DecodeRecords decodes up to count records from buf starting at offset.
// Records that would read past the end of buf are discarded.
func DecodeRecords(buf []byte, offset int64, count int) PostingList {
	if count <= 0 || offset < 0 || offset >= int64(len(buf)) {
		return nil
	}
	out := make(PostingList, 0, min(count, (len(buf)-int(offset))/RecordSize))
	for i := 0; i < count; i++ {
		start := offset + int64(i)*RecordSize
		end := start + RecordSize
		if end > int64(len(buf)) {
			continue
		}
		out = append(out, Posting{
			DocID:     DocID(binary.BigEndian.Uint32(buf[start : start+4])),
			Frequency: binary.BigEndian.Uint16(buf[start+4 : end]),
		})
	}
	return out
}
