package index

import (
	"fmt"
)

// DefaultBlockSize bounds the size of a written posting block.
const DefaultBlockSize = 1 << 20

// BlockSink receives finished posting blocks.
type BlockSink interface {
	Put(folder, name string, data []byte) error
}

// BlockWriter packs posting lists into fixed-width records inside numbered
// blocks. A list is never split: when it does not fit in the current block a
// new block is started, and a list larger than the block size gets a block
// of its own.
type BlockWriter struct {
	sink      BlockSink
	folder    string
	prefix    string
	blockSize int

	cur      []byte
	blockNum int
	written  int
}

// NewBlockWriter writes blocks named <prefix>_<nnn>.bin into folder.
func NewBlockWriter(sink BlockSink, folder, prefix string, blockSize int) *BlockWriter {
	if blockSize < RecordSize {
		blockSize = DefaultBlockSize
	}
	return &BlockWriter{sink: sink, folder: folder, prefix: prefix, blockSize: blockSize}
}

// Write appends postings and returns where they start.
func (w *BlockWriter) Write(postings PostingList) (Location, error) {
	if len(postings) == 0 {
		return Location{}, fmt.Errorf("cannot write empty posting list")
	}
	need := len(postings) * RecordSize
	if len(w.cur) > 0 && len(w.cur)+need > w.blockSize {
		if err := w.Flush(); err != nil {
			return Location{}, err
		}
	}
	loc := Location{Block: w.blockName(), Offset: int64(len(w.cur))}
	for _, p := range postings {
		w.cur = AppendRecord(w.cur, p)
	}
	return loc, nil
}

// Flush writes the current block, if any, and starts the next one.
func (w *BlockWriter) Flush() error {
	if len(w.cur) == 0 {
		return nil
	}
	if err := w.sink.Put(w.folder, w.blockName(), w.cur); err != nil {
		return fmt.Errorf("writing block %s: %w", w.blockName(), err)
	}
	w.cur = nil
	w.blockNum++
	w.written++
	return nil
}

// Blocks returns how many blocks have been flushed.
func (w *BlockWriter) Blocks() int { return w.written }

func (w *BlockWriter) blockName() string {
	return fmt.Sprintf("%s_%03d.bin", w.prefix, w.blockNum)
}
