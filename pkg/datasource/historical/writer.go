package historical

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

// Writer appends records to a tape file. Callers write in timestamp order.
type Writer struct {
	file   *os.File
	buffer *bufio.Writer
	last   int64
	count  int64
}

func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create %q: %w", path, err)
	}
	return &Writer{file: file, buffer: bufio.NewWriter(file)}, nil
}

func (w *Writer) Write(obs common.BidAsk) error {
	record := FromBidAsk(obs)
	if w.count > 0 && record.TimeStamp < w.last {
		return fmt.Errorf("record %d at %d is older than the previous one at %d", w.count, record.TimeStamp, w.last)
	}
	if err := binary.Write(w.buffer, binary.LittleEndian, record); err != nil {
		return fmt.Errorf("unable to write record %d: %w", w.count, err)
	}
	w.last = record.TimeStamp
	w.count++
	return nil
}

func (w *Writer) Count() int64 {
	return w.count
}

func (w *Writer) Close() error {
	if err := w.buffer.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
