package historical

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/mmap"
)

var ErrEof = errors.New("EOF")

// Source reads fixed-size little-endian records of T from a memory mapped file.
type Source[T any] struct {
	path       string
	reader     *mmap.ReaderAt
	recordSize int
	bufferPool *sync.Pool
}

func NewSource[T any](path string) (*Source[T], error) {
	recordSize := binary.Size(new(T))
	if recordSize <= 0 {
		return nil, fmt.Errorf("record type %T has no fixed size", *new(T))
	}
	return &Source[T]{
		path:       path,
		recordSize: recordSize,
		bufferPool: &sync.Pool{
			New: func() any {
				buffer := make([]byte, recordSize)
				return &buffer
			},
		},
	}, nil
}

func (s *Source[T]) Open() error {
	reader, err := mmap.Open(s.path)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", s.path, err)
	}
	if reader.Len()%s.recordSize != 0 {
		_ = reader.Close()
		return fmt.Errorf("data source %q: size %d is not a multiple of record size %d", s.path, reader.Len(), s.recordSize)
	}
	s.reader = reader
	return nil
}

func (s *Source[T]) Close() error {
	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	return err
}

func (s *Source[T]) Read(index int64, record *T) error {
	buffer := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(buffer)

	n, err := s.reader.ReadAt(*buffer, index*int64(s.recordSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read record %d: %w", index, err)
	}
	if n < len(*buffer) {
		return ErrEof
	}

	if _, err := binary.Decode(*buffer, binary.LittleEndian, record); err != nil {
		return fmt.Errorf("unable to decode record %d: %w", index, err)
	}
	return nil
}

func (s *Source[T]) Count() int64 {
	return int64(s.reader.Len() / s.recordSize)
}

// Search returns the first index in [0, Count()) for which less is false.
// Records must be ordered so that less is monotone.
func (s *Source[T]) Search(less func(*T) bool) (int64, error) {
	var record T

	low, high := int64(0), s.Count()
	for low < high {
		mid := low + (high-low)/2
		if err := s.Read(mid, &record); err != nil {
			return 0, err
		}
		if less(&record) {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low, nil
}
