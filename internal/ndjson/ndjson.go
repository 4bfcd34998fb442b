// Package ndjson splits a byte stream into newline-delimited JSON records.
//
// The decoder is deliberately unaware of JSON semantics beyond record
// boundaries: it hands each complete line to the caller and reports a
// truncated trailing record as an error rather than silently dropping it.
package ndjson

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrTruncated is returned when the stream ends with a non-empty,
// non-whitespace partial record (no trailing separator).
var ErrTruncated = errors.New("ndjson: truncated record at end of stream")

// Decoder yields one record per call to Next, in arrival order.
//
// It buffers only as much input as needed to find the next record boundary,
// so the sequence of records is independent of how the underlying reader
// chunks its bytes.
type Decoder struct {
	r   *bufio.Reader
	err error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the bytes of the next record, without the trailing newline.
// Blank and whitespace-only lines are skipped. It returns io.EOF once the
// stream has ended cleanly, and ErrTruncated if non-whitespace input remains
// after the final separator.
//
// Any error is terminal: subsequent calls return the same error.
func (d *Decoder) Next() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}

	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			d.err = err
			return nil, err
		}

		rec := bytes.TrimSpace(line)

		if errors.Is(err, io.EOF) {
			if len(rec) == 0 {
				d.err = io.EOF
				return nil, io.EOF
			}
			// Bytes after the last separator form an incomplete record.
			d.err = ErrTruncated
			return nil, ErrTruncated
		}

		if len(rec) == 0 {
			continue
		}
		return rec, nil
	}
}
