package sheetimport

// text.go reads delimited and snapshot text files. Input is streamed through
// textReader, which drops a UTF-8 byte order mark (written by Excel on
// Windows) and replaces invalid UTF-8 bytes with '?' without loading the
// whole file.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/datatable/internal/datatable"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func textReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{r: br}
}

// utf8Sanitizer holds back a multi-byte sequence split across reads so it is
// not mistaken for invalid input.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n := copy(p, s.pending)
		s.pending = append(s.pending[:0], s.pending[n:]...)
		if len(s.pending) > 0 {
			return sanitize(p[:n]), nil
		}

		m, err := s.r.Read(p[n:])
		n += m
		if err == nil && m > 0 {
			if k := incompleteTail(p[:n]); k > 0 && (k < n || n < len(p)) {
				s.pending = append(s.pending, p[n-k:n]...)
				n -= k
				if n == 0 {
					continue
				}
			}
		}
		if n == 0 {
			return 0, err
		}
		return sanitize(p[:n]), err
	}
}

// sanitize rewrites data in place and returns the new length.
func sanitize(data []byte) int {
	if utf8.Valid(data) {
		return len(data)
	}
	w := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			i++
			continue
		}
		copy(data[w:], data[i:i+size])
		w += size
		i += size
	}
	return w
}

// incompleteTail returns how many trailing bytes start a multi-byte sequence
// that has not been completed yet.
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// ReadCSV reads a comma-separated file as one table. The first non-empty
// record is the header.
func ReadCSV(r io.Reader, name string) (datatable.RawTable, error) {
	cr := csv.NewReader(textReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return datatable.RawTable{}, fmt.Errorf("read csv %s: %w", name, err)
	}
	for _, rec := range records {
		for i, cell := range rec {
			rec[i] = cleanCell(cell)
		}
	}

	t, ok := sheetTable(name, records)
	if !ok {
		return datatable.RawTable{Name: name, Fields: []string{}, Rows: [][]any{}}, nil
	}
	return t, nil
}

// cleanCell strips the ="..." formula wrapper some exporters put around
// values.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		return s[2 : len(s)-1]
	}
	return s
}
