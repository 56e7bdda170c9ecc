package core

// streaming.go holds the reader chain a save document passes through before
// the XML decoder sees it:
//
//   - SizeLimitedReader fails with ErrFileTooLarge past the size cap
//   - BOMSkippingReader drops a leading UTF-8 byte order mark
//   - StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?', unless
//     the XML declaration names another encoding for the decoder to convert
//   - StreamingCountingReader counts bytes for the load summary
//
// Use WrapForStreaming to get the whole chain. Nothing is buffered beyond a
// few bytes, so memory stays flat regardless of save size.

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/JonMunkholm/simroster/internal/savefile"
)

// ErrFileTooLarge is returned once a save document exceeds the size cap.
var ErrFileTooLarge = errors.New("file too large")

// StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly.
// The XML decoder rejects invalid UTF-8 outright, and hand-edited saves
// occasionally carry stray Latin-1 bytes in names.
type StreamingUTF8Sanitizer struct {
	reader io.Reader

	// pending holds the start of a multi-byte sequence split across reads.
	pending []byte
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isAllASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to hand
// out. Unless atEOF, a trailing partial sequence moves to pending.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailingBytes(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if !atEOF && read+size >= len(data) && isIncompleteRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			// '?' keeps the output no longer than the input.
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTrailingBytes returns how many bytes at the end of data begin a
// multi-byte sequence that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
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

// runeLen returns the sequence length announced by a leading byte, or 0 for
// a continuation byte.
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
	}
	return 4
}

func isIncompleteRune(data []byte) bool {
	return len(data) > 0 && runeLen(data[0]) > len(data)
}

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a UTF-8 byte order mark at the start of the stream.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	head    []byte
	headErr error
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		var buf [3]byte
		n, err := io.ReadFull(r.reader, buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == len(utf8BOM) && buf == utf8BOM {
			n = 0
		}
		r.head = append(r.head, buf[:n]...)
		r.headErr = err
	}

	if len(r.head) > 0 {
		copied := copy(p, r.head)
		r.head = r.head[copied:]
		if len(r.head) == 0 && r.headErr != nil {
			return copied, r.headErr
		}
		return copied, nil
	}
	if r.headErr != nil {
		return 0, r.headErr
	}
	return r.reader.Read(p)
}

// SizeLimitedReader fails with ErrFileTooLarge once more than max bytes have
// been read.
type SizeLimitedReader struct {
	reader    io.Reader
	remaining int64
}

// NewSizeLimitedReader wraps r. A max of zero or less disables the cap.
func NewSizeLimitedReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &SizeLimitedReader{reader: r, remaining: max}
}

// Read implements io.Reader.
func (r *SizeLimitedReader) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	// Read at most one byte past the cap, enough to tell an exact-size file
	// from an oversized one.
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.reader.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}

// prologPeek is how much of a document is inspected for its XML declaration.
const prologPeek = 256

// sanitizeDeclared wraps r in a StreamingUTF8Sanitizer unless the document
// declares a non-UTF-8 encoding. Those bytes are valid in their own charset
// and are converted by the XML decoder.
func sanitizeDeclared(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, prologPeek)
	head, _ := br.Peek(prologPeek)
	if enc := savefile.DeclaredEncoding(head); enc != "" && !savefile.IsUTF8(enc) {
		return br
	}
	return NewStreamingUTF8Sanitizer(br)
}

// StreamingCountingReader counts bytes read.
type StreamingCountingReader struct {
	reader    io.Reader
	bytesRead int64
}

// NewStreamingCountingReader wraps r.
func NewStreamingCountingReader(r io.Reader) *StreamingCountingReader {
	return &StreamingCountingReader{reader: r}
}

// Read implements io.Reader.
func (r *StreamingCountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *StreamingCountingReader) BytesRead() int64 {
	return r.bytesRead
}

// WrapForStreaming builds the reader chain for a save document capped at
// maxSize bytes (0 disables the cap).
//
// Order matters: the cap sees raw bytes, and the BOM must go before the
// sanitizer would turn it into '?'.
func WrapForStreaming(r io.Reader, maxSize int64) *StreamingCountingReader {
	limited := NewSizeLimitedReader(r, maxSize)
	return NewStreamingCountingReader(sanitizeDeclared(NewBOMSkippingReader(limited)))
}
