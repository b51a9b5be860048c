// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"runtime"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Compression identifies the framing detected on an input stream.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBGZF
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionBGZF:
		return "bgzf"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Reader yields text lines from a plain, gzip, BGZF or zstd byte stream.
// Invalid UTF-8 is replaced with U+FFFD rather than reported.
type Reader struct {
	reader      *bufio.Reader
	file        *os.File
	decoder     io.Closer
	compression Compression
	lineNumber  int
	err         error
}

// Open opens the file at path for line reading. A path of "-" reads stdin.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return OpenReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	r, err := OpenReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// OpenReader wraps src, sniffing its first bytes to choose a decompressor.
// No seeking is required, so pipes and stdin work.
func OpenReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)
	r := &Reader{compression: detectCompression(br)}

	var decoded io.Reader
	switch r.compression {
	case CompressionBGZF:
		bg, err := bgzf.NewReader(br, runtime.GOMAXPROCS(0))
		if err != nil {
			return nil, fmt.Errorf("create bgzf reader: %w", err)
		}
		r.decoder = bg
		decoded = bg
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.decoder = gz
		decoded = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		rc := zr.IOReadCloser()
		r.decoder = rc
		decoded = rc
	default:
		decoded = br
	}

	r.reader = bufio.NewReader(transform.NewReader(decoded, runes.ReplaceIllFormed()))
	return r, nil
}

// detectCompression peeks at the stream head without consuming it.
func detectCompression(br *bufio.Reader) Compression {
	head, _ := br.Peek(18)
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(head, gzipMagic):
		if isBGZF(head) {
			return CompressionBGZF
		}
		return CompressionGzip
	}
	return CompressionNone
}

// isBGZF reports whether a gzip member header carries the BGZF "BC" extra subfield.
func isBGZF(head []byte) bool {
	const fextra = 0x04
	if len(head) < 16 || head[3]&fextra == 0 {
		return false
	}
	return head[12] == 'B' && head[13] == 'C'
}

// ReadLine returns the next line without its line terminator.
// ok is false once the stream is exhausted or unreadable; a truncated
// stream is not distinguished from a clean end (see Err).
func (r *Reader) ReadLine() (line string, ok bool) {
	if r.err != nil {
		return "", false
	}

	s, err := r.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			r.err = fmt.Errorf("read line %d: %w", r.lineNumber+1, err)
		} else {
			r.err = io.EOF
		}
		if s == "" {
			return "", false
		}
	}
	r.lineNumber++
	return strings.TrimRight(s, "\r\n"), true
}

// Lines returns a lazy sequence over the remaining lines.
// Stopping the range early leaves the reader positioned after the last line yielded.
func (r *Reader) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			line, ok := r.ReadLine()
			if !ok || !yield(line) {
				return
			}
		}
	}
}

// Err returns the first non-EOF read error, if any.
func (r *Reader) Err() error {
	if r.err == io.EOF {
		return nil
	}
	return r.err
}

// Compression returns the framing detected when the reader was opened.
func (r *Reader) Compression() Compression {
	return r.compression
}

// LineNumber returns the number of lines read so far.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close releases the decompressor and the underlying file, if owned.
func (r *Reader) Close() error {
	if r.decoder != nil {
		r.decoder.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
