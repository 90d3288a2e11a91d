package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"

	"github.com/turtacn/datamigrate/pkg/errors"
)

// Reader reads CSV files with automatic delimiter detection and optional
// chunked iteration for large inputs.
type Reader struct {
	Path      string
	Delimiter rune
	ChunkSize int
}

// NewReader constructs a Reader for path.  Delimiter 0 means auto-detect on
// first read; ChunkSize 0 means DefaultChunkSize.
func NewReader(path string) *Reader {
	return &Reader{Path: path, ChunkSize: DefaultChunkSize}
}

func (r *Reader) open() (*os.File, rune, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatasetNotFound, "dataset file not found").WithDetail(r.Path)
		}
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatasetUnreadable, "failed to open dataset").WithDetail(r.Path)
	}

	delim := r.Delimiter
	if delim == 0 {
		sample := make([]byte, delimiterSampleSize)
		n, _ := f.Read(sample)
		delim = DetectDelimiter(sample[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatasetUnreadable, "failed to rewind dataset").WithDetail(r.Path)
		}
	}
	return f, delim, nil
}

// ReadAll loads the entire file into a Table.  The first record is the header.
// Blank lines become rows of empty cells rather than disappearing, so missing
// values in single-column files stay visible to downstream cleaning.
func (r *Reader) ReadAll() (*Table, rune, error) {
	f, delim, err := r.open()
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	cr := csv.NewReader(newBlankLineReader(f))
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := cr.ReadAll()
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatasetParseFailed, "failed to parse CSV").WithDetail(r.Path)
	}
	if len(records) == 0 {
		return nil, 0, errors.New(errors.ErrCodeDatasetEmpty, "file contains no records").WithDetail(r.Path)
	}
	header := records[0]
	rows := records[1:]
	for i, row := range rows {
		rows[i] = padRow(row, len(header))
	}
	return NewTable(header, rows), delim, nil
}

// ReadChunks streams the file in chunks of ChunkSize rows, invoking fn for
// each chunk.  fn receives the shared header and the chunk's starting row
// offset.  Iteration stops at the first error returned by fn.
func (r *Reader) ReadChunks(fn func(header []string, rows [][]string, offset int) error) error {
	f, delim, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	cr := csv.NewReader(newBlankLineReader(f))
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return errors.New(errors.ErrCodeDatasetEmpty, "file contains no records").WithDetail(r.Path)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatasetParseFailed, "failed to read header").WithDetail(r.Path)
	}

	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	offset := 0
	chunk := make([][]string, 0, chunkSize)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatasetParseFailed, "failed to read row").WithDetail(r.Path)
		}
		chunk = append(chunk, padRow(row, len(header)))
		if len(chunk) == chunkSize {
			if err := fn(header, chunk, offset); err != nil {
				return err
			}
			offset += len(chunk)
			chunk = make([][]string, 0, chunkSize)
		}
	}
	if len(chunk) > 0 {
		if err := fn(header, chunk, offset); err != nil {
			return err
		}
	}
	return nil
}

// blankLineReader rewrites empty input lines as a single quoted empty field
// so encoding/csv parses them as records instead of silently skipping them.
// Lines inside an open quoted field are passed through untouched.
type blankLineReader struct {
	src     *bufio.Reader
	buf     []byte
	inQuote bool
}

func newBlankLineReader(r io.Reader) *blankLineReader {
	return &blankLineReader{src: bufio.NewReader(r)}
}

func (b *blankLineReader) Read(p []byte) (int, error) {
	for len(b.buf) == 0 {
		line, err := b.src.ReadBytes('\n')
		if len(line) == 0 {
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		if !b.inQuote && len(bytes.TrimRight(line, "\r\n")) == 0 {
			b.buf = append([]byte(`""`), line...)
		} else {
			b.buf = line
		}
		if bytes.Count(line, []byte(`"`))%2 == 1 {
			b.inQuote = !b.inQuote
		}
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

// padRow extends a short record with empty cells to the header width.
func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

// FileSizeBytes returns the size of the file at path.
func FileSizeBytes(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatasetUnreadable, "failed to stat dataset").WithDetail(path)
	}
	return info.Size(), nil
}

// WriteTable writes a Table to path using the given delimiter.
func WriteTable(path string, table *Table, delimiter rune) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatasetWriteFailed, "failed to create output file").WithDetail(path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if delimiter != 0 {
		w.Comma = delimiter
	}
	if err := w.Write(table.Header); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatasetWriteFailed, "failed to write header").WithDetail(path)
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatasetWriteFailed, "failed to write row").WithDetail(path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatasetWriteFailed, "failed to flush output").WithDetail(path)
	}
	return nil
}
