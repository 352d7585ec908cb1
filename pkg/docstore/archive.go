package docstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/patchboard/pkg/document"
	"github.com/dd0wney/patchboard/pkg/logging"
	"github.com/dd0wney/patchboard/pkg/metrics"
)

// Frame layout: [Revision:8][UnixNano:8][Checksum:4][DataLen:4][Data:N].
// The checksum is CRC-32 (IEEE) over the compressed data.
const frameHeaderSize = 24

// maxFrameData bounds one revision's compressed size; a declared length
// above it marks the frame corrupt.
const maxFrameData = 1 << 30

// RevisionInfo describes one archived revision.
type RevisionInfo struct {
	Revision        uint64
	Time            time.Time
	RawBytes        int
	CompressedBytes int
}

// ArchiveStats summarizes archive contents.
type ArchiveStats struct {
	Revisions        uint64
	BytesRaw         uint64
	BytesCompressed  uint64
	CompressionRatio float64 // e.g., 0.75 = 75% smaller on disk
}

// frameIndex locates one frame inside the archive file.
type frameIndex struct {
	revision uint64
	unixNano int64
	offset   int64
	dataLen  int
	rawLen   int
}

// Archive is an append-only log of snappy-compressed document snapshots.
// Opening scans the file and truncates a corrupt tail, so the archive
// always ends on a whole, verified frame.
type Archive struct {
	path string
	file *os.File
	mu   sync.Mutex

	frames  []frameIndex
	nextRev uint64

	bytesRaw        uint64
	bytesCompressed uint64

	logger  logging.Logger
	metrics *metrics.Registry
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithArchiveLogger overrides the default logger.
func WithArchiveLogger(l logging.Logger) ArchiveOption {
	return func(a *Archive) { a.logger = l }
}

// WithArchiveMetrics overrides the default metrics registry.
func WithArchiveMetrics(r *metrics.Registry) ArchiveOption {
	return func(a *Archive) { a.metrics = r }
}

// OpenArchive opens or creates the revision archive at path.
func OpenArchive(path string, opts ...ArchiveOption) (*Archive, error) {
	a := &Archive{
		path:    path,
		logger:  logging.Default(),
		metrics: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logging.Component("archive"), logging.Path(path))

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a.file = file

	if err := a.scan(); err != nil {
		file.Close()
		return nil, err
	}
	return a, nil
}

// scan rebuilds the frame index from disk. The file is truncated at the
// first frame that fails to parse or verify.
func (a *Archive) scan() error {
	info, err := a.file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	size := info.Size()

	var offset int64
	header := make([]byte, frameHeaderSize)
	for offset+frameHeaderSize <= size {
		if _, err := a.file.ReadAt(header, offset); err != nil {
			break
		}
		revision := binary.BigEndian.Uint64(header[0:8])
		unixNano := int64(binary.BigEndian.Uint64(header[8:16]))
		checksum := binary.BigEndian.Uint32(header[16:20])
		dataLen := binary.BigEndian.Uint32(header[20:24])

		if dataLen > maxFrameData || offset+frameHeaderSize+int64(dataLen) > size {
			break
		}

		data := make([]byte, dataLen)
		if _, err := a.file.ReadAt(data, offset+frameHeaderSize); err != nil {
			break
		}
		if crc32.ChecksumIEEE(data) != checksum {
			break
		}
		rawLen, err := snappy.DecodedLen(data)
		if err != nil {
			break
		}

		a.frames = append(a.frames, frameIndex{
			revision: revision,
			unixNano: unixNano,
			offset:   offset,
			dataLen:  int(dataLen),
			rawLen:   rawLen,
		})
		a.bytesRaw += uint64(rawLen)
		a.bytesCompressed += uint64(dataLen)
		a.nextRev = revision
		offset += frameHeaderSize + int64(dataLen)
	}

	if offset < size {
		a.logger.Warn("truncating corrupt archive tail",
			logging.Int64("good_bytes", offset),
			logging.Int64("file_bytes", size))
		if err := a.file.Truncate(offset); err != nil {
			return fmt.Errorf("truncate corrupt tail: %w", err)
		}
	}

	if _, err := a.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek archive end: %w", err)
	}

	if len(a.frames) > 0 {
		a.logger.Info("archive opened",
			logging.Count(len(a.frames)),
			logging.Revision(a.nextRev))
	}
	return nil
}

// Append archives one document snapshot and returns its revision number.
func (a *Archive) Append(doc *document.Document) (uint64, error) {
	var buf bytes.Buffer
	if err := document.Encode(&buf, doc); err != nil {
		return 0, fmt.Errorf("encode revision: %w", err)
	}
	raw := buf.Bytes()
	data := snappy.Encode(nil, raw)

	a.mu.Lock()
	defer a.mu.Unlock()

	revision := a.nextRev + 1
	now := time.Now()

	frame := make([]byte, frameHeaderSize+len(data))
	binary.BigEndian.PutUint64(frame[0:8], revision)
	binary.BigEndian.PutUint64(frame[8:16], uint64(now.UnixNano()))
	binary.BigEndian.PutUint32(frame[16:20], crc32.ChecksumIEEE(data))
	binary.BigEndian.PutUint32(frame[20:24], uint32(len(data)))
	copy(frame[frameHeaderSize:], data)

	offset, err := a.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek archive end: %w", err)
	}
	if _, err := a.file.Write(frame); err != nil {
		return 0, fmt.Errorf("write revision: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync archive: %w", err)
	}

	a.nextRev = revision
	a.frames = append(a.frames, frameIndex{
		revision: revision,
		unixNano: now.UnixNano(),
		offset:   offset,
		dataLen:  len(data),
		rawLen:   len(raw),
	})
	a.bytesRaw += uint64(len(raw))
	a.bytesCompressed += uint64(len(data))
	a.metrics.RecordArchiveRevision(len(raw), len(data))

	a.logger.Debug("revision archived",
		logging.Revision(revision),
		logging.Int("raw_bytes", len(raw)),
		logging.Int("compressed_bytes", len(data)))
	return revision, nil
}

// Revisions lists archived revisions in append order.
func (a *Archive) Revisions() []RevisionInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]RevisionInfo, len(a.frames))
	for i, f := range a.frames {
		out[i] = RevisionInfo{
			Revision:        f.revision,
			Time:            time.Unix(0, f.unixNano),
			RawBytes:        f.rawLen,
			CompressedBytes: f.dataLen,
		}
	}
	return out
}

// Read decodes the archived document with the given revision number.
func (a *Archive) Read(revision uint64) (*document.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var frame *frameIndex
	for i := range a.frames {
		if a.frames[i].revision == revision {
			frame = &a.frames[i]
			break
		}
	}
	if frame == nil {
		return nil, fmt.Errorf("archive has no revision %d", revision)
	}

	data := make([]byte, frame.dataLen)
	if _, err := a.file.ReadAt(data, frame.offset+frameHeaderSize); err != nil {
		return nil, fmt.Errorf("read revision %d: %w", revision, err)
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompress revision %d: %w", revision, err)
	}

	doc, err := document.NewDecoder(bytes.NewReader(raw)).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode revision %d: %w", revision, err)
	}
	return doc, nil
}

// Stats reports revision count and compression counters.
func (a *Archive) Stats() ArchiveStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	ratio := 0.0
	if a.bytesRaw > 0 {
		ratio = 1.0 - float64(a.bytesCompressed)/float64(a.bytesRaw)
	}
	return ArchiveStats{
		Revisions:        uint64(len(a.frames)),
		BytesRaw:         a.bytesRaw,
		BytesCompressed:  a.bytesCompressed,
		CompressionRatio: ratio,
	}
}

// Close syncs and closes the archive file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.file.Sync(); err != nil {
		a.file.Close()
		return err
	}
	return a.file.Close()
}
