package session

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/glf-dev/glf/compress"
	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
	"github.com/glf-dev/glf/packet"
	"github.com/glf-dev/glf/section"
)

// Severity classifies a log message packet, in decreasing order of
// importance. Packets that report a severity drive the session header's
// message counters.
type Severity int

const (
	SeverityCritical    Severity = 1
	SeverityError       Severity = 2
	SeverityWarning     Severity = 4
	SeverityInformation Severity = 8
	SeverityVerbose     Severity = 16
)

// SeverityProvider is implemented by packets that represent log messages.
type SeverityProvider interface {
	Severity() Severity
}

// Writer writes a session file: file header, session header, then the
// packet stream.
//
// The file and session headers are written at creation. Packet bytes
// accumulate in memory and reach the file on Flush; protocol 2 streams
// are gzip-framed with a sync point per flush, protocol 1 streams are
// written uncompressed. Each flush also rewrites the session header in
// place, so a live file stays parseable up to its last flush.
//
// Methods serialize on an internal mutex: the header rewrite is a
// seek-write-seek-back sequence that must not interleave with appends to
// the packet stream.
type Writer struct {
	mu sync.Mutex

	f          io.WriteSeeker
	fileHeader *section.FileHeader
	header     *section.SessionHeader
	headerLen  int

	table *encoding.StringTable
	pw    *packet.Writer
	zw    compress.FlushWriter

	major  int
	minor  int
	logger *slog.Logger

	lastWrite time.Time
	started   bool
	closed    bool
}

// WriterOption configures a session Writer.
type WriterOption func(*Writer)

// WithProtocolVersion selects the protocol version to write. The default
// is the current version; version 1 exists for producing legacy streams.
func WithProtocolVersion(major, minor int) WriterOption {
	return func(w *Writer) {
		w.major = major
		w.minor = minor
	}
}

// WithLogger attaches a logger for lifecycle diagnostics. The default
// discards everything.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a session file writer over f and immediately writes
// the file header and the sized session header, so packet data begins at
// exactly FileHeader.DataOffset.
//
// The header's string fields must be final before the first write: the
// in-place rewrite requires the serialized header length to stay constant
// for the life of the session.
func NewWriter(f io.WriteSeeker, header *section.SessionHeader, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		f:      f,
		header: header,
		major:  format.MajorVersion,
		minor:  format.MinorVersion,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}

	if header.Status == format.StatusUnknown {
		header.Status = format.StatusRunning
	}
	if header.StartTime.IsZero() {
		header.StartTime = time.Now()
	}
	if header.FileStartTime.IsZero() {
		header.FileStartTime = header.StartTime
	}

	w.table = encoding.NewStringTable()
	w.pw = packet.NewWriter(w.table, w.major, w.minor)

	// Size the session header, fill in the data offset, then write both
	// headers before any packet data.
	headerBytes := header.Marshal(w.major)
	w.headerLen = len(headerBytes)
	w.fileHeader = section.NewFileHeader(w.major, w.minor)
	w.fileHeader.DataOffset = int32(section.FileHeaderSize + w.headerLen)

	if _, err := f.Write(w.fileHeader.Marshal()); err != nil {
		return nil, fmt.Errorf("writing file header: %w", err)
	}
	if _, err := f.Write(headerBytes); err != nil {
		return nil, fmt.Errorf("writing session header: %w", err)
	}

	zw, err := compress.ForVersion(w.major).WrapWriter(f)
	if err != nil {
		return nil, fmt.Errorf("initializing packet stream compression: %w", err)
	}
	w.zw = zw
	w.started = true

	w.logger.Debug("session file started",
		slog.String("session", header.SessionID.String()),
		slog.Int("major", w.major),
		slog.Int("minor", w.minor),
		slog.Int("data_offset", int(w.fileHeader.DataOffset)))

	return w, nil
}

// Header returns the live session header. Counter fields are maintained
// by the writer; callers must not change the string fields after the
// writer is created.
func (w *Writer) Header() *section.SessionHeader {
	return w.header
}

// Write serializes one packet into the in-memory stream buffer. Packets
// reporting a severity update the session header's message counters;
// a cacheable instance that is already on the stream counts nothing.
func (w *Writer) Write(p packet.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errs.ErrWriterClosed
	}

	before := w.pw.Len()
	if err := w.pw.Write(p); err != nil {
		return err
	}
	if w.pw.Len() == before {
		// Cacheable cache hit: nothing reached the stream.
		return nil
	}

	w.lastWrite = time.Now()
	if sp, ok := p.(SeverityProvider); ok {
		w.header.MessageCount++
		switch sp.Severity() {
		case SeverityCritical:
			w.header.CriticalCount++
		case SeverityError:
			w.header.ErrorCount++
		case SeverityWarning:
			w.header.WarningCount++
		}
	}

	return nil
}

// Flush pushes the buffered packet bytes to the file, emits a compression
// sync point and rewrites the session header in place.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errs.ErrWriterClosed
	}

	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if w.pw.Len() > 0 {
		if _, err := w.pw.Drain(w.zw); err != nil {
			return fmt.Errorf("writing packet stream: %w", err)
		}
	}
	if err := w.zw.Flush(); err != nil {
		return fmt.Errorf("flushing packet stream: %w", err)
	}

	if !w.lastWrite.IsZero() {
		w.header.EndTime = w.lastWrite
		w.header.FileEndTime = w.lastWrite
	}

	return w.rewriteHeaderLocked()
}

// rewriteHeaderLocked overwrites the session header at its fixed offset
// and restores the file position even when the write fails. The encoded
// length must match the original exactly or the packet data immediately
// after it would be corrupted.
func (w *Writer) rewriteHeaderLocked() (err error) {
	headerBytes := w.header.Marshal(w.major)
	if len(headerBytes) != w.headerLen {
		return fmt.Errorf("%w: %d bytes, originally %d", errs.ErrHeaderSizeChanged, len(headerBytes), w.headerLen)
	}

	var pos int64
	pos, err = w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("saving stream position: %w", err)
	}
	defer func() {
		_, seekErr := w.f.Seek(pos, io.SeekStart)
		if err == nil && seekErr != nil {
			err = fmt.Errorf("restoring stream position: %w", seekErr)
		}
	}()

	if _, err = w.f.Seek(section.FileHeaderSize, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to session header: %w", err)
	}
	if _, err = w.f.Write(headerBytes); err != nil {
		return fmt.Errorf("rewriting session header: %w", err)
	}

	return err
}

// Close finalizes the session file: it flushes buffered packets, closes
// the compression framing and rewrites the header a final time.
//
// isLastFile marks this file as the session's terminal fragment, setting
// the session status to Normal. An implicit or unclean end passes false,
// leaving the status Running so readers can tell the session never closed
// cleanly. Close is idempotent; later calls return ErrWriterClosed.
func (w *Writer) Close(isLastFile bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errs.ErrWriterClosed
	}
	w.closed = true

	w.header.IsLastFile = isLastFile
	if isLastFile && w.header.Status == format.StatusRunning {
		w.header.Status = format.StatusNormal
	}
	if w.header.EndTime.IsZero() {
		w.header.EndTime = time.Now()
	}
	if w.header.FileEndTime.IsZero() {
		w.header.FileEndTime = w.header.EndTime
	}

	if w.pw.Len() > 0 {
		if _, err := w.pw.Drain(w.zw); err != nil {
			return fmt.Errorf("writing packet stream: %w", err)
		}
	}
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("closing packet stream: %w", err)
	}
	w.pw.Release()

	if err := w.rewriteHeaderLocked(); err != nil {
		return err
	}

	w.logger.Debug("session file closed",
		slog.String("session", w.header.SessionID.String()),
		slog.Bool("last_file", isLastFile),
		slog.String("status", w.header.Status.String()))

	return nil
}
