package section

import (
	"time"

	"github.com/google/uuid"

	"github.com/glf-dev/glf/endian"
	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
)

// SessionHeader is the variable-length metadata block written immediately
// after the file header.
//
// Unlike packet data the session header is rewritten in place while the
// session is live, so every field uses a fixed-width encoding: counters
// and timestamps are fixed 8/4-byte little-endian values and strings are
// uint32-length-prefixed UTF-8. The string fields are set once at session
// start and never change, which keeps the serialized size byte-stable
// across rewrites of the same session.
//
// The computer id, environment, promotion level and multi-file fragment
// fields exist only on protocol major version 2 and later.
type SessionHeader struct {
	SessionID  uuid.UUID
	ComputerID uuid.UUID // major >= 2

	Product            string
	Application        string
	Environment        string // major >= 2
	PromotionLevel     string // major >= 2
	ApplicationVersion string
	Caption            string
	HostName           string
	UserName           string

	Status    format.SessionStatus
	StartTime time.Time
	EndTime   time.Time

	MessageCount  int32
	CriticalCount int32
	ErrorCount    int32
	WarningCount  int32

	// Multi-file fragment support (major >= 2). A long-running session
	// may roll across several physical files sharing one SessionID.
	FileID        uuid.UUID
	FileSequence  int32
	FileStartTime time.Time
	FileEndTime   time.Time
	IsLastFile    bool
}

func appendHeaderString(engine endian.EndianEngine, buf []byte, s string) []byte {
	buf = engine.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendHeaderTime(engine endian.EndianEngine, buf []byte, t time.Time) []byte {
	var nanos int64
	var offsetMin int32
	if !t.IsZero() {
		nanos = t.UnixNano()
		_, offsetSec := t.Zone()
		offsetMin = int32(offsetSec / 60)
	}
	buf = engine.AppendUint64(buf, uint64(nanos))

	return engine.AppendUint32(buf, uint32(offsetMin))
}

// Marshal serializes the header for the given protocol major version.
// Re-marshaling the same session (only counters, status, timestamps and
// the last-file flag changed) always yields the same byte length.
func (h *SessionHeader) Marshal(major int) []byte {
	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, 0, 256)

	buf = append(buf, h.SessionID[:]...)
	if format.SupportsExtendedHeader(major) {
		buf = append(buf, h.ComputerID[:]...)
	}

	buf = appendHeaderString(engine, buf, h.Product)
	buf = appendHeaderString(engine, buf, h.Application)
	if format.SupportsExtendedHeader(major) {
		buf = appendHeaderString(engine, buf, h.Environment)
		buf = appendHeaderString(engine, buf, h.PromotionLevel)
	}
	buf = appendHeaderString(engine, buf, h.ApplicationVersion)
	buf = appendHeaderString(engine, buf, h.Caption)
	buf = appendHeaderString(engine, buf, h.HostName)
	buf = appendHeaderString(engine, buf, h.UserName)

	buf = engine.AppendUint32(buf, uint32(h.Status))
	buf = appendHeaderTime(engine, buf, h.StartTime)
	buf = appendHeaderTime(engine, buf, h.EndTime)

	buf = engine.AppendUint32(buf, uint32(h.MessageCount))
	buf = engine.AppendUint32(buf, uint32(h.CriticalCount))
	buf = engine.AppendUint32(buf, uint32(h.ErrorCount))
	buf = engine.AppendUint32(buf, uint32(h.WarningCount))

	if format.SupportsExtendedHeader(major) {
		buf = append(buf, h.FileID[:]...)
		buf = engine.AppendUint32(buf, uint32(h.FileSequence))
		buf = appendHeaderTime(engine, buf, h.FileStartTime)
		buf = appendHeaderTime(engine, buf, h.FileEndTime)
		last := byte(0)
		if h.IsLastFile {
			last = 1
		}
		buf = append(buf, last)
	}

	return buf
}

type headerParser struct {
	engine endian.EndianEngine
	data   []byte
	pos    int
}

func (p *headerParser) take(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, errs.ErrUnexpectedEOF
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n

	return b, nil
}

func (p *headerParser) guid() (uuid.UUID, error) {
	var u uuid.UUID
	b, err := p.take(len(u))
	if err != nil {
		return u, err
	}
	copy(u[:], b)

	return u, nil
}

func (p *headerParser) uint32() (uint32, error) {
	b, err := p.take(4)
	if err != nil {
		return 0, err
	}

	return p.engine.Uint32(b), nil
}

func (p *headerParser) str() (string, error) {
	length, err := p.uint32()
	if err != nil {
		return "", err
	}
	if int(length) > len(p.data)-p.pos {
		return "", errs.ErrInvalidLength
	}
	b, err := p.take(int(length))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (p *headerParser) timestamp() (time.Time, error) {
	b, err := p.take(8)
	if err != nil {
		return time.Time{}, err
	}
	nanos := int64(p.engine.Uint64(b))
	offRaw, err := p.uint32()
	if err != nil {
		return time.Time{}, err
	}
	if nanos == 0 {
		return time.Time{}, nil
	}
	offsetMin := int32(offRaw)
	loc := time.UTC
	if offsetMin != 0 {
		loc = time.FixedZone("", int(offsetMin)*60)
	}

	return time.Unix(0, nanos).In(loc), nil
}

// Parse parses a session header serialized for the given protocol major
// version. The caller supplies exactly the header bytes (file header
// DataOffset minus FileHeaderSize).
func (h *SessionHeader) Parse(data []byte, major int) error {
	p := &headerParser{engine: endian.GetLittleEndianEngine(), data: data}
	extended := format.SupportsExtendedHeader(major)

	var err error
	if h.SessionID, err = p.guid(); err != nil {
		return err
	}
	if extended {
		if h.ComputerID, err = p.guid(); err != nil {
			return err
		}
	}

	if h.Product, err = p.str(); err != nil {
		return err
	}
	if h.Application, err = p.str(); err != nil {
		return err
	}
	if extended {
		if h.Environment, err = p.str(); err != nil {
			return err
		}
		if h.PromotionLevel, err = p.str(); err != nil {
			return err
		}
	}
	if h.ApplicationVersion, err = p.str(); err != nil {
		return err
	}
	if h.Caption, err = p.str(); err != nil {
		return err
	}
	if h.HostName, err = p.str(); err != nil {
		return err
	}
	if h.UserName, err = p.str(); err != nil {
		return err
	}

	status, err := p.uint32()
	if err != nil {
		return err
	}
	h.Status = format.SessionStatus(status)
	if h.StartTime, err = p.timestamp(); err != nil {
		return err
	}
	if h.EndTime, err = p.timestamp(); err != nil {
		return err
	}

	counts := []*int32{&h.MessageCount, &h.CriticalCount, &h.ErrorCount, &h.WarningCount}
	for _, c := range counts {
		v, err := p.uint32()
		if err != nil {
			return err
		}
		*c = int32(v)
	}

	if extended {
		if h.FileID, err = p.guid(); err != nil {
			return err
		}
		seq, err := p.uint32()
		if err != nil {
			return err
		}
		h.FileSequence = int32(seq)
		if h.FileStartTime, err = p.timestamp(); err != nil {
			return err
		}
		if h.FileEndTime, err = p.timestamp(); err != nil {
			return err
		}
		last, err := p.take(1)
		if err != nil {
			return err
		}
		h.IsLastFile = last[0] != 0
	}

	if p.pos != len(data) {
		return errs.ErrStreamCorrupted
	}

	return nil
}
