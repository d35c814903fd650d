package glf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/format"
	"github.com/glf-dev/glf/packet"
	"github.com/glf-dev/glf/section"
)

type heartbeat struct {
	Instance string
	Seen     time.Time
}

var heartbeatDef = packet.NewDefinition("glf.test.Heartbeat", 1,
	packet.Field{Name: "Instance", Type: format.TypeString},
	packet.Field{Name: "Seen", Type: format.TypeTimestamp},
)

func (p *heartbeat) Definition() *packet.Definition { return heartbeatDef }

func (p *heartbeat) WriteFields(w *encoding.FieldWriter) error {
	w.WriteString(p.Instance)
	w.WriteTime(p.Seen)

	return nil
}

func (p *heartbeat) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.Instance, err = r.ReadString(); err != nil {
		return err
	}
	p.Seen, err = r.ReadTime()

	return err
}

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "round-trip.glf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	header := &section.SessionHeader{
		SessionID:   uuid.New(),
		Product:     "Acme",
		Application: "heartbeat-agent",
		HostName:    "agent-1",
	}

	w, err := NewSessionWriter(f, header)
	require.NoError(t, err)

	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Write(&heartbeat{
			Instance: "agent-1",
			Seen:     base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close(true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r, err := OpenSession(bytes.NewReader(data),
		WithPacketType("glf.test.Heartbeat", func() packet.Packet { return &heartbeat{} }))
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, header.SessionID, r.Header().SessionID)
	require.Equal(t, format.StatusNormal, r.Header().Status)
	require.True(t, r.Header().IsLastFile)

	var count int
	for p, err := range r.Packets() {
		require.NoError(t, err)
		hb, ok := p.(*heartbeat)
		require.True(t, ok)
		require.Equal(t, "agent-1", hb.Instance)
		require.True(t, base.Add(time.Duration(count)*time.Second).Equal(hb.Seen))
		count++
	}
	require.Equal(t, 10, count)
}

func TestOpenSessionWithoutRegistrations(t *testing.T) {
	var buf writeSeekBuffer

	w, err := NewSessionWriter(&buf, &section.SessionHeader{
		SessionID: uuid.New(),
		Product:   "Acme",
	})
	require.NoError(t, err)
	require.NoError(t, w.Write(&heartbeat{Instance: "x", Seen: time.Unix(1700000000, 0).UTC()}))
	require.NoError(t, w.Close(true))

	r, err := OpenSession(bytes.NewReader(buf.data))
	require.NoError(t, err)
	defer r.Close()

	p, err := r.Next()
	require.NoError(t, err)
	gp, ok := p.(*packet.GenericPacket)
	require.True(t, ok)
	instance, ok := gp.Value("Instance")
	require.True(t, ok)
	require.Equal(t, "x", instance)
}

// writeSeekBuffer is an in-memory io.WriteSeeker for tests that do not
// need a real file.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if b.pos+len(p) > len(b.data) {
		grown := make([]byte, b.pos+len(p))
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)

	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		b.pos = int(offset)
	case io.SeekCurrent:
		b.pos += int(offset)
	case io.SeekEnd:
		b.pos = len(b.data) + int(offset)
	}

	return int64(b.pos), nil
}
