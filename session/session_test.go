package session

import (
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

// logMessage is the log packet type used by the session tests.
type logMessage struct {
	Text  string
	Level Severity
	When  time.Time
}

var logMessageDef = packet.NewDefinition("glf.test.LogMessage", 1,
	packet.Field{Name: "Text", Type: format.TypeString},
	packet.Field{Name: "Level", Type: format.TypeInt32},
	packet.Field{Name: "When", Type: format.TypeTimestamp},
)

func (p *logMessage) Definition() *packet.Definition { return logMessageDef }

func (p *logMessage) Severity() Severity { return p.Level }

func (p *logMessage) WriteFields(w *encoding.FieldWriter) error {
	w.WriteString(p.Text)
	w.WriteInt32(int32(p.Level))
	w.WriteTime(p.When)

	return nil
}

func (p *logMessage) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.Text, err = r.ReadString(); err != nil {
		return err
	}
	level, err := r.ReadInt32()
	if err != nil {
		return err
	}
	p.Level = Severity(level)
	if p.When, err = r.ReadTime(); err != nil {
		return err
	}

	return nil
}

// threadInfo is a cacheable packet many messages reference.
type threadInfo struct {
	ID   uuid.UUID
	Name string
}

var threadInfoDef = packet.NewDefinition("glf.test.ThreadInfo", 1,
	packet.Field{Name: "ID", Type: format.TypeGUID},
	packet.Field{Name: "Name", Type: format.TypeString},
)

func (p *threadInfo) Definition() *packet.Definition { return threadInfoDef }

func (p *threadInfo) InstanceID() uuid.UUID { return p.ID }

func (p *threadInfo) WriteFields(w *encoding.FieldWriter) error {
	w.WriteGUID(p.ID)
	w.WriteString(p.Name)

	return nil
}

func (p *threadInfo) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.ID, err = r.ReadGUID(); err != nil {
		return err
	}
	p.Name, err = r.ReadString()

	return err
}

// threadMessage depends on its thread's info packet.
type threadMessage struct {
	Thread   *threadInfo
	ThreadID uuid.UUID
	Text     string
}

var threadMessageDef = packet.NewDefinition("glf.test.ThreadMessage", 1,
	packet.Field{Name: "ThreadID", Type: format.TypeGUID},
	packet.Field{Name: "Text", Type: format.TypeString},
)

func (p *threadMessage) Definition() *packet.Definition { return threadMessageDef }

func (p *threadMessage) RequiredPackets() []packet.Packet {
	if p.Thread == nil {
		return nil
	}

	return []packet.Packet{p.Thread}
}

func (p *threadMessage) WriteFields(w *encoding.FieldWriter) error {
	id := p.ThreadID
	if p.Thread != nil {
		id = p.Thread.ID
	}
	w.WriteGUID(id)
	w.WriteString(p.Text)

	return nil
}

func (p *threadMessage) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.ThreadID, err = r.ReadGUID(); err != nil {
		return err
	}
	p.Text, err = r.ReadString()

	return err
}

// alertPacket is a cacheable log message: deduplicated per stream and
// reporting a severity.
type alertPacket struct {
	ID   uuid.UUID
	Text string
}

var alertPacketDef = packet.NewDefinition("glf.test.Alert", 1,
	packet.Field{Name: "ID", Type: format.TypeGUID},
	packet.Field{Name: "Text", Type: format.TypeString},
)

func (p *alertPacket) Definition() *packet.Definition { return alertPacketDef }

func (p *alertPacket) InstanceID() uuid.UUID { return p.ID }

func (p *alertPacket) Severity() Severity { return SeverityCritical }

func (p *alertPacket) WriteFields(w *encoding.FieldWriter) error {
	w.WriteGUID(p.ID)
	w.WriteString(p.Text)

	return nil
}

func (p *alertPacket) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.ID, err = r.ReadGUID(); err != nil {
		return err
	}
	p.Text, err = r.ReadString()

	return err
}

func sessionRegistry() *packet.Registry {
	r := packet.NewRegistry()
	r.Register("glf.test.LogMessage", func() packet.Packet { return &logMessage{} })
	r.Register("glf.test.ThreadInfo", func() packet.Packet { return &threadInfo{} })
	r.Register("glf.test.ThreadMessage", func() packet.Packet { return &threadMessage{} })

	return r
}

func newSessionHeader() *section.SessionHeader {
	return &section.SessionHeader{
		SessionID:          uuid.New(),
		ComputerID:         uuid.New(),
		Product:            "Acme",
		Application:        "loader",
		Environment:        "test",
		PromotionLevel:     "dev",
		ApplicationVersion: "1.0.0",
		Caption:            "loader test run",
		HostName:           "test-host",
		UserName:           "tester",
		FileID:             uuid.New(),
	}
}

// createSessionFile opens a fresh file under the test's temp dir.
func createSessionFile(t *testing.T) *os.File {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "session.glf"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}
