package packet

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glf-dev/glf/encoding"
	"github.com/glf-dev/glf/format"
)

// logEvent is the plain packet type shared by the package tests.
type logEvent struct {
	Message  string
	Severity uint32
	When     time.Time
}

var logEventDef = NewDefinition("test.LogEvent", 1,
	Field{Name: "Message", Type: format.TypeString},
	Field{Name: "Severity", Type: format.TypeUint32},
	Field{Name: "When", Type: format.TypeTimestamp},
)

func (p *logEvent) Definition() *Definition { return logEventDef }

func (p *logEvent) WriteFields(w *encoding.FieldWriter) error {
	w.WriteString(p.Message)
	w.WriteUint32(p.Severity)
	w.WriteTime(p.When)

	return nil
}

func (p *logEvent) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.Message, err = r.ReadString(); err != nil {
		return err
	}
	if p.Severity, err = r.ReadUint32(); err != nil {
		return err
	}
	if p.When, err = r.ReadTime(); err != nil {
		return err
	}

	return nil
}

// metricDescriptor is cacheable: one instance serializes at most once per
// stream regardless of how many samples reference it.
type metricDescriptor struct {
	ID   uuid.UUID
	Name string
	Unit string
}

var metricDescriptorDef = NewDefinition("test.MetricDescriptor", 1,
	Field{Name: "ID", Type: format.TypeGUID},
	Field{Name: "Name", Type: format.TypeString},
	Field{Name: "Unit", Type: format.TypeString},
)

func (p *metricDescriptor) Definition() *Definition { return metricDescriptorDef }

func (p *metricDescriptor) InstanceID() uuid.UUID { return p.ID }

func (p *metricDescriptor) WriteFields(w *encoding.FieldWriter) error {
	w.WriteGUID(p.ID)
	w.WriteString(p.Name)
	w.WriteString(p.Unit)

	return nil
}

func (p *metricDescriptor) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.ID, err = r.ReadGUID(); err != nil {
		return err
	}
	if p.Name, err = r.ReadString(); err != nil {
		return err
	}
	if p.Unit, err = r.ReadString(); err != nil {
		return err
	}

	return nil
}

// metricSample depends on its descriptor, which must land on the stream
// before the sample itself.
type metricSample struct {
	Descriptor *metricDescriptor
	MetricID   uuid.UUID
	Value      float64
}

var metricSampleDef = NewDefinition("test.MetricSample", 1,
	Field{Name: "MetricID", Type: format.TypeGUID},
	Field{Name: "Value", Type: format.TypeFloat64},
)

func (p *metricSample) Definition() *Definition { return metricSampleDef }

func (p *metricSample) RequiredPackets() []Packet {
	if p.Descriptor == nil {
		return nil
	}

	return []Packet{p.Descriptor}
}

func (p *metricSample) WriteFields(w *encoding.FieldWriter) error {
	id := p.MetricID
	if p.Descriptor != nil {
		id = p.Descriptor.ID
	}
	w.WriteGUID(id)
	w.WriteFloat64(p.Value)

	return nil
}

func (p *metricSample) ReadFields(r *encoding.FieldReader) error {
	var err error
	if p.MetricID, err = r.ReadGUID(); err != nil {
		return err
	}
	if p.Value, err = r.ReadFloat64(); err != nil {
		return err
	}

	return nil
}

// dynamicEvent picks its wire type name per instance.
type dynamicEvent struct {
	Kind  string
	Value string
}

var dynamicEventDef = NewDefinition("test.Event", 1,
	Field{Name: "Value", Type: format.TypeString},
)

func (p *dynamicEvent) Definition() *Definition { return dynamicEventDef }

func (p *dynamicEvent) DynamicTypeName() string { return "test.Event." + p.Kind }

func (p *dynamicEvent) WriteFields(w *encoding.FieldWriter) error {
	w.WriteString(p.Value)

	return nil
}

func (p *dynamicEvent) ReadFields(r *encoding.FieldReader) error {
	var err error
	p.Value, err = r.ReadString()

	return err
}

var errBoom = errors.New("boom")

// failingPacket encodes part of its fields and then fails, exercising the
// writer's rollback path.
type failingPacket struct{}

var failingPacketDef = NewDefinition("test.Failing", 1,
	Field{Name: "Label", Type: format.TypeString},
)

func (p *failingPacket) Definition() *Definition { return failingPacketDef }

func (p *failingPacket) WriteFields(w *encoding.FieldWriter) error {
	w.WriteString("doomed")

	return errBoom
}

func (p *failingPacket) ReadFields(r *encoding.FieldReader) error {
	_, err := r.ReadString()

	return err
}

// selfLink is a cacheable packet that lists itself as a dependency,
// exercising the in-progress cycle guard.
type selfLink struct {
	ID uuid.UUID
}

var selfLinkDef = NewDefinition("test.SelfLink", 1,
	Field{Name: "ID", Type: format.TypeGUID},
)

func (p *selfLink) Definition() *Definition { return selfLinkDef }

func (p *selfLink) InstanceID() uuid.UUID { return p.ID }

func (p *selfLink) RequiredPackets() []Packet { return []Packet{p} }

func (p *selfLink) WriteFields(w *encoding.FieldWriter) error {
	w.WriteGUID(p.ID)

	return nil
}

func (p *selfLink) ReadFields(r *encoding.FieldReader) error {
	var err error
	p.ID, err = r.ReadGUID()

	return err
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("test.LogEvent", func() Packet { return &logEvent{} })
	r.Register("test.MetricDescriptor", func() Packet { return &metricDescriptor{} })
	r.Register("test.MetricSample", func() Packet { return &metricSample{} })
	r.Register("test.SelfLink", func() Packet { return &selfLink{} })

	return r
}

// drainPayloads splits a committed stream back into its packet payloads.
func drainPayloads(t *testing.T, data []byte) [][]byte {
	t.Helper()

	bm := NewBufferManager()
	bm.Fill(data)

	var payloads [][]byte
	for {
		payload, status, _, err := bm.Next()
		require.NoError(t, err)
		if status != Complete {
			require.Zero(t, bm.Buffered())
			return payloads
		}
		payloads = append(payloads, append([]byte(nil), payload...))
	}
}
