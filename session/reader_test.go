package session

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glf-dev/glf/errs"
	"github.com/glf-dev/glf/format"
	"github.com/glf-dev/glf/packet"
	"github.com/glf-dev/glf/section"
)

// writeSessionFile writes a complete session file and returns its bytes.
func writeSessionFile(t *testing.T, packets []packet.Packet, opts ...WriterOption) []byte {
	t.Helper()

	f := createSessionFile(t)
	w, err := NewWriter(f, newSessionHeader(), opts...)
	require.NoError(t, err)
	for _, p := range packets {
		require.NoError(t, w.Write(p))
	}
	require.NoError(t, w.Close(true))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)

	return data
}

func TestReaderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []WriterOption
	}{
		{name: "current"},
		{name: "legacy", opts: []WriterOption{WithProtocolVersion(format.MajorVersionLegacy, 0)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			when := time.Unix(1700000000, 0).UTC()
			written := []packet.Packet{
				&logMessage{Text: "service starting", Level: SeverityInformation, When: when},
				&logMessage{Text: "listener bound", Level: SeverityInformation, When: when.Add(15 * time.Millisecond)},
				&logMessage{Text: "disk almost full", Level: SeverityWarning, When: when.Add(2 * time.Second)},
			}
			data := writeSessionFile(t, written, tc.opts...)

			r, err := NewReader(bytes.NewReader(data), WithRegistry(sessionRegistry()))
			require.NoError(t, err)
			defer r.Close()

			require.Equal(t, format.StatusNormal, r.Header().Status)
			require.Equal(t, int32(3), r.Header().MessageCount)
			require.Equal(t, int32(1), r.Header().WarningCount)

			for _, want := range written {
				p, err := r.Next()
				require.NoError(t, err)
				got, ok := p.(*logMessage)
				require.True(t, ok)
				wantMsg := want.(*logMessage)
				require.Equal(t, wantMsg.Text, got.Text)
				require.Equal(t, wantMsg.Level, got.Level)
				require.True(t, wantMsg.When.Equal(got.When))
			}

			_, err = r.Next()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReaderPacketsIterator(t *testing.T) {
	when := time.Unix(1700000000, 0).UTC()
	data := writeSessionFile(t, []packet.Packet{
		&logMessage{Text: "one", Level: SeverityVerbose, When: when},
		&logMessage{Text: "two", Level: SeverityVerbose, When: when.Add(time.Millisecond)},
	})

	r, err := NewReader(bytes.NewReader(data), WithRegistry(sessionRegistry()))
	require.NoError(t, err)
	defer r.Close()

	var texts []string
	for p, err := range r.Packets() {
		require.NoError(t, err)
		texts = append(texts, p.(*logMessage).Text)
	}
	require.Equal(t, []string{"one", "two"}, texts)
}

func TestReaderResolvesCachedDependencies(t *testing.T) {
	main := &threadInfo{ID: uuid.New(), Name: "main"}
	worker := &threadInfo{ID: uuid.New(), Name: "worker"}
	data := writeSessionFile(t, []packet.Packet{
		&threadMessage{Thread: main, Text: "boot"},
		&threadMessage{Thread: main, Text: "listening"},
		&threadMessage{Thread: worker, Text: "job started"},
	})

	r, err := NewReader(bytes.NewReader(data), WithRegistry(sessionRegistry()))
	require.NoError(t, err)
	defer r.Close()

	var infos, messages int
	for p, err := range r.Packets() {
		require.NoError(t, err)
		switch m := p.(type) {
		case *threadInfo:
			infos++
		case *threadMessage:
			messages++
			cached, ok := r.Cached(m.ThreadID)
			require.True(t, ok)
			require.NotEmpty(t, cached.(*threadInfo).Name)
		}
	}
	// Each thread's info packet appears exactly once however many
	// messages reference it.
	require.Equal(t, 2, infos)
	require.Equal(t, 3, messages)

	cached, ok := r.Cached(main.ID)
	require.True(t, ok)
	require.Equal(t, "main", cached.(*threadInfo).Name)
}

func TestReaderGenericFallback(t *testing.T) {
	when := time.Unix(1700000000, 0).UTC()
	data := writeSessionFile(t, []packet.Packet{
		&logMessage{Text: "untyped read", Level: SeverityError, When: when},
	})

	// No registry: the packet still decodes, generically.
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	p, err := r.Next()
	require.NoError(t, err)
	gp, ok := p.(*packet.GenericPacket)
	require.True(t, ok)
	require.Equal(t, "glf.test.LogMessage", gp.Definition().Name)
	text, ok := gp.Value("Text")
	require.True(t, ok)
	require.Equal(t, "untyped read", text)
}

func TestReaderEmptySession(t *testing.T) {
	data := writeSessionFile(t, nil)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderRejectsGarbage(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not a session file, not even close")))
	require.ErrorIs(t, err, errs.ErrInvalidMagicNumber)

	_, err = NewReader(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, errs.ErrInvalidFileHeader)
}

func TestReaderRejectsUnsupportedVersion(t *testing.T) {
	fh := section.NewFileHeader(format.MajorVersion+5, 0)
	fh.DataOffset = section.FileHeaderSize

	_, err := NewReader(bytes.NewReader(fh.Marshal()))
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
}

func TestReaderRejectsHugeDataOffset(t *testing.T) {
	fh := section.NewFileHeader(format.MajorVersion, format.MinorVersion)
	fh.DataOffset = section.FileHeaderSize + 64<<20

	_, err := NewReader(bytes.NewReader(fh.Marshal()))
	require.ErrorIs(t, err, errs.ErrInvalidDataOffset)
}

func TestReaderTruncatedPacketStream(t *testing.T) {
	// Legacy files are uncompressed, so a mid-packet truncation surfaces
	// directly as an unexpected end of stream.
	when := time.Unix(1700000000, 0).UTC()
	data := writeSessionFile(t, []packet.Packet{
		&logMessage{Text: "whole message that will be cut short", Level: SeverityInformation, When: when},
	}, WithProtocolVersion(format.MajorVersionLegacy, 0))

	r, err := NewReader(bytes.NewReader(data[:len(data)-10]), WithRegistry(sessionRegistry()))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
}

func TestReaderTruncatedSessionHeader(t *testing.T) {
	data := writeSessionFile(t, nil)

	_, err := NewReader(bytes.NewReader(data[:section.FileHeaderSize+5]))
	require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
}

func TestReaderTinyBufferSize(t *testing.T) {
	// A tiny chunk size forces packets to straddle fills without changing
	// what is decoded.
	when := time.Unix(1700000000, 0).UTC()
	data := writeSessionFile(t, []packet.Packet{
		&logMessage{Text: "straddles many tiny reads", Level: SeverityInformation, When: when},
		&logMessage{Text: "and so does this one", Level: SeverityInformation, When: when.Add(time.Second)},
	})

	r, err := NewReader(bytes.NewReader(data), WithRegistry(sessionRegistry()), WithBufferSize(7))
	require.NoError(t, err)
	defer r.Close()

	var texts []string
	for p, err := range r.Packets() {
		require.NoError(t, err)
		texts = append(texts, p.(*logMessage).Text)
	}
	require.Equal(t, []string{"straddles many tiny reads", "and so does this one"}, texts)
}

func TestReaderClosed(t *testing.T) {
	data := writeSessionFile(t, nil)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Next()
	require.ErrorIs(t, err, errs.ErrReaderClosed)
}
