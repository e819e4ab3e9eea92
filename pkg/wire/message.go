package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/google/uuid"
)

// Message kinds on the wire.
const (
	KindBufferResponse     uint8 = 1
	KindFileRegionResponse uint8 = 2
)

// header layout: kind(1) + receiver(16) + seq(8) + backlog(4) + dataType(1) + compressed(1) + length(4)
const headerSize = 35

// Message is one outbound response ready for the transport layer.
type Message interface {
	ReceiverID() uuid.UUID
	SequenceNumber() uint64
	// Encode frames the full message, payload included, onto w.
	Encode(w io.Writer) error
	// ReleaseBuffer returns the payload's backing buffer, if any, once the
	// message has been written. Must run after Encode, never before.
	ReleaseBuffer()
}

// BufferResponse carries an in-memory payload. When Buf is set the payload
// aliases a pooled buffer; the sender releases it through ReleaseBuffer
// after the bytes are on the wire.
type BufferResponse struct {
	Receiver   uuid.UUID
	Seq        uint64
	Backlog    int
	DataType   buffer.DataType
	Compressed bool
	Payload    []byte
	Buf        *buffer.Buffer
}

func (m *BufferResponse) ReceiverID() uuid.UUID {
	return m.Receiver
}

func (m *BufferResponse) SequenceNumber() uint64 {
	return m.Seq
}

func (m *BufferResponse) ReleaseBuffer() {
	if m.Buf != nil {
		m.Buf.Release()
		m.Buf = nil
		m.Payload = nil
	}
}

func (m *BufferResponse) Encode(w io.Writer) error {
	if err := writeHeader(w, KindBufferResponse, m.Receiver, m.Seq, m.Backlog, m.DataType, m.Compressed, len(m.Payload)); err != nil {
		return err
	}
	if _, err := w.Write(m.Payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// FileRegionResponse points at a sealed file region to be sent without
// copying through application memory. FileSize is the total file size at
// build time; Offset/Size delimit the payload bytes of this unit.
type FileRegionResponse struct {
	Receiver   uuid.UUID
	Seq        uint64
	Backlog    int
	DataType   buffer.DataType
	Compressed bool
	File       *os.File
	Offset     int64
	Size       int64
	FileSize   int64
}

func (m *FileRegionResponse) ReceiverID() uuid.UUID {
	return m.Receiver
}

func (m *FileRegionResponse) SequenceNumber() uint64 {
	return m.Seq
}

// ReleaseBuffer is a no-op: file regions hold no pooled memory.
func (m *FileRegionResponse) ReleaseBuffer() {}

// Encode frames the header and copies the region through user space. The
// zero-copy path is Transfer; Encode is the portable fallback for generic
// writers.
func (m *FileRegionResponse) Encode(w io.Writer) error {
	if err := writeHeader(w, KindFileRegionResponse, m.Receiver, m.Seq, m.Backlog, m.DataType, m.Compressed, int(m.Size)); err != nil {
		return err
	}
	if _, err := io.Copy(w, io.NewSectionReader(m.File, m.Offset, m.Size)); err != nil {
		return fmt.Errorf("copy file region: %w", err)
	}
	return nil
}

func writeHeader(w io.Writer, kind uint8, receiver uuid.UUID, seq uint64, backlog int, dataType buffer.DataType, compressed bool, length int) error {
	var hdr [headerSize]byte
	hdr[0] = kind
	copy(hdr[1:17], receiver[:])
	binary.BigEndian.PutUint64(hdr[17:25], seq)
	binary.BigEndian.PutUint32(hdr[25:29], uint32(backlog))
	hdr[29] = byte(dataType)
	if compressed {
		hdr[30] = 1
	}
	binary.BigEndian.PutUint32(hdr[31:35], uint32(length))

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// DecodedMessage is the consumer-side view of one framed response, used by
// tests and diagnostic tooling.
type DecodedMessage struct {
	Kind       uint8
	Receiver   uuid.UUID
	Seq        uint64
	Backlog    int
	DataType   buffer.DataType
	Compressed bool
	Payload    []byte
}

// Decode reads one framed message from r.
func Decode(r io.Reader) (*DecodedMessage, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	m := &DecodedMessage{
		Kind:       hdr[0],
		Seq:        binary.BigEndian.Uint64(hdr[17:25]),
		Backlog:    int(binary.BigEndian.Uint32(hdr[25:29])),
		DataType:   buffer.DataType(hdr[29]),
		Compressed: hdr[30] == 1,
	}
	copy(m.Receiver[:], hdr[1:17])

	length := binary.BigEndian.Uint32(hdr[31:35])
	m.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, m.Payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return m, nil
}
