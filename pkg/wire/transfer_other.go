//go:build !linux
// +build !linux

package wire

import (
	"io"
	"net"
)

// Transfer sends the region body to conn. Without sendfile support the
// bytes are copied through a section reader.
func (m *FileRegionResponse) Transfer(conn net.Conn) error {
	if err := writeHeader(conn, KindFileRegionResponse, m.Receiver, m.Seq, m.Backlog, m.DataType, m.Compressed, int(m.Size)); err != nil {
		return err
	}
	_, err := io.Copy(conn, io.NewSectionReader(m.File, m.Offset, m.Size))
	return err
}
