//go:build linux
// +build linux

package wire

import (
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// Transfer sends the region body to conn, zero-copy where the platform
// allows it. The framing header always goes through Encode-style writes.
func (m *FileRegionResponse) Transfer(conn net.Conn) error {
	if err := writeHeader(conn, KindFileRegionResponse, m.Receiver, m.Seq, m.Backlog, m.DataType, m.Compressed, int(m.Size)); err != nil {
		return err
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		_, err := io.Copy(conn, io.NewSectionReader(m.File, m.Offset, m.Size))
		return err
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	offset := m.Offset
	end := m.Offset + m.Size

	var sendErr error
	if err := rawConn.Control(func(fd uintptr) {
		inFd := int(m.File.Fd())
		outFd := int(fd)
		for offset < end {
			n, err := unix.Sendfile(outFd, inFd, &offset, int(end-offset))
			if err != nil {
				sendErr = err
				return
			}
			if n == 0 {
				break
			}
		}
	}); err != nil {
		return fmt.Errorf("rawConn.Control: %w", err)
	}
	return sendErr
}
