/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package crny

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Xilinx-CNS/sfptpd-go/chrony"
)

// ErrInProgress is the sentinel Inputs.ConnectErr carries for EINPROGRESS.
var ErrInProgress = errors.New("crny: connect in progress")

// replyTimeout is the fixed per-request reply deadline, spec §4.2.4/§5.
const replyTimeout = time.Second

// transport owns the adapter's non-blocking Unix datagram socket and the
// bookkeeping for the single outstanding request, per spec §4.2.1.
type transport struct {
	localPath  string
	remotePath string

	fd   int
	conn *net.UnixConn

	sequence atomic.Uint32

	replyDeadline  time.Time
	outstandingOp  chrony.CommandType
	outstandingSeq uint32
}

func newTransport(remotePath string) *transport {
	return &transport{
		localPath:  fmt.Sprintf("/var/run/crny/synctimed.%d.sock", os.Getpid()),
		remotePath: remotePath,
	}
}

// connect creates the local socket, binds it, sets close-on-exec and
// non-blocking, and issues a non-blocking connect to remotePath. It
// returns nil, ErrInProgress, or any other error exactly as spec §4.2.2's
// CONNECT state expects.
func (t *transport) connect() error {
	_ = os.Remove(t.localPath)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("crny: socket: %w", err)
	}
	t.fd = fd

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: t.localPath}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("crny: bind: %w", err)
	}

	err = unix.Connect(fd, &unix.SockaddrUnix{Name: t.remotePath})
	switch {
	case err == nil:
		return t.wrapConn()
	case errors.Is(err, unix.EINPROGRESS):
		return ErrInProgress
	default:
		t.closeLocked()
		return err
	}
}

func (t *transport) wrapConn() error {
	f := os.NewFile(uintptr(t.fd), t.localPath)
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("crny: FileConn: %w", err)
	}
	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return fmt.Errorf("crny: unexpected conn type %T", conn)
	}
	t.conn = uconn
	return nil
}

// soError reads and clears SO_ERROR on the connecting socket, called once
// CONNECT_WAIT observes the descriptor is writable.
func (t *transport) soError() error {
	errno, err := unix.GetsockoptInt(t.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return t.wrapConn()
}

// send encodes and writes a request, recording the deadline for the
// REPLY_TIMEOUT synthesis described in spec §4.2.2.
func (t *transport) send(p chrony.RequestPacket) error {
	seq := t.sequence.Add(1)
	p.SetSequence(seq)
	buf, err := chrony.Encode(p)
	if err != nil {
		return err
	}
	if _, err := t.conn.Write(buf); err != nil {
		return err
	}
	t.outstandingOp = p.GetCommand()
	t.outstandingSeq = seq
	t.replyDeadline = time.Now().Add(replyTimeout)
	return nil
}

// recv reads one pending datagram and decodes it against the outstanding
// request's command and sequence.
func (t *transport) recv() (chrony.ResponsePacket, error) {
	buf := make([]byte, 2048)
	n, err := t.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return chrony.Decode(buf[:n], t.outstandingOp, t.outstandingSeq)
}

// replyOverdue reports whether the outstanding request has passed its
// reply deadline.
func (t *transport) replyOverdue(now time.Time) bool {
	return !t.replyDeadline.IsZero() && now.After(t.replyDeadline)
}

func (t *transport) closeLocked() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	} else if t.fd != 0 {
		unix.Close(t.fd)
	}
	_ = os.Remove(t.localPath)
	t.fd = 0
}

// close tears down the socket and removes the local path, spec §4.2.1.
func (t *transport) close() {
	t.closeLocked()
}
