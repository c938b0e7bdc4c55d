// Package ipc implements the local client-facing transport: a Unix
// domain socket accepting one connection per client process, framed
// with the same 12-byte header (size, id, error) every exec record
// uses on the cluster transport (spec §1's "IPC service" collaborator,
// §6's wire framing). It decodes nothing — it hands raw frames to the
// request router (C6), which owns decoding, source-stamping, and
// broadcast.
package ipc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/msglog"
)

// Frame is one raw request frame read from a client connection.
type Frame struct {
	Conn model.ConnID
	Data []byte
}

// Server accepts client connections on a Unix domain socket.
type Server struct {
	listener net.Listener
	log      msglog.Logger

	mu    sync.Mutex
	conns map[model.ConnID]net.Conn
	next  uint64

	frames      chan Frame
	disconnects chan model.ConnID
}

// Listen starts accepting connections on socketPath.
func Listen(socketPath string, log msglog.Logger) (*Server, error) {
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", socketPath, err)
	}
	s := &Server{
		listener:    l,
		log:         log,
		conns:       make(map[model.ConnID]net.Conn),
		frames:      make(chan Frame, 256),
		disconnects: make(chan model.ConnID, 64),
	}
	go s.acceptLoop()
	return s, nil
}

// Frames returns the channel of raw request frames, tagged with the
// connection they arrived on.
func (s *Server) Frames() <-chan Frame { return s.frames }

// Disconnects returns the channel of connections that have dropped, so
// the router can broadcast a ClientDisconnect cleanup record (spec §1
// failure model).
func (s *Server) Disconnects() <-chan model.ConnID { return s.disconnects }

func (s *Server) acceptLoop() {
	for {
		c, err := s.listener.Accept()
		if err != nil {
			return
		}
		id := model.ConnID(atomic.AddUint64(&s.next, 1))
		s.mu.Lock()
		s.conns[id] = c
		s.mu.Unlock()
		go s.readLoop(id, c)
	}
}

func (s *Server) readLoop(id model.ConnID, c net.Conn) {
	defer s.drop(id, c)
	r := bufio.NewReader(c)
	header := make([]byte, 12)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return
		}
		size := binary.LittleEndian.Uint32(header[0:4])
		frame := make([]byte, 12+size)
		copy(frame, header)
		if size > 0 {
			if _, err := io.ReadFull(r, frame[12:]); err != nil {
				return
			}
		}
		select {
		case s.frames <- Frame{Conn: id, Data: frame}:
		default:
			s.log.Warnf("ipc: frame backlog full, dropping connection %d", id)
			return
		}
	}
}

func (s *Server) drop(id model.ConnID, c net.Conn) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	c.Close()
	select {
	case s.disconnects <- id:
	default:
		s.log.Warnf("ipc: disconnect backlog full, dropping notice for %d", id)
	}
}

// Write sends a framed response/notification to the given connection.
// A write to a connection that has already dropped is reported as an
// error but is otherwise harmless (the client is gone).
func (s *Server) Write(id model.ConnID, frame []byte) error {
	s.mu.Lock()
	c, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("ipc: connection %d not active", id)
	}
	_, err := c.Write(frame)
	return err
}

// Close stops accepting new connections; already-open connections are
// left to the caller (normally closed as part of process shutdown).
func (s *Server) Close() error { return s.listener.Close() }
