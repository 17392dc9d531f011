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

package control

import (
	"context"
	"net"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Xilinx-CNS/sfptpd-go/engine"
)

// maxDatagram bounds one command packet; spec §4.5's longest command
// (pid_adjust with all fields) is well under this.
const maxDatagram = 512

// Server is the control-surface task: a Unix datagram socket whose
// datagrams each parse into one engine.Command, spec §4.5.
type Server struct {
	path     string
	commands chan<- engine.Command
}

// New creates a control-surface task listening at path, posting parsed
// commands to commands. The caller owns commands' receive side (normally
// the Engine itself).
func New(path string, commands chan<- engine.Command) *Server {
	return &Server{path: path, commands: commands}
}

// Run listens until ctx is cancelled, per spec §5's task model.
func (s *Server) Run(ctx context.Context) {
	_ = os.Remove(s.path)
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: s.path, Net: "unixgram"})
	if err != nil {
		log.Errorf("control: listen %s: %v", s.path, err)
		return
	}
	defer conn.Close()
	defer os.Remove(s.path)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFromUnix(buf)
		if err != nil {
			select {
			case <-done:
				return
			default:
				log.Warnf("control: read: %v", err)
				continue
			}
		}
		cmd, err := Parse(string(buf[:n]))
		if err != nil {
			log.Warnf("control: %v", err)
			continue
		}
		select {
		case s.commands <- cmd:
		default:
			log.Warnf("control: engine command pool exhausted, dropping %q", string(buf[:n]))
		}
	}
}
