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

package cmd

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [exit|logrotate|stepclocks|dumptables|selectinstance=NAME|testmode=MODE[,ARG]*|pid_adjust=...]",
	Short: "Send one raw command to the control socket",
	Long:  "The control socket accepts one command per packet and never replies; dumptables' rendered table goes to synctimed's own log, not back here. Use `synctimectl status` to inspect state instead.",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := sendRun(rootSocketFlag, args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

func sendRun(socket, verb string) error {
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: socket, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("dialing %s: %w", socket, err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(verb)); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	return nil
}
