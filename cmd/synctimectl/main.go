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

// Command synctimectl is the inspection and control companion to synctimed:
// it reads persisted instance snapshots and sends raw verbs to the control
// socket.
package main

import "github.com/Xilinx-CNS/sfptpd-go/cmd/synctimectl/cmd"

func main() {
	cmd.Execute()
}
