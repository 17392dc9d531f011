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

package gps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGGAWithFix(t *testing.T) {
	fix, ok := parseSentence("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	require.True(t, ok)
	require.True(t, fix.valid)
	require.Equal(t, 8, fix.numSats)
}

func TestParseGGANoFix(t *testing.T) {
	fix, ok := parseSentence("$GPGGA,123519,,,,,0,00,,,,,,,*6E")
	require.True(t, ok)
	require.False(t, fix.valid)
}

func TestParseRMCActive(t *testing.T) {
	fix, ok := parseSentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A")
	require.True(t, ok)
	require.True(t, fix.valid)
}

func TestParseRMCVoid(t *testing.T) {
	fix, ok := parseSentence("$GPRMC,123519,V,,,,,,,,,,*53")
	require.True(t, ok)
	require.False(t, fix.valid)
}

func TestParseSentenceUnknownType(t *testing.T) {
	_, ok := parseSentence("$GPGSV,3,1,12*75")
	require.False(t, ok)
}

func TestParseSentenceTooShort(t *testing.T) {
	_, ok := parseSentence("$X")
	require.False(t, ok)
}
