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

package chrony

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChronyFloatRoundTrip(t *testing.T) {
	cases := []struct {
		coef int32
		exp  int32
	}{
		{coef: 0, exp: 0},
		{coef: 1, exp: 0},
		{coef: -1, exp: 0},
		{coef: 1 << 20, exp: -25},
		{coef: -(1 << 20), exp: -25},
		{coef: (1 << 24) - 1, exp: 63},
		{coef: -(1 << 24), exp: -64},
		{coef: 12345, exp: -10},
		{coef: -12345, exp: 10},
	}

	for _, c := range cases {
		f := newChronyFloat(c.coef, c.exp)
		want := float64(c.coef) * math.Pow(2.0, float64(c.exp-floatCoefBits))
		require.InDelta(t, want, f.toFloat(), 1e-9*math.Max(1, math.Abs(want)))
	}
}

func TestChronyFloatNegativeExponentWraps(t *testing.T) {
	// exp=-1 forces the encoder's exp+128 branch; toFloat must unwrap the
	// top exponent bit back to the same negative value rather than reading
	// it as a large positive one.
	f := newChronyFloat(1, -1)
	require.Equal(t, math.Ldexp(1, -1-floatCoefBits), f.toFloat())

	f = newChronyFloat(1, 1)
	require.Equal(t, math.Ldexp(1, 1-floatCoefBits), f.toFloat())
}

func TestChronyFloatNegativeCoefficientWraps(t *testing.T) {
	// A negative coefficient sets the coefficient field's top bit; toFloat
	// must recover the sign rather than reading it as an unsigned value
	// near 2^24.
	f := newChronyFloat(-1, floatCoefBits)
	require.Equal(t, -1.0, f.toFloat())

	f = newChronyFloat(1, floatCoefBits)
	require.Equal(t, 1.0, f.toFloat())
}

func TestChronyFloatZero(t *testing.T) {
	require.Equal(t, 0.0, chronyFloat(0).toFloat())
}
