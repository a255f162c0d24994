// Copyright 2024 The burn-hydra Authors
// This file is part of the burn-hydra library.
//
// The burn-hydra library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The burn-hydra library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the burn-hydra library. If not, see <http://www.gnu.org/licenses/>.

package transport

import "math/big"

// LimbSize is the wire size of one limb in bytes.
const LimbSize = 8

// LimbCount returns the number of limbs x occupies on the wire. Zero
// serializes to zero limbs.
func LimbCount(x *big.Int) int {
	return (x.BitLen() + 8*LimbSize - 1) / (8 * LimbSize)
}

// AppendLimbs appends x as little-endian 64-bit limbs to dst. Because
// both the limb order and the bytes within each limb are little-endian,
// the encoding is the little-endian byte string of |x|, zero-padded up to
// a limb boundary.
func AppendLimbs(dst []byte, x *big.Int) []byte {
	be := x.Bytes()
	frame := make([]byte, LimbCount(x)*LimbSize)
	for i, b := range be {
		frame[len(be)-1-i] = b
	}
	return append(dst, frame...)
}

// SetFromLimbs sets x from a little-endian limb frame produced by
// AppendLimbs. An empty frame decodes to zero.
func SetFromLimbs(x *big.Int, frame []byte) *big.Int {
	be := make([]byte, len(frame))
	for i, b := range frame {
		be[len(frame)-1-i] = b
	}
	return x.SetBytes(be)
}
