// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package matrix provides the compiled-in amino acid score matrices, their
// background frequencies and the joint probabilities derived from them.
package matrix

// Alphabet is the extended protein alphabet. The first TrueAA letters are
// the true amino acids, in the order used by every matrix of the catalog,
// followed by the ambiguity codes and the stop symbol.
const Alphabet = "ARNDCQEGHILKMFPSTWYVBZXUO*"

const (
	// TrueAA is the number of true amino acids.
	TrueAA = 20
	// Size is the size of the extended alphabet.
	Size = len(Alphabet)
)

// Indexes of the ambiguity codes in Alphabet.
const (
	IdxB    = TrueAA + iota // D or N
	IdxZ                    // E or Q
	IdxX                    // any
	IdxU                    // selenocysteine
	IdxO                    // pyrrolysine
	IdxStop                 // *
)

var letter2idx [256]int8

func init() {
	for i := range letter2idx {
		letter2idx[i] = -1
	}
	var c byte
	for i := 0; i < len(Alphabet); i++ {
		c = Alphabet[i]
		letter2idx[c] = int8(i)
		if c >= 'A' && c <= 'Z' {
			letter2idx[c+32] = int8(i) // lower case
		}
	}
	// J (I or L) is treated as X
	letter2idx['J'] = IdxX
	letter2idx['j'] = IdxX
}

// Index returns the index of a residue in Alphabet, or -1 for
// an unrecognized byte. Lower case letters are accepted.
func Index(c byte) int {
	return int(letter2idx[c])
}
