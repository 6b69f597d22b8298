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

package cmd

import (
	"bytes"
	"fmt"

	"github.com/shenwei356/compomat/compomat/align"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/shenwei356/compomat/compomat/rescore"
)

// alignmentWidth is the number of alignment columns per row.
const alignmentWidth = 60

// formatAlignments writes the hits of a pair with their alignments in
// a blast-style format. Alignments are recomputed within the hit regions
// with the matrix of the pair.
func formatAlignments(buf *bytes.Buffer, q, s *Protein, r *rescore.Result,
	m *matrix.ScoreMatrix, alg *align.Aligner) {

	fmt.Fprintf(buf, "Query = %s\nLength = %d\n\n", q.ID, len(q.Seq))
	fmt.Fprintf(buf, ">%s\nLength = %d\n\n", s.ID, len(s.Seq))

	mode, outcome := "none", "unadjusted"
	if r.Adjustment != nil {
		mode, outcome = r.Adjustment.Mode.String(), r.Adjustment.Outcome.String()
	}
	fmt.Fprintf(buf, "Matrix = %s, mode = %s, outcome = %s\n\n", m.Name, mode, outcome)

	var qseq, sseq, mid []byte
	var qs, ss int
	var rows, i, j, end int
	var qstart, qend, sstart, send int
	var posW int
	var fA, fQ, fT string
	for k, h := range r.Hits {
		// hits of unadjusted pairs are not checked
		if h.QBegin < 0 || h.QBegin > h.QEnd || h.QEnd >= len(q.Seq) ||
			h.SBegin < 0 || h.SBegin > h.SEnd || h.SEnd >= len(s.Seq) {
			continue
		}
		a := alg.Local(q.Seq[h.QBegin:h.QEnd+1], s.Seq[h.SBegin:h.SEnd+1], m)
		if a.Score == 0 {
			align.RecycleAlignResult(a)
			continue
		}
		qs, ss = h.QBegin+a.QBegin, h.SBegin+a.TBegin
		qseq, mid, sseq = a.AlignA, a.AlignM, a.AlignB

		fmt.Fprintf(buf, " HSP #%d\n", k+1)
		fmt.Fprintf(buf, " Score = %.1f bits (%d), Expect = %.2e\n", h.BitScore, h.Score, h.Evalue)
		fmt.Fprintf(buf, " Identities = %d/%d (%.1f%%), Gaps = %d/%d\n",
			a.Matches, a.Len, float64(a.Matches)/float64(a.Len)*100, a.Gaps, a.Len)
		fmt.Fprintf(buf, " Query range = %d-%d, Subject range = %d-%d\n\n",
			h.QBegin+1, h.QEnd+1, h.SBegin+1, h.SEnd+1)

		posW = len(fmt.Sprintf("%d", max(h.QEnd+1, h.SEnd+1)))
		fQ = fmt.Sprintf("Query  %%-%dd  %%s  %%d\n", posW)
		fA = fmt.Sprintf("       %%%ds  %%s\n", posW)
		fT = fmt.Sprintf("Sbjct  %%-%dd  %%s  %%d\n", posW)

		rows = (len(qseq) + alignmentWidth - 1) / alignmentWidth
		qstart, sstart = qs+1, ss+1
		for i = 0; i < rows; i++ {
			j = i * alignmentWidth
			end = min(j+alignmentWidth, len(qseq))

			qend = qstart + end - j - ngaps(qseq[j:end]) - 1
			send = sstart + end - j - ngaps(sseq[j:end]) - 1

			fmt.Fprintf(buf, fQ, qstart, qseq[j:end], qend)
			fmt.Fprintf(buf, fA, " ", mid[j:end])
			fmt.Fprintf(buf, fT, sstart, sseq[j:end], send)
			buf.WriteByte('\n')

			qstart, sstart = qend+1, send+1
		}
		buf.WriteByte('\n')

		align.RecycleAlignResult(a)
	}
}

func ngaps(s []byte) int {
	return bytes.Count(s, []byte{'-'})
}
