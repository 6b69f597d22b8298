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
	"io"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/compomat/compomat/adjust"
)

// Protein is a protein sequence with its residue composition.
type Protein struct {
	ID   string
	Seq  []byte
	Comp *adjust.Composition
}

// readProteins reads all protein sequences in (gzipped) FASTA files.
func readProteins(files ...string) ([]*Protein, error) {
	seq.ValidateSeq = false

	proteins := make([]*Protein, 0, 1024)
	var record *fastx.Record
	for _, file := range files {
		fastxReader, err := fastx.NewReader(seq.Protein, file, "")
		if err != nil {
			return nil, errors.Wrap(err, file)
		}

		for {
			record, err = fastxReader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				fastxReader.Close()
				return nil, errors.Wrap(err, file)
			}

			s := append([]byte(nil), record.Seq.Seq...)
			proteins = append(proteins, &Protein{
				ID:   string(record.ID),
				Seq:  s,
				Comp: adjust.NewComposition(s),
			})
		}
		fastxReader.Close()
	}
	return proteins, nil
}
