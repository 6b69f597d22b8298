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
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/shenwei356/compomat/compomat/rescore"
	"github.com/shenwei356/xopen"
)

// PairHits is the hits of a query and subject pair in a hit table.
type PairHits struct {
	Query   string
	Subject string
	Hits    []*rescore.Hit
}

// hitTableColumns is the number of columns of input hit tables:
// query, subject, qstart, qend, sstart, send, score.
const hitTableColumns = 7

// readHitTables reads tab-delimited hit tables with a header line,
// positions are 1-based. Hits are grouped by pairs, in the order of
// their first appearance.
func readHitTables(files ...string) ([]*PairHits, int, error) {
	pairs := make([]*PairHits, 0, 1024)
	pair2idx := make(map[[2]string]int, 1024)

	buf := make([]byte, 1<<20)
	items := make([]string, hitTableColumns)
	var nums [5]int
	var line string
	var nHits int
	for _, file := range files {
		fh, err := xopen.Ropen(file)
		if err != nil {
			return nil, 0, fmt.Errorf("read hit table %s: %s", file, err)
		}

		headerLine := true
		var lineNum int
		scanner := bufio.NewScanner(fh)
		scanner.Buffer(buf, 64<<20)
		for scanner.Scan() {
			lineNum++
			line = strings.TrimRight(scanner.Text(), "\r\n")
			if line == "" {
				continue
			}
			if headerLine {
				headerLine = false
				continue
			}

			stringSplitNByByte(line, '\t', hitTableColumns, &items)
			if len(items) < hitTableColumns {
				fh.Close()
				return nil, 0, fmt.Errorf("%s: line %d: %d columns expected, %d given",
					file, lineNum, hitTableColumns, len(items))
			}
			for i := 0; i < 5; i++ {
				s := items[i+2]
				if i == 4 { // extra columns and the fraction part of scores are ignored
					if k := strings.IndexAny(s, "\t."); k >= 0 {
						s = s[:k]
					}
				}
				s = strings.TrimSpace(s)
				nums[i], err = strconv.Atoi(s)
				if err != nil {
					fh.Close()
					return nil, 0, fmt.Errorf("%s: line %d: invalid number: %s", file, lineNum, items[i+2])
				}
			}

			h := &rescore.Hit{
				QueryID:   items[0],
				SubjectID: items[1],
				QBegin:    nums[0] - 1,
				QEnd:      nums[1] - 1,
				SBegin:    nums[2] - 1,
				SEnd:      nums[3] - 1,
				Score:     nums[4],
			}

			key := [2]string{h.QueryID, h.SubjectID}
			idx, ok := pair2idx[key]
			if !ok {
				idx = len(pairs)
				pair2idx[key] = idx
				pairs = append(pairs, &PairHits{Query: h.QueryID, Subject: h.SubjectID})
			}
			pairs[idx].Hits = append(pairs[idx].Hits, h)
			nHits++
		}
		if err = scanner.Err(); err != nil {
			fh.Close()
			return nil, 0, fmt.Errorf("read hit table %s: %s", file, err)
		}
		if err = fh.Close(); err != nil {
			return nil, 0, err
		}
	}

	return pairs, nHits, nil
}
