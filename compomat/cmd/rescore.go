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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/shenwei356/compomat/compomat/align"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/shenwei356/compomat/compomat/rescore"
	"github.com/spf13/cobra"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Re-extend and re-score alignment hits with adjusted matrices",
	Long: `Re-extend and re-score alignment hits with adjusted matrices

For every query and subject pair in the hit tables, the score matrix is
adjusted to the compositions of the two sequences (see "compomat adjust"),
and each hit is re-aligned with the new matrix in its region widened by
-w/--ext-window residues on both sides.

Hits of pairs with no new matrix are output unchanged. Otherwise, hits
failing to be re-extended are dropped, redundant hits (contained in or
sharing ends with a higher scoring hit) are removed unless --keep-redundant
is given, and E-values and bit scores are computed from --lambda and --k.

Input hit table (tab-delimited, with a header line, 1-based positions):
  query, subject, qstart, qend, sstart, send, score

Output (tab-delimited):
  1.  query,     query sequence ID.
  2.  subject,   subject sequence ID.
  3.  qstart,    start position in the query (1-based).
  4.  qend,      end position in the query (1-based).
  5.  sstart,    start position in the subject (1-based).
  6.  send,      end position in the subject (1-based).
  7.  score,     alignment score.
  8.  alen,      aligned length.
  9.  matches,   number of identical residues.
  10. gaps,      number of gaps.
  11. evalue,    expect value.
  12. bitscore,  bit score.
  13. mode,      adjustment mode.
  14. outcome,   adjustment outcome.

Attentions:
  1. Sequence files should be (gzipped) FASTA.
  2. Pairs with sequences not found in the sequence files are not adjusted.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------

		config, err := getConfig(cmd, opt.Config)
		checkError(err)

		queryFile := getFlagString(cmd, "query")
		if queryFile == "" {
			checkError(fmt.Errorf("flag -q/--query needed"))
		}
		subjectFiles := getFlagStringSlice(cmd, "subject")
		if len(subjectFiles) == 0 {
			checkError(fmt.Errorf("flag -s/--subject needed"))
		}
		outFile := getFlagString(cmd, "out-file")
		alignFile := getFlagString(cmd, "align-file")

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("compomat v%s", VERSION)
			log.Info()
		}

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if len(files) == 1 && isStdin(files[0]) {
			if isStdin(queryFile) {
				checkError(fmt.Errorf("query sequences and hits can not be both read from stdin"))
			}
			if outputLog {
				log.Info("no hit tables given, reading from stdin")
			}
		}

		outFileClean := filepath.Clean(outFile)
		for _, file := range files {
			if !isStdin(file) && filepath.Clean(file) == outFileClean {
				checkError(fmt.Errorf("out file should not be one of the input file"))
			}
		}

		// ---------------------------------------------------------------
		// sequences and hits

		queries, err := readProteins(queryFile)
		checkError(err)
		subjects, err := readProteins(subjectFiles...)
		checkError(err)

		id2query := proteinMap(queries)
		id2subject := proteinMap(subjects)

		pairs, nHits, err := readHitTables(files...)
		checkError(err)

		if outputLog {
			log.Infof("%s query and %s subject sequences loaded",
				humanize.Comma(int64(len(id2query))), humanize.Comma(int64(len(id2subject))))
			log.Infof("%s hits of %s pairs loaded", humanize.Comma(int64(nHits)), humanize.Comma(int64(len(pairs))))
		}

		// ---------------------------------------------------------------
		// engine

		var base *matrix.ScoreMatrix
		engine, err := adjust.NewEngine(config.Matrix, config.engineOptions())
		if err != nil {
			if !errors.Is(err, matrix.ErrUnsupportedMatrix) {
				checkError(err)
			}
			if outputLog {
				log.Warningf("%s, hits will be output unchanged", err)
			}
			engine = nil
		} else {
			base = engine.Matrix()
		}

		if alignFile != "" && base == nil {
			checkError(fmt.Errorf("alignments can not be written with an unsupported matrix: %s", config.Matrix))
		}

		ext := rescore.NewAlignExtender(config.alignOptions(), config.ExtWindow)
		integrator, err := rescore.NewIntegrator(engine, ext, config.rescoreOptions())
		checkError(err)

		alignOptions := config.alignOptions()
		alignOptions.SaveAlignments = true
		poolAligner := &sync.Pool{New: func() interface{} {
			return align.NewAligner(alignOptions)
		}}

		// ---------------------------------------------------------------
		// output

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		var outfhA *bufioWriter
		if alignFile != "" {
			outfhA, err = newBufioWriter(alignFile, opt.CompressionLevel)
			checkError(err)
			defer outfhA.Close()
		}

		fmt.Fprintf(outfh, "query\tsubject\tqstart\tqend\tsstart\tsend\tscore\talen\tmatches\tgaps\tevalue\tbitscore\tmode\toutcome\n")

		if outputLog {
			log.Info()
			log.Infof("rescoring hits with %d threads ...", opt.NumCPUs)
		}

		timeStart1 := time.Now()
		var total int
		var speed float64 // pairs per second

		printResult := func(r *pairResult) {
			total++
			if verbose && (total&127 == 0 || total == len(pairs)) {
				speed = float64(total) / time.Since(timeStart1).Seconds()
				fmt.Fprintf(os.Stderr, "processed pairs: %d/%d, speed: %.1f pairs per second\r", total, len(pairs), speed)
			}

			mode, outcome := "none", "unadjusted"
			if a := r.result.Adjustment; a != nil {
				mode, outcome = a.Mode.String(), a.Outcome.String()
			}
			for _, h := range r.result.Hits {
				fmt.Fprintf(outfh, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2e\t%.1f\t%s\t%s\n",
					r.pair.Query, r.pair.Subject, h.QBegin+1, h.QEnd+1, h.SBegin+1, h.SEnd+1,
					h.Score, h.AlignLen, h.Matches, h.Gaps, h.Evalue, h.BitScore, mode, outcome)
			}
			if outfhA != nil && r.alignments != nil {
				outfhA.Write(r.alignments.Bytes())
				poolBuffer.Put(r.alignments)
			}
		}

		// outputter, in the order of pairs
		ch := make(chan *pairResult, opt.NumCPUs)
		done := make(chan int)
		go func() {
			buf := make(map[int]*pairResult, 128)
			var id int
			for r := range ch {
				if r.id != id {
					buf[r.id] = r
					continue
				}
				printResult(r)
				id++
				for {
					r2, ok := buf[id]
					if !ok {
						break
					}
					delete(buf, id)
					printResult(r2)
					id++
				}
			}
			done <- 1
		}()

		var wg sync.WaitGroup
		tokens := make(chan int, opt.NumCPUs)
		var missing int

		for i, p := range pairs {
			q, okQ := id2query[p.Query]
			s, okS := id2subject[p.Subject]
			if !okQ || !okS {
				missing++
				if outputLog && missing <= 10 {
					log.Warningf("sequences of pair %s vs %s not found", p.Query, p.Subject)
				}
			}

			tokens <- 1
			wg.Add(1)
			go func(id int, p *PairHits, q, s *Protein) {
				defer func() {
					<-tokens
					wg.Done()
				}()

				pair := &rescore.Pair{
					QueryID:   p.Query,
					SubjectID: p.Subject,
					Hits:      p.Hits,
				}
				if q != nil && s != nil {
					pair.Query, pair.QueryComposition = q.Seq, q.Comp
					pair.Subject, pair.SubjectComposition = s.Seq, s.Comp
				}

				r, err := integrator.Process(pair)
				checkError(err)

				result := &pairResult{id: id, pair: p, result: r}
				if outfhA != nil && q != nil && s != nil {
					m := base
					if r.Adjusted() {
						m = r.Adjustment.Matrix
					}
					alg := poolAligner.Get().(*align.Aligner)
					result.alignments = poolBuffer.Get().(*bytes.Buffer)
					result.alignments.Reset()
					formatAlignments(result.alignments, q, s, r, m, alg)
					poolAligner.Put(alg)
				}

				ch <- result
			}(i, p, q, s)
		}
		wg.Wait()
		close(ch)
		<-done

		if outputLog {
			if verbose {
				fmt.Fprintf(os.Stderr, "\n")
			}

			st := integrator.Stats().Summary()
			log.Info()
			log.Infof("processed pairs: %s", humanize.Comma(int64(st.Pairs)))
			log.Infof("  unadjusted: %s, rescaled: %s, converged: %s, fell back: %s",
				humanize.Comma(int64(st.Unadjusted)), humanize.Comma(int64(st.Rescaled)),
				humanize.Comma(int64(st.Converged)), humanize.Comma(int64(st.FellBack)))
			if missing > 0 {
				log.Warningf("  %s pairs with sequences not found", humanize.Comma(int64(missing)))
			}
			log.Infof("input hits: %s, output hits: %s", humanize.Comma(int64(st.Hits)), humanize.Comma(int64(st.Output)))
			log.Infof("  dropped: %s, redundant: %s, filtered by E-value: %s",
				humanize.Comma(int64(st.Dropped)), humanize.Comma(int64(st.Purged)), humanize.Comma(int64(st.Filtered)))
			if outFile != "-" {
				log.Infof("rescored hits saved to: %s", outFile)
			}
			if alignFile != "" {
				log.Infof("alignments saved to: %s", alignFile)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(rescoreCmd)

	rescoreCmd.Flags().StringP("query", "q", "",
		formatFlagUsage(`Query sequence file in (gzipped) FASTA format ("-" for stdin).`))

	rescoreCmd.Flags().StringSliceP("subject", "s", []string{},
		formatFlagUsage(`Subject sequence file(s) in (gzipped) FASTA format. Multiple values are supported in a comma-separated format, or by giving the flag multiple times.`))

	rescoreCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports and recommends a ".gz" suffix ("-" for stdout).`))

	rescoreCmd.Flags().StringP("align-file", "a", "",
		formatFlagUsage(`Write alignments of rescored hits in a blast-style format to this file, supports a ".gz" suffix.`))

	addEngineFlags(rescoreCmd, true)

	rescoreCmd.SetUsageTemplate(usageTemplate("-q <query.fasta> -s <subject.fasta> [hits.tsv ...] [-o out.tsv.gz]"))
}

type pairResult struct {
	id         int
	pair       *PairHits
	result     *rescore.Result
	alignments *bytes.Buffer
}

func proteinMap(proteins []*Protein) map[string]*Protein {
	m := make(map[string]*Protein, len(proteins))
	for _, p := range proteins {
		if _, ok := m[p.ID]; ok {
			log.Warningf("duplicated sequence ID, only the first one is used: %s", p.ID)
			continue
		}
		m[p.ID] = p
	}
	return m
}

var poolBuffer = &sync.Pool{New: func() interface{} {
	return bytes.NewBuffer(make([]byte, 0, 64<<10))
}}
