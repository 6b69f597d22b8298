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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Adjust the score matrix for pairs of protein sequences",
	Long: `Adjust the score matrix for pairs of protein sequences

For every query and subject sequence pair, the adjustment mode is chosen
from the compositions and lengths of the two sequences, and an adjusted
matrix is computed.

Adjustment policies (-M/--mode):
  none          no adjustment.
  scale         scale the matrix by the ratio of the ungapped lambdas.
  conditional   scale the matrix for sequences with very different
                compositions and lengths, or optimize a new one.
  force         always optimize a new matrix.

Outcomes:
  unadjusted    the base matrix is used as chosen.
  rescaled      the base matrix is scaled.
  converged     a new matrix is optimized.
  fell-back     the optimization failed and the base matrix is used.

Output (tab-delimited):
  1.  query,        query sequence ID.
  2.  qlen,         query sequence length.
  3.  subject,      subject sequence ID.
  4.  slen,         subject sequence length.
  5.  mode,         adjustment mode.
  6.  outcome,      adjustment outcome.
  7.  iterations,   Newton iterations of the optimization.
  8.  lambdaRatio,  scaling ratio of the scaled matrix.
  9.  relEntropy,   target relative entropy of the optimized matrix.
  10. fingerprint,  hash value of the scores of the matrix.
  11. note,         reason of no adjustment or the error of fell-back.

Attentions:
  1. Input format should be (gzipped) FASTA.
  2. Subject files can be given as positional arguments, via -X/--infile-list,
     or found in a directory with --in-dir.
  3. With --print-matrix, each matrix is written after the row of the pair.

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
		outFile := getFlagString(cmd, "out-file")
		printMatrix := getFlagBool(cmd, "print-matrix")
		plotFile := getFlagString(cmd, "plot")

		inDir := getFlagString(cmd, "in-dir")
		reFileStr := getFlagString(cmd, "file-regexp")
		var reFile *regexp.Regexp
		if inDir != "" {
			if !regexp.MustCompile(`^\(\?i\)`).MatchString(reFileStr) {
				reFileStr = reIgnoreCaseStr + reFileStr
			}
			reFile, err = regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))
		}

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("compomat v%s", VERSION)
			log.Info()
		}

		// ---------------------------------------------------------------
		// input files

		var files []string
		if inDir != "" {
			isDir, err := pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}

			if outputLog {
				log.Infof("searching subject files in %s ...", inDir)
			}
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			if len(files) == 0 {
				checkError(fmt.Errorf("no files found in %s", inDir))
			}
		} else {
			files = getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
			if len(files) == 1 && isStdin(files[0]) && isStdin(queryFile) {
				checkError(fmt.Errorf("query and subject sequences can not be both read from stdin"))
			}
		}

		outFileClean := filepath.Clean(outFile)
		for _, file := range files {
			if !isStdin(file) && filepath.Clean(file) == outFileClean {
				checkError(fmt.Errorf("out file should not be one of the input file"))
			}
		}
		if !isStdin(queryFile) && filepath.Clean(queryFile) == outFileClean {
			checkError(fmt.Errorf("out file should not be the query file"))
		}

		queries, err := readProteins(queryFile)
		checkError(err)
		subjects, err := readProteins(files...)
		checkError(err)

		npairs := len(queries) * len(subjects)
		if outputLog {
			log.Infof("%s query and %s subject sequences, %s pairs",
				humanize.Comma(int64(len(queries))), humanize.Comma(int64(len(subjects))),
				humanize.Comma(int64(npairs)))
		}

		// ---------------------------------------------------------------
		// engine

		engine, err := adjust.NewEngine(config.Matrix, config.engineOptions())
		if err != nil {
			if !errors.Is(err, matrix.ErrUnsupportedMatrix) {
				checkError(err)
			}
			if outputLog {
				log.Warningf("%s, no adjustment will be made", err)
			}
			engine = nil
		}

		// ---------------------------------------------------------------
		// adjusting

		if outputLog {
			log.Info()
			log.Infof("adjusting score matrices with %d threads ...", opt.NumCPUs)
		}

		results := make([]*adjust.Adjustment, npairs)

		var pbs *mpb.Progress
		var bar *mpb.Bar
		if verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(npairs),
				mpb.PrependDecorators(
					decor.Name("processed pairs: ", decor.WC{W: len("processed pairs: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 3),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
		}

		var g errgroup.Group
		g.SetLimit(opt.NumCPUs)
		for i, q := range queries {
			for j, s := range subjects {
				k := i*len(subjects) + j
				q, s := q, s // per-iteration copies (go.mod targets go 1.21)
				g.Go(func() error {
					startTime := time.Now()

					var a *adjust.Adjustment
					if engine == nil {
						a = &adjust.Adjustment{
							Mode:        adjust.NoAdjustment{Reason: "unsupported matrix"},
							Outcome:     adjust.Unadjusted,
							LambdaRatio: 1,
						}
					} else {
						var err error
						a, err = engine.Adjust(q.Comp, s.Comp)
						if err != nil {
							return errors.Wrapf(err, "%s vs %s", q.ID, s.ID)
						}
					}
					results[k] = a

					if verbose {
						bar.EwmaIncrBy(1, time.Since(startTime))
					}
					return nil
				})
			}
		}
		err = g.Wait()
		if verbose {
			if err != nil {
				bar.Abort(true)
			}
			pbs.Wait()
		}
		checkError(err)

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

		fmt.Fprintf(outfh, "query\tqlen\tsubject\tslen\tmode\toutcome\titerations\tlambdaRatio\trelEntropy\tfingerprint\tnote\n")

		counts := make(map[adjust.Outcome]int, 4)
		var plotted bool
		var base *matrix.ScoreMatrix
		if engine != nil {
			base = engine.Matrix()
		}
		var fingerprint, note string
		for i, q := range queries {
			for j, s := range subjects {
				a := results[i*len(subjects)+j]
				counts[a.Outcome]++

				fingerprint = "-"
				if a.Matrix != nil {
					fingerprint = fmt.Sprintf("%016x", a.Matrix.Fingerprint())
				}
				note = "-"
				if mode, ok := a.Mode.(adjust.NoAdjustment); ok {
					note = mode.Reason
				} else if a.Err != nil {
					note = a.Err.Error()
				}

				fmt.Fprintf(outfh, "%s\t%d\t%s\t%d\t%s\t%s\t%d\t%.6f\t%.6f\t%s\t%s\n",
					q.ID, len(q.Seq), s.ID, len(s.Seq), a.Mode, a.Outcome,
					a.Iterations, a.LambdaRatio, a.RelEntropy, fingerprint, note)

				if printMatrix && a.Matrix != nil {
					checkError(a.Matrix.Write(outfh))
				}

				if plotFile != "" && !plotted && a.Adjusted() {
					checkError(plotScoreChanges(base, a.Matrix,
						fmt.Sprintf("%s: %s vs %s", a.Matrix.Name, q.ID, s.ID), plotFile))
					plotted = true
					if outputLog {
						log.Infof("heat map of score changes of %s vs %s saved to %s", q.ID, s.ID, plotFile)
					}
				}
			}
		}

		if outputLog {
			log.Info()
			log.Infof("%s pairs: %d unadjusted, %d rescaled, %d converged, %d fell back",
				humanize.Comma(int64(npairs)), counts[adjust.Unadjusted], counts[adjust.Rescaled],
				counts[adjust.Converged], counts[adjust.FellBack])
			if plotFile != "" && !plotted {
				log.Warningf("no adjusted matrix to plot")
			}
			if outFile != "-" {
				log.Infof("results saved to: %s", outFile)
			}
		}
	},
}

var reIgnoreCaseStr = "(?i)"

func init() {
	RootCmd.AddCommand(adjustCmd)

	adjustCmd.Flags().StringP("query", "q", "",
		formatFlagUsage(`Query sequence file in (gzipped) FASTA format ("-" for stdin).`))

	adjustCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing subject FASTA files. Directory symlinks are followed.`))

	adjustCmd.Flags().StringP("file-regexp", "r", `\.(f[a]{0,2}|fasta|fas|faa)(\.gz|\.xz|\.zst|\.bz2)?$`,
		formatFlagUsage(`Regular expression for matching subject files in -I/--in-dir, case ignored.`))

	adjustCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	adjustCmd.Flags().BoolP("print-matrix", "", false,
		formatFlagUsage(`Print the matrix of each pair after its row.`))

	adjustCmd.Flags().StringP("plot", "", "",
		formatFlagUsage(`Plot the heat map of score changes of the first adjusted pair to this file, supported formats: png, svg, pdf, eps, jpg, tif.`))

	addEngineFlags(adjustCmd, false)

	adjustCmd.SetUsageTemplate(usageTemplate("-q <query.fasta> [subject.fasta ...|-I <dir>] [-o out.tsv.gz]"))
}
