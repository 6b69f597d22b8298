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
	"strings"

	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/spf13/cobra"
)

var matricesCmd = &cobra.Command{
	Use:   "matrices",
	Short: "List supported score matrices or print one",
	Long: `List supported score matrices or print one

Output (tab-delimited, without -n/--name):
  1. matrix,      matrix name.
  2. lambda,      ungapped lambda under its background frequencies.
  3. relEntropy,  relative entropy of the joint probabilities (nats).

With -n/--name, the integer matrix over the alphabet:
  ` + matrix.Alphabet + `
is printed, or the joint probabilities of the 20 amino acids with
-J/--joint, or the background frequencies with -b/--background.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		outFile := getFlagString(cmd, "out-file")
		name := getFlagString(cmd, "name")
		joint := getFlagBool(cmd, "joint")
		background := getFlagBool(cmd, "background")

		if name == "" && (joint || background) {
			checkError(fmt.Errorf("flag -n/--name needed for -J/--joint and -b/--background"))
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		if name == "" {
			fmt.Fprintf(outfh, "matrix\tlambda\trelEntropy\n")
			for _, name := range matrix.Names() {
				f, err := matrix.Lookup(name)
				checkError(err)
				fmt.Fprintf(outfh, "%s\t%.6f\t%.6f\n", name, f.Lambda(), f.RelEntropy())
			}
			return
		}

		if !matrix.Supported(name) {
			checkError(fmt.Errorf("unsupported matrix: %s, available: %s",
				name, strings.Join(matrix.Names(), ", ")))
		}

		switch {
		case joint:
			probs, rowSums, _, err := matrix.JointProbabilities(name)
			checkError(err)

			outfh.WriteString(" ")
			for j := 0; j < matrix.TrueAA; j++ {
				fmt.Fprintf(outfh, "\t%c", matrix.Alphabet[j])
			}
			outfh.WriteString("\tsum\n")
			for i, row := range probs {
				outfh.WriteByte(matrix.Alphabet[i])
				for _, p := range row {
					fmt.Fprintf(outfh, "\t%.6f", p)
				}
				fmt.Fprintf(outfh, "\t%.6f\n", rowSums[i])
			}
		case background:
			freqs, err := matrix.BackgroundFrequencies(name)
			checkError(err)
			for i, p := range freqs {
				fmt.Fprintf(outfh, "%c\t%.6f\n", matrix.Alphabet[i], p)
			}
		default:
			m, err := matrix.Base(name)
			checkError(err)
			checkError(m.Write(outfh))
		}
	},
}

func init() {
	RootCmd.AddCommand(matricesCmd)

	matricesCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	matricesCmd.Flags().StringP("name", "n", "",
		formatFlagUsage(`Matrix name (case-sensitive).`))

	matricesCmd.Flags().BoolP("joint", "J", false,
		formatFlagUsage(`Print the joint probabilities of the matrix.`))

	matricesCmd.Flags().BoolP("background", "b", false,
		formatFlagUsage(`Print the background frequencies of the matrix.`))

	matricesCmd.SetUsageTemplate(usageTemplate("[-n <matrix name> [-J|-b]]"))
}
