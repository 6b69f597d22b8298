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
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the options in TOML format",
	Long: `Print the options in TOML format

The default options are printed, or the ones read from --config,
with values of flags given in the command line. The output can be
edited and passed to "adjust" and "rescore" via --config.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		c, err := getConfig(cmd, opt.Config)
		checkError(err)

		data, err := c.Marshal()
		checkError(err)
		_, err = os.Stdout.Write(data)
		checkError(err)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)

	addEngineFlags(configCmd, true)

	configCmd.SetUsageTemplate(usageTemplate(""))
}
