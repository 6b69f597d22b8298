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

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/shenwei356/compomat/compomat/align"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/shenwei356/compomat/compomat/rescore"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

// Config contains the options of the engine and rescoring,
// read from a TOML file and overridden by flags.
type Config struct {
	Matrix       string  `toml:"matrix"`
	Mode         string  `toml:"mode"`
	Rule         string  `toml:"rule"`
	RelEntropy   float64 `toml:"rel-entropy"`
	Pseudocounts float64 `toml:"pseudocounts"`
	Scale        float64 `toml:"scale"`

	GapOpen   int `toml:"gap-open"`
	GapExtend int `toml:"gap-extend"`
	ExtWindow int `toml:"ext-window"`

	MaxEvalue     float64 `toml:"max-evalue"`
	Lambda        float64 `toml:"lambda"`
	K             float64 `toml:"k"`
	KeepRedundant bool    `toml:"keep-redundant"`
}

// DefaultConfig is the default Config.
var DefaultConfig = Config{
	Matrix:       "BLOSUM62",
	Mode:         adjust.DefaultOptions.Policy.String(),
	Rule:         adjust.DefaultOptions.Rule.String(),
	RelEntropy:   adjust.DefaultOptions.RelEntropy,
	Pseudocounts: adjust.DefaultOptions.Pseudocounts,
	Scale:        adjust.DefaultOptions.Scale,

	GapOpen:   align.DefaultAlignOptions.GapOpen,
	GapExtend: align.DefaultAlignOptions.GapExtend,
	ExtWindow: 50,

	MaxEvalue: rescore.DefaultOptions.MaxEvalue,
	Lambda:    rescore.DefaultOptions.Karlin.Lambda,
	K:         rescore.DefaultOptions.Karlin.K,
}

// loadConfig reads a TOML file, keys not given keep the default values.
func loadConfig(file string) (*Config, error) {
	c := DefaultConfig

	file, err := homedir.Expand(file)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}

	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", file)
	}
	defer fh.Close()

	err = toml.NewDecoder(fh).DisallowUnknownFields().Decode(&c)
	if err != nil {
		var e *toml.StrictMissingError
		if errors.As(err, &e) {
			return nil, errors.Errorf("config: %s: unknown keys:\n%s", file, e.String())
		}
		return nil, errors.Wrapf(err, "config: %s", file)
	}

	if err = c.validate(); err != nil {
		return nil, errors.Wrapf(err, "config: %s", file)
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Matrix == "" {
		return fmt.Errorf("matrix name should not be empty")
	}
	mode, err := adjust.ParseCompoAdjustMode(c.Mode)
	if err != nil {
		return err
	}
	rule, err := adjust.ParseRelEntropyRule(c.Rule)
	if err != nil {
		return err
	}
	// the forced optimization always uses the user-specified target
	if mode == adjust.CompoForceFull && rule != adjust.UserSpecifiedRelEntropy {
		return fmt.Errorf("rule %q is only used by the conditional mode, mode %q always uses %q",
			c.Rule, c.Mode, adjust.UserSpecifiedRelEntropy)
	}
	if c.Pseudocounts < 0 {
		return fmt.Errorf("pseudocounts should be >= 0: %f", c.Pseudocounts)
	}
	if !(c.Scale > 0) {
		return fmt.Errorf("scale should be > 0: %f", c.Scale)
	}
	if c.GapOpen < 0 || c.GapExtend < 0 {
		return fmt.Errorf("gap penalties should be >= 0: %d, %d", c.GapOpen, c.GapExtend)
	}
	if c.ExtWindow < 0 {
		return fmt.Errorf("extension window should be >= 0: %d", c.ExtWindow)
	}
	return nil
}

// Marshal returns the TOML text of the config.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Supported tells whether the matrix can be adjusted.
func (c *Config) Supported() bool {
	return matrix.Supported(c.Matrix)
}

func (c *Config) engineOptions() *adjust.Options {
	policy, _ := adjust.ParseCompoAdjustMode(c.Mode)
	rule, _ := adjust.ParseRelEntropyRule(c.Rule)
	return &adjust.Options{
		Policy:       policy,
		Rule:         rule,
		RelEntropy:   c.RelEntropy,
		Pseudocounts: c.Pseudocounts,
		Scale:        c.Scale,
	}
}

func (c *Config) alignOptions() *align.AlignOptions {
	return &align.AlignOptions{
		GapOpen:   c.GapOpen,
		GapExtend: c.GapExtend,
	}
}

func (c *Config) rescoreOptions() *rescore.Options {
	o := &rescore.Options{
		MaxEvalue:     c.MaxEvalue,
		KeepRedundant: c.KeepRedundant,
	}
	if c.Lambda > 0 && c.K > 0 {
		o.Karlin = &rescore.KarlinParams{Lambda: c.Lambda, K: c.K}
	}
	return o
}

// addEngineFlags adds flags of the engine, and of rescoring if rescoring is true.
func addEngineFlags(cmd *cobra.Command, rescoring bool) {
	d := &DefaultConfig

	cmd.Flags().StringP("matrix", "m", d.Matrix,
		formatFlagUsage(`Score matrix, see "compomat matrices" for supported ones.`))
	cmd.Flags().StringP("mode", "M", d.Mode,
		formatFlagUsage(`Composition adjustment policy. Available values: none, scale, conditional, force.`))
	cmd.Flags().StringP("rule", "R", d.Rule,
		formatFlagUsage(`Relative entropy rule of the conditional policy. Available values: user, unconstrained, old-matrix-new-context, old-matrix-old-context.`))
	cmd.Flags().Float64P("rel-entropy", "H", d.RelEntropy,
		formatFlagUsage(`Target relative entropy (nats) of the adjusted matrix, <= 0 for the one of the base matrix.`))
	cmd.Flags().Float64P("pseudocounts", "p", d.Pseudocounts,
		formatFlagUsage(`Pseudocounts of the background frequencies added to sequence compositions.`))
	cmd.Flags().Float64P("scale", "", d.Scale,
		formatFlagUsage(`Scale of the scores of adjusted matrices.`))

	if !rescoring {
		return
	}

	cmd.Flags().IntP("gap-open", "", d.GapOpen,
		formatFlagUsage(`Gap open penalty.`))
	cmd.Flags().IntP("gap-extend", "", d.GapExtend,
		formatFlagUsage(`Gap extension penalty.`))
	cmd.Flags().IntP("ext-window", "w", d.ExtWindow,
		formatFlagUsage(`Residues added to both sides of a hit region for re-extension.`))
	cmd.Flags().Float64P("max-evalue", "e", d.MaxEvalue,
		formatFlagUsage(`Maximum E-value of rescored hits, <= 0 for no limit.`))
	cmd.Flags().Float64P("lambda", "", d.Lambda,
		formatFlagUsage(`Karlin-Altschul parameter lambda of the base matrix and gap penalties. E-values are not computed if lambda or K is <= 0.`))
	cmd.Flags().Float64P("k", "", d.K,
		formatFlagUsage(`Karlin-Altschul parameter K of the base matrix and gap penalties.`))
	cmd.Flags().BoolP("keep-redundant", "", d.KeepRedundant,
		formatFlagUsage(`Keep hits contained in or sharing ends with higher scoring ones.`))
}

// getConfig returns the config from a file (or the default one) with the
// values of flags given in the command line.
func getConfig(cmd *cobra.Command, file string) (*Config, error) {
	var c *Config
	if file != "" {
		var err error
		c, err = loadConfig(file)
		if err != nil {
			return nil, err
		}
	} else {
		c0 := DefaultConfig
		c = &c0
	}

	flags := cmd.Flags()
	var err error
	setString := func(name string, v *string) {
		if err == nil && flags.Changed(name) {
			*v, err = flags.GetString(name)
		}
	}
	setFloat := func(name string, v *float64) {
		if err == nil && flags.Changed(name) {
			*v, err = flags.GetFloat64(name)
		}
	}
	setInt := func(name string, v *int) {
		if err == nil && flags.Changed(name) {
			*v, err = flags.GetInt(name)
		}
	}
	setBool := func(name string, v *bool) {
		if err == nil && flags.Changed(name) {
			*v, err = flags.GetBool(name)
		}
	}

	setString("matrix", &c.Matrix)
	setString("mode", &c.Mode)
	setString("rule", &c.Rule)
	setFloat("rel-entropy", &c.RelEntropy)
	setFloat("pseudocounts", &c.Pseudocounts)
	setFloat("scale", &c.Scale)
	setInt("gap-open", &c.GapOpen)
	setInt("gap-extend", &c.GapExtend)
	setInt("ext-window", &c.ExtWindow)
	setFloat("max-evalue", &c.MaxEvalue)
	setFloat("lambda", &c.Lambda)
	setFloat("k", &c.K)
	setBool("keep-redundant", &c.KeepRedundant)
	if err != nil {
		return nil, err
	}

	if err = c.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	return c, nil
}
