// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	nl "github.com/mlnoga/retouch/internal"
	"github.com/mlnoga/retouch/internal/ops"
	"github.com/mlnoga/retouch/internal/ops/adjust"
	"github.com/mlnoga/retouch/internal/params"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/mlnoga/retouch/internal/rest"
	"github.com/mlnoga/retouch/internal/stats"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
)

const version = "0.3.0"

var totalMiBs = memory.TotalMemory() / 1024 / 1024

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "%auto_retouched.jpg", "save output to `file`. %auto is replaced with the input file name without suffix, %d with the image id")
var log = flag.String("log", "", "save log output to `file`")
var paramsFile = flag.String("params", "", "load adjustment parameters from JSON `file`. Individual flags override its values")
var quality = flag.Int("quality", 95, "JPEG output quality in [1,100]")
var threads = flag.Int("threads", 0, "maximum number of images to render concurrently, 0=auto from cores and memory")

var chroot = flag.String("chroot", "", "serve: change filesystem root to `dir` before accepting requests (requires root)")
var setuid = flag.Int("setuid", -1, "serve: change user id to `uid` before accepting requests, -1=keep")

// One flag per adjustment parameter, by JSON name
var paramFlags = map[string]*int{}

func init() {
	def := params.Default()
	for _, f := range params.Fields {
		paramFlags[f.Name] = flag.Int(f.Name, *f.Ptr(&def), fmt.Sprintf("%s slider in [%d,%d]", f.Name, f.Min, f.Max))
	}
}

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Retouch Copyright (c) 2021 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (render|stats|serve|legal|version) (img0.png ... imgn.jpg)

Commands:
  render  Apply the adjustment parameters to the input images
  stats   Show input image statistics
  serve   Run the HTTP API, configured from the environment and .env
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	c := ops.NewContext(logWriter)
	c.JPEGQuality = *quality
	if *threads > 0 {
		c.MaxThreads = *threads
	}

	var err error
	switch args[0] {
	case "render":
		fmt.Fprintf(logWriter, "Running on %s with %d threads and %d MiB of memory\n", cpuid.CPU.BrandName, c.MaxThreads, totalMiBs)
		err = cmdRender(args[1:], c)
	case "stats":
		err = cmdStats(args[1:], c)
	case "serve":
		err = cmdServe(c)
	case "legal":
		fmt.Fprint(logWriter, legal)
	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
	case "help", "?":
		flag.Usage()
	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}
	now := time.Now()
	elapsed := now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		nl.LogSync()
		os.Exit(-1)
	}
	nl.LogSync()
}

// Assembles the adjustment parameters from defaults, the optional JSON file, and explicitly set flags
func parseParams() (params.AdjustmentParameters, error) {
	p := params.Default()
	if *paramsFile != "" {
		var err error
		if p, err = params.LoadFile(*paramsFile); err != nil {
			return p, err
		}
	}
	var err error
	flag.Visit(func(f *flag.Flag) {
		if v, ok := paramFlags[f.Name]; ok && err == nil {
			err = p.Set(f.Name, *v)
		}
	})
	return p, err
}

// Renders all input files with the given parameters and saves them per the output pattern
func cmdRender(args []string, c *ops.Context) error {
	if len(args) == 0 {
		return errors.New("no input files")
	}
	if *out == "" {
		return errors.New("no output file pattern")
	}
	if !strings.Contains(*out, "%auto") && !strings.Contains(*out, "%d") && len(args) > 1 {
		return errors.Errorf("output %s needs %%auto or %%d to save more than one image", *out)
	}
	if _, err := pixbuf.FormatFromFileName(*out); err != nil {
		return err
	}
	p, err := parseParams()
	if err != nil {
		return err
	}
	for _, w := range p.DetectExtremes() {
		fmt.Fprintf(c.Log, "Warning: %s\n", w.String())
	}

	opRender := ops.NewOpSequence(
		ops.NewOpLoadMany(args),
		ops.NewOpForEach(ops.NewOpSequence(
			adjust.NewOpRender(p),
			ops.NewOpSave(*out),
		)),
	)
	m, err := json.MarshalIndent(opRender, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "\nRendering with these settings:\n%s\n", string(m))

	promises, err := opRender.MakePromises(nil, c)
	if err != nil {
		return err
	}
	maxThreads := c.MaxThreads
	if pixels := largestInputPixels(args); pixels > 0 {
		maxThreads = c.MaxConcurrentRenders(pixels)
	}
	_, err = ops.MaterializeAll(promises, maxThreads, true)
	return err
}

// Returns the pixel count of the largest input image, from headers only. 0 if none could be read
func largestInputPixels(patterns []string) int {
	largest := 0
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			f, err := os.Open(m)
			if err != nil {
				continue
			}
			w, h, err := pixbuf.DecodeDimensions(f)
			f.Close()
			if err == nil && w*h > largest {
				largest = w * h
			}
		}
	}
	return largest
}

// Prints statistics for all input files
func cmdStats(args []string, c *ops.Context) error {
	if len(args) == 0 {
		return errors.New("no input files")
	}
	promises, err := ops.NewOpLoadMany(args).MakePromises(nil, c)
	if err != nil {
		return err
	}
	for _, promise := range promises {
		b, err := promise()
		if err != nil {
			return err
		}
		s, err := stats.Compute(b)
		if err != nil {
			return err
		}
		printStats(c.Log, b, s)
	}
	return nil
}

func printStats(w io.Writer, b *pixbuf.Buffer, s *stats.Stats) {
	fmt.Fprintf(w, "%d: %s %dx%d clipped low %.2f%% high %.2f%% mode %.1f stddev %.1f\n",
		b.ID, b.FileName, s.Width, s.Height, s.ClippedLow*100, s.ClippedHigh*100, s.Mode, s.StdDev)
	for _, ch := range []struct {
		name string
		cs   *stats.ChannelStats
	}{{"R", &s.Red}, {"G", &s.Green}, {"B", &s.Blue}, {"L", &s.Luminance}} {
		fmt.Fprintf(w, "%d:   %s min %3d max %3d mean %6.2f p1 %3d p99 %3d\n",
			b.ID, ch.name, ch.cs.Min, ch.cs.Max, ch.cs.Mean, ch.cs.Percentile(0.01), ch.cs.Percentile(0.99))
	}
}

// Runs the HTTP API until the listener fails
func cmdServe(c *ops.Context) error {
	cfg, err := rest.ConfigFromEnv()
	if err != nil {
		return err
	}
	if err := rest.MakeSandbox(c.Log, *chroot, *setuid); err != nil {
		return err
	}
	return rest.NewServer(cfg, c).Run()
}
