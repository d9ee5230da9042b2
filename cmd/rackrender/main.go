// Command rackrender renders a mute gate or matrix mixer patch offline and
// writes the module outputs to a WAV file.
//
// Usage:
//
//	rackrender [flags]
//
// Without -patch it renders the built-in demo patch of -module.
//
// Examples:
//
//	rackrender -out mute.wav
//	rackrender -module matrix -duration 4 -out matrix.wav
//	rackrender -patch session.json -log-level debug
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-rack/internal/patch"
	"github.com/cwbudde/algo-rack/internal/render"
)

type options struct {
	patchPath  string
	module     string
	out        string
	sampleRate float64
	duration   float64
	cutoff     float64
	logLevel   string
	set        map[string]bool
}

func main() {
	var o options
	flag.StringVar(&o.patchPath, "patch", "", "patch JSON file (default: built-in demo patch)")
	flag.StringVar(&o.module, "module", patch.ModuleMute, "module to render without a patch file: mute|matrix")
	flag.StringVar(&o.out, "out", "rack.wav", "output WAV path (empty to skip writing)")
	flag.Float64Var(&o.sampleRate, "sample-rate", 48000, "render sample rate, overrides the patch")
	flag.Float64Var(&o.duration, "duration", 2, "render duration in seconds, overrides the patch")
	flag.Float64Var(&o.cutoff, "click-cutoff", 4000, "cutoff in Hz for the click measurement of mute renders")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rackrender [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a rack module patch to a WAV file and prints a summary.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rackrender -out mute.wav\n")
		fmt.Fprintf(os.Stderr, "  rackrender -module matrix -duration 4 -out matrix.wav\n")
		fmt.Fprintf(os.Stderr, "  rackrender -patch session.json -log-level debug\n")
	}
	flag.Parse()

	o.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	logger, err := NewLogger(os.Stderr, o.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := run(o, os.Stdout, logger); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run(o options, stdout io.Writer, logger *slog.Logger) error {
	p, err := loadPatch(o)
	if err != nil {
		return err
	}
	logger.Debug("patch loaded",
		"module", p.Module,
		"sampleRate", p.SampleRate,
		"duration", p.Duration,
		"inputs", len(p.Inputs),
	)

	result, err := render.Render(p, render.WithLogger(logger))
	if err != nil {
		return err
	}

	if o.out != "" {
		if err := render.WriteWAVFile(o.out, result); err != nil {
			return err
		}
		logger.Info("wrote wav", "path", o.out, "channels", len(result.Channels), "frames", result.Frames())
	}

	cutoff := 0.0
	if p.Module == patch.ModuleMute {
		cutoff = o.cutoff
	}
	summaries, err := render.Summarize(result, cutoff)
	if err != nil {
		return err
	}

	return printSummary(stdout, result, summaries, cutoff > 0)
}

// loadPatch reads the patch file or builds the demo patch, then applies the
// flags given on the command line.
func loadPatch(o options) (patch.Patch, error) {
	var p patch.Patch
	if o.patchPath != "" {
		loaded, err := patch.Load(o.patchPath)
		if err != nil {
			return patch.Patch{}, err
		}
		p = loaded
		if o.set["module"] && o.module != p.Module {
			return patch.Patch{}, fmt.Errorf("-module %s conflicts with patch module %s", o.module, p.Module)
		}
	} else {
		p = patch.Default(o.module)
	}

	if o.patchPath == "" || o.set["sample-rate"] {
		p.SampleRate = o.sampleRate
	}
	if o.patchPath == "" || o.set["duration"] {
		p.Duration = o.duration
	}

	if err := p.Validate(); err != nil {
		return patch.Patch{}, err
	}
	return p, nil
}

func printSummary(w io.Writer, r *render.Result, summaries []render.ChannelSummary, withClick bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := "Output\tPeak [V]\tMax Step [V]"
	rule := "------\t--------\t------------"
	if withClick {
		header += "\tHigh Band"
		rule += "\t---------"
	}
	if _, err := fmt.Fprintf(tw, "%s\n%s\n", header, rule); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for _, s := range summaries {
		row := fmt.Sprintf("%d\t%.4f\t%.4f", s.Channel+1, s.Peak, s.MaxStep)
		if withClick {
			row += fmt.Sprintf("\t%.3e", s.HighBandRatio)
		}
		if _, err := fmt.Fprintln(tw, row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}

	if len(r.Events) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%s events:\n", r.Module); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	for _, e := range r.Events {
		if _, err := fmt.Fprintf(w, "  %8.4fs  %-9s  %s\n", e.Time, e.Kind, e.Value); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	return nil
}
