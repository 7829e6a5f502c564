package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/bootstrap"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

var (
	srtLines     string
	srtDurations []float64
	srtSeconds   float64
	srtOut       string
)

var srtCmd = &cobra.Command{
	Use:   "srt [segments.json]",
	Short: "Build an SRT file from measured segments",
	Long: `Build an SRT file from a JSON array of {"text", "duration"} segments read
from the given file or stdin. With --lines, captions come from a text file
instead, one per non-blank line, timed by --durations or --seconds each.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		segments, err := readSegments(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		captions, err := timeline.BuildTimeline(segments)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if srtOut != "" {
			f, err := os.Create(srtOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return timeline.WriteSRT(out, captions)
	},
}

func readSegments(stdin io.Reader, args []string) ([]models.Segment, error) {
	if srtLines != "" {
		lines, err := readLines(srtLines)
		if err != nil {
			return nil, err
		}
		if len(srtDurations) > 0 {
			if len(srtDurations) != len(lines) {
				return nil, fmt.Errorf("%w: %d lines but %d durations", timeline.ErrInvalidInput, len(lines), len(srtDurations))
			}
			return models.SegmentsFromTexts(lines, srtDurations), nil
		}
		return models.SegmentsFromLines(lines, srtSeconds), nil
	}

	in := stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var segments []models.Segment
	if err := json.NewDecoder(in).Decode(&segments); err != nil {
		return nil, fmt.Errorf("failed to decode segments: %w", err)
	}
	return segments, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

var (
	planDurations []float64
	planAssets    int
	planWindows   int
	planTarget    float64
	planMinSlot   float64
	planPadding   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the caption and image timeline of measured durations",
	Long: `Normalize measured narration durations against the target length, lay
the captions on the timeline and spread the images over the padded total.
Unset flags fall back to the configured pipeline settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig(configPath, envFiles...)
		if err != nil {
			return err
		}
		opts, err := cfg.Pipeline.TimelineOptions()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("target") {
			opts.TargetTotal = planTarget
		}
		if flags.Changed("min-slot") {
			opts.MinSlot = planMinSlot
		}
		if flags.Changed("padding") {
			if opts.Padding, err = timeline.ParsePaddingPolicy(planPadding); err != nil {
				return err
			}
		}
		assets := planAssets
		if !flags.Changed("assets") {
			assets = cfg.Pipeline.ImagesPerVideo
		}

		plan, err := buildPlan(planDurations, assets, planWindows, opts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	},
}

func buildPlan(durations []float64, assets, windows int, opts timeline.Options) (*timeline.Plan, error) {
	texts := make([]string, len(durations))
	for i := range texts {
		texts[i] = fmt.Sprintf("segment %d", i+1)
	}

	plan, err := timeline.NewPlan(models.SegmentsFromTexts(texts, durations), assets, opts)
	if err != nil {
		return nil, err
	}
	if windows > assets {
		if err := plan.Repeat(assets, windows, opts.MinSlot); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func init() {
	srtCmd.Flags().StringVar(&srtLines, "lines", "", "text file with one caption per line")
	srtCmd.Flags().Float64SliceVar(&srtDurations, "durations", nil, "duration of each line, in seconds")
	srtCmd.Flags().Float64Var(&srtSeconds, "seconds", 3.0, "fixed duration of each line when --durations is not set")
	srtCmd.Flags().StringVarP(&srtOut, "out", "o", "", "output file (default stdout)")

	planCmd.Flags().Float64SliceVar(&planDurations, "durations", nil, "measured segment durations, in seconds")
	planCmd.Flags().IntVar(&planAssets, "assets", 0, "number of images")
	planCmd.Flags().IntVar(&planWindows, "windows", 0, "display windows; cycles the images when above --assets")
	planCmd.Flags().Float64Var(&planTarget, "target", 0, "target length in seconds")
	planCmd.Flags().Float64Var(&planMinSlot, "min-slot", 0, "shortest image slot in seconds")
	planCmd.Flags().StringVar(&planPadding, "padding", "", "padding policy: trailing-silence or none")
}
