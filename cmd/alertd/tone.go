package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/myaudio"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/sidechannel"
)

type toneOptions struct {
	severity   string
	out        string
	play       bool
	sampleRate int
}

func newToneCmd() *cobra.Command {
	opts := &toneOptions{}
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Render or play the alert tone of a severity",
		Example: `  alertd tone --severity critical --out critical.wav
  alertd tone --severity high --play`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTone(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.severity, "severity", "s", "high", "low, medium, high or critical")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the tone to this WAV file")
	cmd.Flags().BoolVar(&opts.play, "play", false, "play the tone on the default output device")
	cmd.Flags().IntVar(&opts.sampleRate, "sample-rate", myaudio.DefaultSampleRate, "sample rate in Hz")
	return cmd
}

func runTone(cmd *cobra.Command, opts *toneOptions) error {
	if opts.out == "" && !opts.play {
		return errors.Newf("one of --out or --play is required").
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	sev, err := notification.ParseSeverity(opts.severity)
	if err != nil {
		return err
	}
	samples := sidechannel.RenderSequence(sev, opts.sampleRate)

	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return err
		}
		if err := myaudio.WriteWAV(f, samples, opts.sampleRate); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s tone (%d pulse(s), %d samples) to %s\n",
			sev, sidechannel.Pulses(sev), len(samples), opts.out)
	}

	if opts.play {
		p, err := myaudio.NewPlayer(opts.sampleRate, logger.NewNop())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()
		if err := p.Play(samples); err != nil {
			return err
		}
		// Play queues the samples; wait for them to drain.
		select {
		case <-time.After(time.Duration(len(samples)) * time.Second / time.Duration(opts.sampleRate)):
		case <-cmd.Context().Done():
		}
	}
	return nil
}
