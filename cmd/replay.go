// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/pinbus/pkg/capture"
	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	replayBus   string
	replayStats bool
	replayQuiet bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Print a recorded capture",
	Long: `Print every line of a capture written by "pinbus run --record".

Received lines are decoded and shown with their parsed fields. Sent lines are
shown as written. With --stats a per-bus summary is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayBus, "bus", "", "Only show one bus (io, exp)")
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Print per-bus statistics")
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "Do not print individual lines")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return err
	}

	var only *fsp.Bus
	switch replayBus {
	case "":
	case "io", "net":
		b := fsp.BusIO
		only = &b
	case "exp":
		b := fsp.BusExp
		only = &b
	default:
		return fmt.Errorf("unknown bus %q (use io or exp)", replayBus)
	}

	started := time.Unix(0, r.Header().Started)
	fmt.Printf("Capture started %s (%s)\n\n", started.Format(time.RFC3339), humanize.Time(started))

	stats := map[fsp.Bus]*fsp.Statistics{
		fsp.BusIO:  fsp.NewStatistics(),
		fsp.BusExp: fsp.NewStatistics(),
	}
	var last time.Time

	err = r.Each(func(rec capture.Record) error {
		if only != nil && rec.Bus != *only {
			return nil
		}
		last = rec.Timestamp()

		if rec.Direction == fast.DirectionTX {
			if !replayQuiet {
				fmt.Printf("[%s] %-3s >> %s\n", rec.Timestamp().Format("15:04:05.000"), rec.Bus, rec.Line)
			}
			return nil
		}

		s, ok := stats[rec.Bus]
		if !ok {
			return fmt.Errorf("record on unknown bus %d", rec.Bus)
		}
		s.AddBytes(len(rec.Line) + 1)
		frame, perr := fsp.NewFrame(rec.Line)
		if perr != nil {
			s.Update(nil, perr, nil)
			if !replayQuiet {
				fmt.Printf("[%s] %-3s << [ERROR] %v\n", rec.Timestamp().Format("15:04:05.000"), rec.Bus, perr)
			}
			return nil
		}
		anomalies := fsp.ValidateResponse(frame.Response())
		s.Update(frame, nil, anomalies)
		if !replayQuiet {
			fmt.Printf("[%s] %-3s << %s %s\n", rec.Timestamp().Format("15:04:05.000"), rec.Bus,
				fsp.ResponseName(frame.Response()), fsp.FormatResponse(frame.Response()))
			for _, a := range anomalies {
				if a.Type != fsp.AnomalyUnknownCommand {
					fmt.Printf("    [ANOMALY] %s\n", a.Message)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !last.IsZero() {
		fmt.Printf("\nDuration: %s\n", last.Sub(started).Round(time.Millisecond))
	}
	if replayStats {
		for _, bus := range []fsp.Bus{fsp.BusIO, fsp.BusExp} {
			if only != nil && bus != *only {
				continue
			}
			fmt.Printf("\n%s bus\n", bus)
			fmt.Print(stats[bus].String())
		}
	}
	return nil
}
