package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/canlabs/buslog/pkg/capture"
	"github.com/canlabs/buslog/pkg/decode"
)

// newDecodeCommand builds the "buslog decode" subcommand, which turns a
// capture file into CSV rows of named signals.
func newDecodeCommand() *cobra.Command {
	var (
		outPath        string
		includeUnknown bool
	)

	cmd := &cobra.Command{
		Use:   "decode <capture-file>",
		Short: "Decode a capture file to CSV",
		Long: "Decode reads a capture file and writes one CSV row per decoded\n" +
			"signal. Frames from devices the decoder does not know are skipped\n" +
			"unless --include-unknown is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return decodeCapture(args[0], out, includeUnknown)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output CSV file (default: stdout)")
	cmd.Flags().BoolVar(&includeUnknown, "include-unknown", false, "emit rows for frames without a known decoder")
	return cmd
}

func decodeCapture(path string, out io.Writer, includeUnknown bool) error {
	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"time_s", "arb_id", "source", "signal", "value"}); err != nil {
		return err
	}

	var frames, skipped int
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		frames++

		timeCol := strconv.FormatFloat(f.Time.Seconds(), 'f', 6, 64)
		idCol := fmt.Sprintf("0x%08X", f.ID)

		source, signals, ok := decode.Decode(f.ID, f.Uint64())
		if !ok {
			if includeUnknown {
				row := []string{timeCol, idCol, "", "raw",
					strconv.FormatUint(f.Uint64(), 10)}
				if err := w.Write(row); err != nil {
					return err
				}
			} else {
				skipped++
			}
			continue
		}

		for _, sig := range signals {
			row := []string{timeCol, idCol, source, sig.Name,
				strconv.FormatFloat(sig.Value, 'f', -1, 64)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "decoded %d frames, skipped %d without a known decoder\n", frames-skipped, skipped)
	}
	return nil
}
