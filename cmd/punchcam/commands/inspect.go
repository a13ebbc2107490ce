package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/PunchCam/internal/framing"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "List the records of a framed image stream",
	Long: `Read a framed .fwebp or .fjpg stream and print one row per record.

A stream whose head has been reclaimed starts with zeros. Use --resync to
skip them, and any other damaged region, up to the next record.`,
	Example: `  # List records
  punchcam inspect capture_1700000000.000000000_fs.fwebp

  # Read a trimmed stream
  punchcam inspect --resync capture_1700000000.000000000_sc.fjpg`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	resyncFlag bool
	limitFlag  int
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&resyncFlag, "resync", false, "skip punched or corrupt regions instead of stopping")
	inspectCmd.Flags().IntVarP(&limitFlag, "limit", "n", 0, "print at most this many rows (0 prints all)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer f.Close()

	summary, err := inspectStream(cmd.OutOrStdout(), f, resyncFlag, limitFlag)
	if err != nil {
		return err
	}
	if summary.torn {
		fmt.Fprintln(cmd.OutOrStdout(), "Stream ends inside a record (recording still in progress or interrupted)")
	}
	return nil
}

type inspectSummary struct {
	records int
	payload int64
	skipped int64
	torn    bool
}

func inspectStream(w io.Writer, r io.Reader, resync bool, limit int) (inspectSummary, error) {
	var sum inspectSummary
	fr := framing.NewReader(r)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Offset", "Captured", "Size"})

	var first, last time.Time
	for {
		rec, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			sum.torn = true
			break
		}
		if errors.Is(err, framing.ErrBadPreamble) && resync {
			n, rerr := fr.Resync()
			sum.skipped += n
			if rerr != nil {
				break
			}
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("failed to read record %d: %w", sum.records, err)
		}

		if sum.records == 0 {
			first = rec.Timestamp
		}
		last = rec.Timestamp
		if limit == 0 || sum.records < limit {
			t.AppendRow(table.Row{
				sum.records,
				rec.Offset,
				rec.Timestamp.Format(time.RFC3339Nano),
				humanize.Bytes(uint64(len(rec.Payload))),
			})
		}
		sum.records++
		sum.payload += int64(len(rec.Payload))
	}

	span := ""
	if sum.records > 1 {
		span = last.Sub(first).String()
	}
	t.AppendFooter(table.Row{sum.records, "", span, humanize.Bytes(uint64(sum.payload))})
	t.Render()

	if sum.skipped > 0 {
		fmt.Fprintf(w, "Skipped %s of punched or unreadable data\n", humanize.IBytes(uint64(sum.skipped)))
	}
	return sum, nil
}
