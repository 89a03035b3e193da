// Package report owns the per-ply CSV output and the end-of-run summary:
// the census's only user-visible product besides log lines.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
)

// header is the first line written to every CSV destination.
var header = []string{"Depth", "SolutionArtifactCount", "ProofCertificateCount", "NodeCount"}

// Writer emits one CSV row per depth to stdout and, best-effort, to a
// file, and can render an ASCII histogram of node counts once the run
// completes.
type Writer struct {
	csv    *csv.Writer
	file   io.Closer
	counts []uint64
}

// NewWriter builds a Writer that always writes to stdout and additionally
// to path, if path is non-empty and the file can be created. A failure
// to open path is logged at Warn and the Writer still works, writing
// only to stdout, the same best-effort policy applied to every write to
// that file afterward.
func NewWriter(stdout io.Writer, path string) *Writer {
	dest := stdout
	var closer io.Closer
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not open csv output file")
		} else {
			dest = io.MultiWriter(stdout, f)
			closer = f
		}
	}
	w := &Writer{csv: csv.NewWriter(dest), file: closer}
	if err := w.csv.Write(header); err != nil {
		log.Warn().Err(err).Msg("could not write csv header")
	}
	w.csv.Flush()
	return w
}

// WriteRow emits one depth's counts and logs the same numbers at Info
// level. It never returns an error for the best-effort file destination;
// it only returns an error if stdout itself fails to accept the write,
// which is treated as fatal the way a terminal losing its stdout pipe
// would be for any CLI.
func (w *Writer) WriteRow(depth int, solutionCount, proofCount uint64) error {
	nodeCount := solutionCount + proofCount
	row := []string{
		strconv.Itoa(depth),
		strconv.FormatUint(solutionCount, 10),
		strconv.FormatUint(proofCount, 10),
		strconv.FormatUint(nodeCount, 10),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("report: writing row for depth %d: %w", depth, err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("report: flushing row for depth %d: %w", depth, err)
	}
	w.counts = append(w.counts, nodeCount)
	return nil
}

// PrintSummary renders an ASCII histogram of NodeCount across every
// depth reported so far to stderr. Rendering is best-effort: a failure
// is logged and otherwise ignored, the same policy as the CSV file.
func (w *Writer) PrintSummary() {
	if len(w.counts) == 0 {
		return
	}
	values := make([]float64, len(w.counts))
	for i, c := range w.counts {
		values[i] = float64(c)
	}
	bins := 15
	if bins > len(values) {
		bins = len(values)
	}
	hist := histogram.Hist(bins, values)
	fmt.Fprintln(os.Stderr, "\nnode count distribution across plies:")
	if err := histogram.Fprint(os.Stderr, hist, histogram.Linear(60)); err != nil {
		log.Warn().Err(err).Msg("could not render summary histogram")
	}
}

// Close releases the underlying output file, if one was opened.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
