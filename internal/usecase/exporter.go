package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/pkg/metrics"
	"go.uber.org/zap"
)

// FileStampLayout is embedded in export file names so that successive runs never overwrite each other.
const FileStampLayout = "20060102_150405"

var csvHeader = []string{"rank", "headline", "link", "published_time", "link_status"}

var txtTemplate = template.Must(template.New("headlines").Parse(
	`{{range .}}Rank: {{.Rank}}
Headline: {{.Headline}}
Link: {{.Link}}
{{if .LinkStatus}}Link Status: {{.LinkStatus}}
{{end}}Published: {{.PublishedTime}}

{{end}}`))

// Sink is one export destination.
type Sink interface {
	Format() string
	// Export writes the run and returns where it went. stamp identifies the run in file names.
	Export(ctx context.Context, run *entity.RunResult, stamp time.Time) (string, error)
}

type recordWriter func(w io.Writer, records []entity.HeadlineRecord) error

// FileSink writes records to <dir>/<base>_<stamp>.<format>.
type FileSink struct {
	format string
	dir    string
	base   string
	write  recordWriter
}

var fileWriters = map[string]recordWriter{
	"csv":  writeCSV,
	"json": writeJSON,
	"txt":  writeTXT,
}

// NewFileSink returns the sink for a file format: csv, json or txt.
func NewFileSink(format, dir, base string) (*FileSink, error) {
	w, ok := fileWriters[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	return &FileSink{format: format, dir: dir, base: base, write: w}, nil
}

func (f *FileSink) Format() string { return f.format }

// FileName returns the name the sink uses for a run stamped at stamp.
func (f *FileSink) FileName(stamp time.Time) string {
	return fmt.Sprintf("%s_%s.%s", f.base, stamp.Format(FileStampLayout), f.format)
}

func (f *FileSink) Export(_ context.Context, run *entity.RunResult, stamp time.Time) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(f.dir, f.FileName(stamp))

	file, err := os.Create(path)
	if err != nil {
		return path, err
	}
	if err := f.write(file, run.Records); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return path, err
	}
	return path, file.Close()
}

// RepositorySink stores the run in a HeadlineRepository.
type RepositorySink struct {
	repo repository.HeadlineRepository
}

func NewRepositorySink(repo repository.HeadlineRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (r *RepositorySink) Format() string { return "postgres" }

func (r *RepositorySink) Export(ctx context.Context, run *entity.RunResult, _ time.Time) (string, error) {
	return "", r.repo.SaveRun(ctx, run)
}

// Exporter fans a run out to every sink. Sinks are independent: one failing never stops the others.
type Exporter struct {
	sinks  []Sink
	clock  clock
	logger *zap.Logger
}

func NewExporter(sinks []Sink, logger *zap.Logger) *Exporter {
	return &Exporter{sinks: sinks, clock: realClock{}, logger: logger}
}

// Export writes run to all sinks and reports one outcome per sink, in sink order.
func (e *Exporter) Export(ctx context.Context, run *entity.RunResult) []entity.ExportOutcome {
	stamp := e.clock.Now()
	outcomes := make([]entity.ExportOutcome, 0, len(e.sinks))
	for _, sink := range e.sinks {
		outcome := entity.ExportOutcome{Format: sink.Format()}
		path, err := sink.Export(ctx, run, stamp)
		outcome.Path = path
		if err != nil {
			exportErr := &ExportError{Format: sink.Format(), Path: path, Cause: err}
			outcome.Path = ""
			outcome.Error = exportErr.Error()
			metrics.ExportsTotal.WithLabelValues(sink.Format(), "failure").Inc()
			e.logger.Error("Error saving headlines", zap.String("format", sink.Format()), zap.Error(exportErr))
		} else {
			metrics.ExportsTotal.WithLabelValues(sink.Format(), "success").Inc()
			e.logger.Info("Headlines saved", zap.String("format", sink.Format()), zap.String("path", path))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func writeCSV(w io.Writer, records []entity.HeadlineRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{strconv.Itoa(r.Rank), r.Headline, r.Link, r.PublishedTime, string(r.LinkStatus)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []entity.HeadlineRecord) error {
	if records == nil {
		records = []entity.HeadlineRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(records)
}

func writeTXT(w io.Writer, records []entity.HeadlineRecord) error {
	return txtTemplate.Execute(w, records)
}
