// Command kde is a thin command-line adapter over the density engine.
// It reads populations from a file (CSV of group,value rows for the
// aggregating mode, JSON lists for the pre-grouped modes), runs the
// requested KDE mode, and writes the density rows as JSON to stdout.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/kde/internal/column"
	"github.com/banshee-data/kde/internal/config"
	"github.com/banshee-data/kde/internal/engine"
	"github.com/banshee-data/kde/internal/kernel"
	"github.com/banshee-data/kde/internal/version"
)

var (
	mode        = flag.String("mode", "agg", "KDE mode: agg, static or dynamic")
	input       = flag.String("input", "-", "Input file ('-' for stdin)")
	evalPoints  = flag.String("eval-points", "", "Comma-separated eval points (agg and static modes)")
	configPath  = flag.String("config", "", "Optional tuning config JSON file")
	failFast    = flag.Bool("fail-fast", false, "Abort the whole call on the first group error")
	rule        = flag.String("rule", "", "Bandwidth rule: scott or silverman (overrides config)")
	workers     = flag.Int("workers", 0, "Worker pool size (0 = one per CPU, overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// parseCSVFloatSlice parses a comma-separated list of floats
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// readAggCSV reads group,value rows into a value column and parallel keys.
// An empty value field becomes a null entry for its group.
func readAggCSV(r io.Reader) (*column.Float64, column.Keys, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV: %w", err)
	}
	values := column.NewFloat64(len(records))
	keys := make(column.Keys, 0, len(records))
	for i, rec := range records {
		if len(rec) != 2 {
			return nil, nil, fmt.Errorf("line %d: want group,value got %d fields", i+1, len(rec))
		}
		keys = append(keys, strings.TrimSpace(rec[0]))
		field := strings.TrimSpace(rec[1])
		if field == "" {
			values.AppendNull()
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: invalid value '%s': %w", i+1, field, err)
		}
		values.Append(v)
	}
	return values, keys, nil
}

// groupedInput is the JSON input shape for the pre-grouped modes. A
// JSON null row is a null population / null eval-points entry.
type groupedInput struct {
	Populations [][]float64 `json:"populations"`
	EvalPoints  [][]float64 `json:"eval_points,omitempty"`
}

func readGroupedJSON(r io.Reader) (*groupedInput, error) {
	var in groupedInput
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("parsing JSON input: %w", err)
	}
	return &in, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func buildOptions() (engine.Options, error) {
	var cfg *config.TuningConfig
	var err error
	if *configPath != "" {
		cfg, err = config.LoadTuningConfig(*configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.OptionsFromConfig(cfg)
	if *workers > 0 {
		opts.Workers = *workers
	}
	if *failFast {
		opts.FailFast = true
	}
	if *rule != "" {
		r, err := kernel.ParseRule(*rule)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Rule = r
	}
	return opts, nil
}

func runMode(ctx context.Context, opts engine.Options, in io.Reader) (*column.List, error) {
	switch *mode {
	case "agg":
		values, keys, err := readAggCSV(in)
		if err != nil {
			return nil, err
		}
		points, err := parseCSVFloatSlice(*evalPoints)
		if err != nil {
			return nil, err
		}
		return engine.KDE(ctx, values, keys, points, opts)

	case "static":
		grouped, err := readGroupedJSON(in)
		if err != nil {
			return nil, err
		}
		points, err := parseCSVFloatSlice(*evalPoints)
		if err != nil {
			return nil, err
		}
		return engine.KDEStaticEvals(ctx, column.ListFromRows(grouped.Populations), points, opts)

	case "dynamic":
		grouped, err := readGroupedJSON(in)
		if err != nil {
			return nil, err
		}
		return engine.KDEDynamicEvals(ctx,
			column.ListFromRows(grouped.Populations),
			column.ListFromRows(grouped.EvalPoints), opts)

	default:
		return nil, fmt.Errorf("unknown mode %q (want agg, static or dynamic)", *mode)
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	opts, err := buildOptions()
	if err != nil {
		log.Fatalf("kde: %v", err)
	}

	in, err := openInput(*input)
	if err != nil {
		log.Fatalf("kde: %v", err)
	}
	defer in.Close()

	out, err := runMode(context.Background(), opts, in)
	if err != nil {
		log.Fatalf("kde: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(out.Rows()); err != nil {
		log.Fatalf("kde: encoding output: %v", err)
	}
}
