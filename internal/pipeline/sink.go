package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terminal-bench/casgen/internal/composer"
)

// Sink receives finalized patient records. The engine makes no assumption
// about serialization; each sink owns its format.
type Sink interface {
	Write(p *composer.Patient) error
	Close() error
}

// newSinks opens one sink per requested output format under dir. Returned
// paths are the job's result files.
func newSinks(formats []string, dir, jobID string) ([]Sink, []string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var sinks []Sink
	var paths []string
	for _, format := range formats {
		switch strings.ToLower(format) {
		case "json", "jsonl":
			path := filepath.Join(dir, jobID+".jsonl")
			s, err := newJSONLSink(path)
			if err != nil {
				closeAll(sinks)
				return nil, nil, err
			}
			sinks = append(sinks, s)
			paths = append(paths, path)
		case "csv":
			path := filepath.Join(dir, jobID+".csv")
			s, err := newCSVSink(path)
			if err != nil {
				closeAll(sinks)
				return nil, nil, err
			}
			sinks = append(sinks, s)
			paths = append(paths, path)
		default:
			closeAll(sinks)
			return nil, nil, fmt.Errorf("unsupported output format %q", format)
		}
	}
	return sinks, paths, nil
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		s.Close()
	}
}

type jsonlSink struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

func newJSONLSink(path string) (*jsonlSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &jsonlSink{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (s *jsonlSink) Write(p *composer.Patient) error {
	return s.enc.Encode(p)
}

func (s *jsonlSink) Close() error {
	if err := s.buf.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

type csvSink struct {
	f *os.File
	w *csv.Writer
}

var csvHeader = []string{
	"id", "nationality", "front", "warfare_type", "injury_type", "triage",
	"injured_at", "evac_delay_min", "first_name", "last_name", "age", "gender",
	"blood_type", "condition_codes", "blood_loss_ml_min", "time_to_exsanguination_min",
}

func newCSVSink(path string) (*csvSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &csvSink{f: f, w: w}, nil
}

func (s *csvSink) Write(p *composer.Patient) error {
	codes := make([]string, len(p.Conditions))
	rate := decimal.Zero
	tte := ""
	for i, c := range p.Conditions {
		codes[i] = c.Code
		if c.Hemorrhage != nil {
			rate = rate.Add(decimal.NewFromFloat(c.Hemorrhage.RateMLPerMin))
		}
	}
	if p.Combined != nil {
		tte = decimal.NewFromFloat(p.Combined.TimeToExsangMin).Round(1).String()
	} else if len(p.Conditions) == 1 && p.Conditions[0].Hemorrhage != nil {
		tte = decimal.NewFromFloat(p.Conditions[0].Hemorrhage.TimeToExsangMin).Round(1).String()
	}

	return s.w.Write([]string{
		p.ID.String(),
		p.Nationality,
		p.Front,
		p.WarfareType,
		string(p.InjuryType),
		string(p.Triage),
		p.InjuredAt.UTC().Format(time.RFC3339),
		strconv.Itoa(p.EvacDelayMin),
		p.Demographics.FirstName,
		p.Demographics.LastName,
		strconv.Itoa(p.Demographics.Age),
		p.Demographics.Gender,
		p.Demographics.BloodType,
		strings.Join(codes, ";"),
		rate.Round(1).String(),
		tte,
	})
}

func (s *csvSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
