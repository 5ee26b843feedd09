// Package journal persists run numbers and run records under the
// project state directory (.convey by default).
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conveyci/convey/pipeline"
)

// DefaultDir is the state directory relative to the project root.
const DefaultDir = ".convey"

// StageRecord is the persisted outcome of one stage.
type StageRecord struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts,omitempty"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunRecord is the persisted form of a pipeline run.
type RunRecord struct {
	Number     int                `json:"number"`
	Pipeline   string             `json:"pipeline"`
	Branch     string             `json:"branch"`
	Commit     string             `json:"commit"`
	Status     string             `json:"status"`
	Artifact   *pipeline.Artifact `json:"artifact,omitempty"`
	Stages     []StageRecord      `json:"stages"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// NewRunRecord converts a finished run into its persisted form.
func NewRunRecord(pipelineName string, run *pipeline.Run) *RunRecord {
	rec := &RunRecord{
		Number:     run.Context.Number,
		Pipeline:   pipelineName,
		Branch:     run.Context.Branch,
		Commit:     run.Context.Commit,
		Status:     string(run.Status),
		Artifact:   run.Context.Artifact(),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	for _, res := range run.Results {
		sr := StageRecord{
			Name:     res.Name,
			Status:   string(res.Status),
			Attempts: res.Attempts,
			Error:    res.Err,
		}
		if res.Duration > 0 {
			sr.Duration = res.Duration.Round(time.Millisecond).String()
		}
		rec.Stages = append(rec.Stages, sr)
	}
	return rec
}

// Scrubber removes secret values from text before it is persisted.
type Scrubber interface {
	Scrub(string) string
}

// Journal owns the state directory: the monotonic run counter and the
// per-run record files.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// Open creates the state directory if needed and returns a Journal over it.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(filepath.Join(dir, "runs"), 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// NextNumber advances the run counter and returns the new value. Numbers
// start at 1 and never repeat or decrease.
func (j *Journal) NextNumber() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	seqPath := filepath.Join(j.dir, "seq")
	n := 0
	data, err := os.ReadFile(seqPath)
	switch {
	case err == nil:
		n, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return 0, fmt.Errorf("parsing run counter: %w", err)
		}
	case os.IsNotExist(err):
		// first run
	default:
		return 0, fmt.Errorf("reading run counter: %w", err)
	}

	n++
	if err := os.WriteFile(seqPath, []byte(strconv.Itoa(n)+"\n"), 0644); err != nil {
		return 0, fmt.Errorf("writing run counter: %w", err)
	}
	return n, nil
}

// Record writes the run record to runs/<number>.json. If a scrubber is
// given, stage error text is scrubbed before it hits disk.
func (j *Journal) Record(rec *RunRecord, scrub Scrubber) error {
	if scrub != nil {
		for i := range rec.Stages {
			rec.Stages[i].Error = scrub.Scrub(rec.Stages[i].Error)
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling run record: %w", err)
	}

	path := filepath.Join(j.dir, "runs", fmt.Sprintf("%d.json", rec.Number))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing run record: %w", err)
	}
	return nil
}

// Read loads the record for the given run number.
func (j *Journal) Read(number int) (*RunRecord, error) {
	path := filepath.Join(j.dir, "runs", fmt.Sprintf("%d.json", number))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run record: %w", err)
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing run record %d: %w", number, err)
	}
	return &rec, nil
}

// List returns all run records, newest first. Records that cannot be read
// or parsed are skipped so one corrupt file does not hide the rest of the
// history.
func (j *Journal) List() ([]*RunRecord, error) {
	entries, err := os.ReadDir(filepath.Join(j.dir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("listing run records: %w", err)
	}

	var recs []*RunRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		rec, err := j.Read(n)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, k int) bool { return recs[i].Number > recs[k].Number })
	return recs, nil
}
