package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReportSignal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	FailedStages      int            `json:"failed_stages"`
	Files             int            `json:"files"`
	Items             int            `json:"items"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report records what one run did, stage by stage.
type Report struct {
	Version     string         `json:"version"`
	RunID       string         `json:"run_id"`
	Mode        string         `json:"mode"`
	Input       string         `json:"input"`
	OutputDir   string         `json:"output_dir,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	Model       string         `json:"model,omitempty"`
	StartedAt   string         `json:"started_at"`
	GeneratedAt string         `json:"generated_at"`
	Stages      []StageMetric  `json:"stages"`
	Signals     []ReportSignal `json:"signals,omitempty"`
	Summary     ReportSummary  `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewReport(mode, input, outputDir string) *Report {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Report{
		Version:     "v1",
		RunID:       uuid.NewString(),
		Mode:        mode,
		Input:       input,
		OutputDir:   outputDir,
		StartedAt:   now,
		GeneratedAt: now,
		Stages:      []StageMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

// EndStage records the stage started by h. A non-nil err marks it failed.
func (r *Report) EndStage(h StageHandle, counters map[string]float64, err error) {
	if r == nil || h.name == "" {
		return
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
	}
	if err != nil {
		m.Status = "error"
		m.Error = err.Error()
	}
	r.Stages = append(r.Stages, m)
}

// Stage returns the last recorded metric named name.
func (r *Report) Stage(name string) (StageMetric, bool) {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Name == name {
			return r.Stages[i], true
		}
	}
	return StageMetric{}, false
}

func (r *Report) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	sort.SliceStable(r.Signals, func(i, j int) bool {
		return signalPriority(r.Signals[i].Severity) > signalPriority(r.Signals[j].Severity)
	})
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	files, items := 0, 0
	if st, ok := r.Stage(StageScan); ok {
		files = int(st.Counters["files"])
	}
	if st, ok := r.Stage(StageSynthesize); ok {
		items = int(st.Counters["items"])
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		FailedStages:      failed,
		Files:             files,
		Items:             items,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if key := strings.TrimSpace(k); key != "" {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
