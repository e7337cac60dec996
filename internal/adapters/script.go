package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// scriptInterpreters is the allowed-extension boundary for user-supplied
// scrapers. Anything else is rejected at construction, not at run time.
var scriptInterpreters = map[string]string{
	".py": "python3",
	".js": "node",
	".sh": "sh",
}

// ScriptAdapter runs an external scraper program and reads a JSON array of
// raw event records from its stdout. Stderr is the script's log channel and
// is forwarded to the engine log.
type ScriptAdapter struct {
	code        string
	path        string
	interpreter string
	timeout     time.Duration
}

func NewScriptAdapter(code, path string, timeout time.Duration) (*ScriptAdapter, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("script adapter: empty bookmaker code")
	}
	ext := strings.ToLower(filepath.Ext(path))
	interpreter, ok := scriptInterpreters[ext]
	if !ok {
		return nil, fmt.Errorf("script adapter %s: extension %q is not allowed", code, ext)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("script adapter %s: %w", code, err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ScriptAdapter{code: code, path: path, interpreter: interpreter, timeout: timeout}, nil
}

func (a *ScriptAdapter) Code() string {
	return a.code
}

func (a *ScriptAdapter) FetchSnapshot(ctx context.Context) ([]models.RawEventRecord, error) {
	records, err := a.run(ctx)
	if err != nil {
		return nil, &FetchError{Bookmaker: a.code, Err: err}
	}
	return records, nil
}

func (a *ScriptAdapter) run(ctx context.Context) ([]models.RawEventRecord, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.interpreter, a.path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	a.forwardStderr(&stderr)
	if err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("run %s: %w", a.path, runCtx.Err())
		}
		return nil, fmt.Errorf("run %s: %w (stderr: %s)", a.path, err, lastLine(&stderr))
	}

	var raw []scriptRecord
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("decode script output: %w", err)
	}

	fetchedAt := time.Now().UTC()
	records := make([]models.RawEventRecord, 0, len(raw))
	for _, r := range raw {
		rec, ok := r.toRecord(a.code, fetchedAt)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	slog.Debug("Script adapter finished", "bookmaker", a.code, "records", len(records), "duration", time.Since(start))
	return records, nil
}

func (a *ScriptAdapter) forwardStderr(stderr *bytes.Buffer) {
	for _, line := range strings.Split(stderr.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			slog.Debug("Script output", "bookmaker", a.code, "line", line)
		}
	}
}

func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

// scriptRecord is the wire shape scraper scripts print: one JSON array of
// these objects on stdout, logs on stderr.
type scriptRecord struct {
	EventID    FlexString `json:"eventId"`
	Sport      string     `json:"sport"`
	Country    string     `json:"country"`
	Tournament string     `json:"tournament"`
	Event      string     `json:"event"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	Market     string     `json:"market"`
	HomeOdds   FlexFloat  `json:"home_odds"`
	DrawOdds   FlexFloat  `json:"draw_odds"`
	AwayOdds   FlexFloat  `json:"away_odds"`
	StartTime  string     `json:"start_time"`
}

func (r *scriptRecord) toRecord(code string, fetchedAt time.Time) (models.RawEventRecord, bool) {
	name := strings.TrimSpace(r.Event)
	if name == "" && (r.HomeTeam == "" || r.AwayTeam == "") {
		return models.RawEventRecord{}, false
	}
	startTime, err := ParseStartTime(r.StartTime)
	if err != nil {
		slog.Debug("Script record has unparseable start time, keeping without it",
			"bookmaker", code, "event", name, "start_time", r.StartTime)
	}
	sport := strings.TrimSpace(r.Sport)
	if sport == "" {
		sport = "football"
	}
	return models.RawEventRecord{
		ExternalID: strings.TrimSpace(string(r.EventID)),
		Sport:      sport,
		Country:    strings.TrimSpace(r.Country),
		Tournament: strings.TrimSpace(r.Tournament),
		Name:       name,
		HomeTeam:   strings.TrimSpace(r.HomeTeam),
		AwayTeam:   strings.TrimSpace(r.AwayTeam),
		StartTime:  startTime,
		HomeOdds:   float64(r.HomeOdds),
		DrawOdds:   float64(r.DrawOdds),
		AwayOdds:   float64(r.AwayOdds),
		FetchedAt:  fetchedAt,
	}, true
}

// LoadScriptsDir scans dir for scraper scripts and installs each one in the
// registry under its file name (sporty.py registers as "sporty"), replacing
// any built-in adapter for the same code. Returns the codes installed.
func LoadScriptsDir(dir string, timeout time.Duration) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}

	var codes []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := scriptInterpreters[ext]; !ok {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(dir, entry.Name())
		adapter, err := NewScriptAdapter(code, path, timeout)
		if err != nil {
			slog.Warn("Skipping script adapter", "file", entry.Name(), "error", err)
			continue
		}
		if err := Replace(adapter.Code(), func(*config.Config) Adapter { return adapter }); err != nil {
			return nil, err
		}
		codes = append(codes, adapter.Code())
	}
	return codes, nil
}
