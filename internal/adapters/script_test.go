package adapters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNewScriptAdapter_ExtensionBoundary(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "book.sh", "#!/bin/sh\necho '[]'\n")
	writeScript(t, dir, "book.rb", "puts '[]'\n")

	if _, err := NewScriptAdapter("book", filepath.Join(dir, "book.sh"), time.Second); err != nil {
		t.Errorf("NewScriptAdapter(.sh): unexpected error %v", err)
	}
	if _, err := NewScriptAdapter("book", filepath.Join(dir, "book.rb"), time.Second); err == nil {
		t.Error("NewScriptAdapter(.rb) accepted, want extension rejection")
	}
	if _, err := NewScriptAdapter("book", filepath.Join(dir, "missing.sh"), time.Second); err == nil {
		t.Error("NewScriptAdapter(missing file) accepted, want stat error")
	}
	if _, err := NewScriptAdapter("", filepath.Join(dir, "book.sh"), time.Second); err == nil {
		t.Error("NewScriptAdapter(empty code) accepted, want error")
	}
}

func TestScriptAdapter_FetchSnapshot(t *testing.T) {
	dir := t.TempDir()
	body := `#!/bin/sh
echo "fetching" >&2
echo '[{"eventId":"BET1","country":"Kenya","tournament":"Kenya Premier League","event":"Gor Mahia vs AFC Leopards","market":"1X2","home_odds":"1.85","draw_odds":"3.40","away_odds":"4.50","start_time":"2026-04-24 17:00"}]'
`
	path := writeScript(t, dir, "kebook.sh", body)

	a, err := NewScriptAdapter("kebook", path, 10*time.Second)
	if err != nil {
		t.Fatalf("NewScriptAdapter: %v", err)
	}
	records, err := a.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.ExternalID != "BET1" {
		t.Errorf("ExternalID = %q, want %q", rec.ExternalID, "BET1")
	}
	if rec.Name != "Gor Mahia vs AFC Leopards" {
		t.Errorf("Name = %q, want %q", rec.Name, "Gor Mahia vs AFC Leopards")
	}
	if rec.HomeOdds != 1.85 || rec.DrawOdds != 3.40 || rec.AwayOdds != 4.50 {
		t.Errorf("odds = %v/%v/%v, want 1.85/3.4/4.5", rec.HomeOdds, rec.DrawOdds, rec.AwayOdds)
	}
	want := time.Date(2026, 4, 24, 17, 0, 0, 0, time.UTC)
	if !rec.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", rec.StartTime, want)
	}
	if rec.Sport != "football" {
		t.Errorf("Sport = %q, want default %q", rec.Sport, "football")
	}
}

func TestScriptAdapter_FetchSnapshot_ScriptFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "broken.sh", "#!/bin/sh\necho 'api unreachable' >&2\nexit 3\n")

	a, err := NewScriptAdapter("broken", path, 10*time.Second)
	if err != nil {
		t.Fatalf("NewScriptAdapter: %v", err)
	}
	_, err = a.FetchSnapshot(context.Background())
	if err == nil {
		t.Fatal("FetchSnapshot succeeded, want error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a FetchError", err)
	}
	if fe.Bookmaker != "broken" {
		t.Errorf("FetchError.Bookmaker = %q, want %q", fe.Bookmaker, "broken")
	}
	if !strings.Contains(err.Error(), "api unreachable") {
		t.Errorf("error %q does not carry the script's stderr tail", err.Error())
	}
}

func TestScriptAdapter_FetchSnapshot_BadOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "garbled.sh", "#!/bin/sh\necho 'not json'\n")

	a, err := NewScriptAdapter("garbled", path, 10*time.Second)
	if err != nil {
		t.Fatalf("NewScriptAdapter: %v", err)
	}
	if _, err := a.FetchSnapshot(context.Background()); err == nil {
		t.Error("FetchSnapshot accepted non-JSON stdout, want decode error")
	}
}

func TestLoadScriptsDir(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "kebook.sh", "#!/bin/sh\necho '[]'\n")
	writeScript(t, dir, "notes.txt", "not a script\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	codes, err := LoadScriptsDir(dir, time.Second)
	if err != nil {
		t.Fatalf("LoadScriptsDir: %v", err)
	}
	if len(codes) != 1 || codes[0] != "kebook" {
		t.Fatalf("LoadScriptsDir codes = %v, want [kebook]", codes)
	}
	if _, ok := FactoryByName("kebook"); !ok {
		t.Error("FactoryByName(kebook) not found after LoadScriptsDir")
	}
}
