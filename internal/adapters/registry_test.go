package adapters

import (
	"context"
	"testing"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

type nopAdapter struct {
	code string
}

func (a *nopAdapter) Code() string { return a.code }

func (a *nopAdapter) FetchSnapshot(context.Context) ([]models.RawEventRecord, error) {
	return nil, nil
}

func TestRegister_RoundTrip(t *testing.T) {
	Register("Test-Book-A", func(*config.Config) Adapter { return &nopAdapter{code: "test-book-a"} })

	f, ok := FactoryByName("test-book-a")
	if !ok {
		t.Fatal("FactoryByName(test-book-a) not found after Register")
	}
	if got := f(nil).Code(); got != "test-book-a" {
		t.Errorf("factory built adapter with code %q, want %q", got, "test-book-a")
	}

	// Lookup is case-insensitive.
	if _, ok := FactoryByName("TEST-BOOK-A"); !ok {
		t.Error("FactoryByName(TEST-BOOK-A) not found, lookup should be case-insensitive")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	Register("test-book-dup", func(*config.Config) Adapter { return &nopAdapter{code: "test-book-dup"} })

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register("test-book-dup", func(*config.Config) Adapter { return &nopAdapter{code: "test-book-dup"} })
}

func TestReplace_OverwritesExisting(t *testing.T) {
	Register("test-book-b", func(*config.Config) Adapter { return &nopAdapter{code: "original"} })

	if err := Replace("test-book-b", func(*config.Config) Adapter { return &nopAdapter{code: "replacement"} }); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	f, ok := FactoryByName("test-book-b")
	if !ok {
		t.Fatal("FactoryByName(test-book-b) not found after Replace")
	}
	if got := f(nil).Code(); got != "replacement" {
		t.Errorf("factory built adapter with code %q, want %q", got, "replacement")
	}
}

func TestReplace_RejectsEmptyNameAndNilFactory(t *testing.T) {
	if err := Replace("", func(*config.Config) Adapter { return &nopAdapter{} }); err == nil {
		t.Error("Replace with empty name did not fail")
	}
	if err := Replace("test-book-c", nil); err == nil {
		t.Error("Replace with nil factory did not fail")
	}
}

func TestAvailableNames_Sorted(t *testing.T) {
	Register("test-book-z", func(*config.Config) Adapter { return &nopAdapter{code: "test-book-z"} })
	Register("test-book-m", func(*config.Config) Adapter { return &nopAdapter{code: "test-book-m"} })

	names := AvailableNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("AvailableNames not sorted: %v", names)
		}
	}
}
