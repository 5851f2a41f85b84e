package job_test

import (
	"context"
	"testing"

	"github.com/jobward/jobward/job"
)

func noopFunc(jobType string) *job.Func {
	return job.NewFunc(
		job.Definition{JobType: jobType},
		func(context.Context) (bool, error) { return true, nil },
	)
}

func TestRegistryFindIsCaseInsensitive(t *testing.T) {
	registry := job.NewRegistry()
	registry.Register(noopFunc("FullImport"))

	for _, lookup := range []string{"FullImport", "fullimport", "FULLIMPORT"} {
		runnable, ok := registry.Find(lookup)
		if !ok {
			t.Fatalf("Find(%q) = not found, want found", lookup)
		}
		if got := runnable.Definition().JobType; got != "FullImport" {
			t.Errorf("Find(%q) job type = %q, want %q", lookup, got, "FullImport")
		}
	}
}

func TestRegistryFindUnknownType(t *testing.T) {
	registry := job.NewRegistry()

	if _, ok := registry.Find("nope"); ok {
		t.Error("Find on empty registry reported a runnable")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	registry := job.NewRegistry()

	first := noopFunc("import")
	second := noopFunc("Import")
	registry.Register(first)
	registry.Register(second)

	runnable, ok := registry.Find("import")
	if !ok {
		t.Fatal("Find after re-register = not found")
	}
	if runnable != job.Runnable(second) {
		t.Error("Find returned the replaced runnable")
	}

	if types := registry.JobTypes(); len(types) != 1 {
		t.Errorf("JobTypes() = %v, want exactly one entry", types)
	}
}

func TestRegistryJobTypesReturnsCanonicalNames(t *testing.T) {
	registry := job.NewRegistry()
	registry.Register(noopFunc("FullImport"))
	registry.Register(noopFunc("delta-import"))

	types := registry.JobTypes()
	if len(types) != 2 {
		t.Fatalf("JobTypes() = %v, want 2 entries", types)
	}

	seen := map[string]bool{}
	for _, jt := range types {
		seen[jt] = true
	}
	if !seen["FullImport"] || !seen["delta-import"] {
		t.Errorf("JobTypes() = %v, want canonical names preserved", types)
	}
}
