package rulesfile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/weftsh/weft/remote"
	"github.com/weftsh/weft/workflow"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

// TestBuild_ShellRules tests that a parsed file becomes a runnable workflow.
func TestBuild_ShellRules(t *testing.T) {
	chdir(t, t.TempDir())

	f, err := Parse([]byte(`rules:
  - name: raw
    output: data/{sample}.raw
    shell: printf 'raw-{sample}' > {output}
  - name: clean
    input: data/{sample}.raw
    output: data/{sample}.clean
    message: cleaning {sample}
    shell: cat {input} > {output} && printf '+clean' >> {output}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wf, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := wf.Produce(context.Background(), "data/s1.clean", workflow.RunConfig{Quiet: true}); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	data, err := os.ReadFile(filepath.Join("data", "s1.clean"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "raw-s1+clean" {
		t.Errorf("content = %q, want raw-s1+clean", data)
	}
}

// TestBuild_AppliesWorkdir tests that the workdir field moves the process
// before any rule runs.
func TestBuild_AppliesWorkdir(t *testing.T) {
	chdir(t, t.TempDir())

	f, err := Parse([]byte(`workdir: sub
rules:
  - name: touch
    output: made.txt
    shell: printf x > {output}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wf, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := wf.RunFirst(context.Background(), workflow.RunConfig{Quiet: true}); err != nil {
		t.Fatalf("RunFirst: %v", err)
	}
	if _, err := os.Stat("made.txt"); err != nil {
		t.Errorf("output should land in the workdir: %v", err)
	}
}

// TestBuild_GlobInputs tests glob expansion against the workdir.
func TestBuild_GlobInputs(t *testing.T) {
	chdir(t, t.TempDir())
	if err := os.MkdirAll("src", 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join("src", name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f, err := Parse([]byte(`rules:
  - name: bundle
    input:
      - glob: "src/*.txt"
    output: bundle.txt
    shell: cat {input} > {output}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wf, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r, ok := wf.Rule("bundle")
	if !ok {
		t.Fatal("rule bundle not registered")
	}
	inputs := r.InputPatterns()
	if len(inputs) != 2 || inputs[0] != "src/a.txt" || inputs[1] != "src/b.txt" {
		t.Fatalf("glob inputs = %v, want sorted [src/a.txt src/b.txt]", inputs)
	}

	if err := wf.RunFirst(context.Background(), workflow.RunConfig{Quiet: true}); err != nil {
		t.Fatalf("RunFirst: %v", err)
	}
	data, err := os.ReadFile("bundle.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a.txtb.txt" {
		t.Errorf("bundle = %q", data)
	}
}

// TestBuild_FetchRule tests that fetch rules download through the remote
// client.
func TestBuild_FetchRule(t *testing.T) {
	chdir(t, t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f, err := Parse([]byte("rules:\n  - name: data\n    fetch: " + srv.URL + "/data.csv\n    output: data.csv\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wf, err := Build(f, WithRemoteClient(remote.NewClient(remote.WithHTTPClient(srv.Client()))))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := wf.RunFirst(context.Background(), workflow.RunConfig{Quiet: true}); err != nil {
		t.Fatalf("RunFirst: %v", err)
	}
	data, err := os.ReadFile("data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("fetched = %q", data)
	}
}

// TestBuild_ValidationFailure tests that error-severity problems abort.
func TestBuild_ValidationFailure(t *testing.T) {
	f, err := Parse([]byte(`rules:
  - name: broken
    input: "{x}.in"
    output: out.txt
    shell: "true"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := Build(f); err == nil {
		t.Fatal("Build should reject an input wildcard no output binds")
	}
}

// TestBuild_MissingAction tests the CheckRules pass at build time.
func TestBuild_MissingAction(t *testing.T) {
	f, err := Parse([]byte("rules:\n  - name: inert\n    output: out.txt\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	_, err = Build(f)
	var missing *workflow.MissingActionError
	if !errors.As(err, &missing) {
		t.Fatalf("Build error = %v, want MissingActionError", err)
	}
}
