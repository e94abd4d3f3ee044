package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/omule0/ai-csv-analyst/internal/ai"
	cfgpkg "github.com/omule0/ai-csv-analyst/internal/config"
)

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENROUTER_API_KEY", "")
	return home
}

type scriptedRuntime struct {
	reply string
	calls int
}

func (s *scriptedRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.calls++
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: ai.RoleAssistant, Content: s.reply}}}}, nil
}

func useRuntime(t *testing.T, rt ai.Runtime) {
	t.Helper()
	old := runtimeFactory
	runtimeFactory = func(*cfgpkg.Global, runtimeOptions) (ai.Runtime, string, error) {
		return rt, "stub", nil
	}
	t.Cleanup(func() { runtimeFactory = old })
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestAnalyzeBatchCollisionSuffix(t *testing.T) {
	home := isolateHome(t)
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv)
	outDir := filepath.Join(home, "out")

	runCmd(t, "analyze", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--quiet")

	b1 := filepath.Join(outDir, "metrics.summary.md")
	b2 := filepath.Join(outDir, "metrics__2.summary.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing summary: %v", err)
		}
		if !strings.Contains(string(body), "Rows: 3") {
			t.Fatalf("unexpected summary in %s:\n%s", p, body)
		}
	}
}

func TestAnalyzeJSONToStdout(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "sales.csv")
	writeFile(t, path, "region,units\nNorth,10\nSouth,4\n")

	out := runCmd(t, "analyze", path, "--format", "json", "--sample-rows", "0")
	var rep analysisReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.File != "sales.csv" || rep.Summary.RowCount != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Summary.Sample) != 0 {
		t.Fatalf("expected no sample rows, got %d", len(rep.Summary.Sample))
	}
	if rep.Summary.PerColumn["units"].Kind != "numeric" {
		t.Fatalf("units should be numeric: %+v", rep.Summary.PerColumn["units"])
	}
}

func TestAnalyzeInsights(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "sales.csv")
	writeFile(t, path, "region,units\nNorth,10\nSouth,4\n")
	rt := &scriptedRuntime{reply: "- North leads"}
	useRuntime(t, rt)

	out := runCmd(t, "analyze", path, "--insights")
	if !strings.Contains(out, "[AI INSIGHTS]\n- North leads") {
		t.Fatalf("insights missing:\n%s", out)
	}
	if rt.calls != 1 {
		t.Fatalf("expected one generation, got %d", rt.calls)
	}
}

func TestAnalyzeNoMatches(t *testing.T) {
	home := isolateHome(t)
	_, _, err := execute(t, "", "analyze", filepath.Join(home, "*.csv"))
	if err == nil || !strings.Contains(err.Error(), "no input files matched") {
		t.Fatalf("expected no-match error, got %v", err)
	}
}

func TestChatAsk(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "sales.csv")
	writeFile(t, path, "region,units\nNorth,10\nSouth,4\n")
	useRuntime(t, &scriptedRuntime{reply: `{"type":"table","content":"Units by region","data":{"headers":["region","units"],"rows":[{"region":"North","units":10},{"region":"South","units":4}]}}`})

	out := runCmd(t, "chat", path, "--ask", "units by region?")
	for _, want := range []string{"Units by region", "region  units", "North   10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestChatAskFallback(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "sales.csv")
	writeFile(t, path, "region,units\nNorth,10\n")
	useRuntime(t, &scriptedRuntime{reply: `{"type":"table","content":"x","data":{"headers":["nope"],"rows":[]}}`})

	out := runCmd(t, "chat", path, "--ask", "anything")
	if !strings.Contains(out, "The assistant's response could not be displayed.") {
		t.Fatalf("expected fallback text, got:\n%s", out)
	}
}

func TestChatREPL(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "sales.csv")
	writeFile(t, path, "region,units\nNorth,10\n")
	rt := &scriptedRuntime{reply: `{"type":"text","content":"Ten units."}`}
	useRuntime(t, rt)

	out, _, err := execute(t, "how many?\n\nagain?\nexit\nignored\n", "chat", path)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if rt.calls != 2 {
		t.Fatalf("expected 2 turns, got %d", rt.calls)
	}
	if !strings.HasPrefix(out, "I have loaded sales.csv with 1 rows and 2 columns: region, units.") {
		t.Fatalf("missing opening message:\n%s", out)
	}
	if strings.Count(out, "Ten units.") != 2 {
		t.Fatalf("expected two answers:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	isolateHome(t)
	out, _, err := execute(t, `{"type":"chart","content":"Share","data":{"chartConfig":{"type":"pie","xAxis":"k","yAxis":["v"]},"rows":[{"k":"a","v":3},{"k":"b","v":1}]}}`, "validate", "-")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "75.0%") {
		t.Fatalf("expected pie output, got:\n%s", out)
	}

	_, _, err = execute(t, `{"type":"chart","content":"","data":{"chartConfig":{"type":"bar","xAxis":"missing","yAxis":["y"]},"rows":[{"y":1}]}}`, "validate", "-")
	if err == nil || !strings.Contains(err.Error(), "dangling_reference") {
		t.Fatalf("expected dangling reference error, got %v", err)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	home := isolateHome(t)
	runCmd(t, "config", "set", "max_tokens", "512")
	runCmd(t, "config", "set", "api_key", "sk-abcdefghijkl")

	if _, err := os.Stat(filepath.Join(home, ".csv-analyst", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "max_tokens: 512") {
		t.Fatalf("max_tokens not persisted:\n%s", out)
	}
	if !strings.Contains(out, "api_key: sk-****jkl") {
		t.Fatalf("api key not masked:\n%s", out)
	}

	if _, _, err := execute(t, "", "config", "set", "temperature", "9"); err == nil {
		t.Fatal("expected validation error for temperature")
	}
}

func TestBuildRuntimeDefaults(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultProvider: "local", OllamaHost: "http://example"}
	client, provider, err := buildRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	if provider != ai.ProviderOllama {
		t.Fatalf("expected ollama provider, got %q", provider)
	}
	if client == nil {
		t.Fatal("expected runtime client")
	}

	if _, _, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: "bogus"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	_, provider, err = buildRuntime(&cfgpkg.Global{}, runtimeOptions{ProviderFlag: "anthropic"})
	if err != nil || provider != ai.ProviderOpenRouter {
		t.Fatalf("expected openrouter, got %q (%v)", provider, err)
	}
}

func TestUniqueOutPath(t *testing.T) {
	dir := t.TempDir()
	first := uniqueOutPath(dir, "a", ".summary.md")
	if filepath.Base(first) != "a.summary.md" {
		t.Fatalf("unexpected first path %s", first)
	}
	writeFile(t, first, "x")
	writeFile(t, filepath.Join(dir, "a__2.summary.md"), "x")
	if got := filepath.Base(uniqueOutPath(dir, "a", ".summary.md")); got != "a__3.summary.md" {
		t.Fatalf("expected a__3.summary.md, got %s", got)
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{"": "", "abc": "******", "sk-abcdefghijkl": "sk-****jkl"}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Fatalf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestModelsCommand(t *testing.T) {
	isolateHome(t)
	out := runCmd(t, "models", "--json")
	var cat []ai.ModelInfo
	if err := json.Unmarshal([]byte(out), &cat); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(cat) != len(ai.Catalog()) {
		t.Fatalf("expected %d models, got %d", len(ai.Catalog()), len(cat))
	}

	out = runCmd(t, "models")
	if !strings.Contains(out, "phi3:mini-4k-instruct") || !strings.Contains(out, "Providers: [ollama openrouter]") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
}
