package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/omule0/ai-csv-analyst/internal/ai"
	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/chat"
	cfgpkg "github.com/omule0/ai-csv-analyst/internal/config"
	"github.com/omule0/ai-csv-analyst/internal/parser"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// runtimeFactory is replaced in tests.
var runtimeFactory = buildRuntime

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.DefaultProvider != "" {
		providerName = strings.ToLower(cfg.DefaultProvider)
	}
	switch providerName {
	case "":
		providerName = ai.ProviderOpenRouter
	case "local":
		providerName = ai.ProviderOllama
	case "openai", "anthropic", "google", "gemini", "meta", "llama":
		providerName = ai.ProviderOpenRouter
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil {
		apiKey = cfg.APIKey
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		rc.Host = host
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	rt, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return rt, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return "openai/gpt-4o-mini"
}

type assistantFlags struct {
	Model      string
	Provider   string
	OllamaHost string
	MaxTokens  int
}

func (f *assistantFlags) newAssistant() (*chat.Assistant, error) {
	rt, _, err := runtimeFactory(cfg, runtimeOptions{ProviderFlag: f.Provider, OllamaHost: f.OllamaHost})
	if err != nil {
		return nil, err
	}
	maxTokens := cfg.MaxTokens
	if f.MaxTokens > 0 {
		maxTokens = f.MaxTokens
	}
	return &chat.Assistant{
		Runtime:     rt,
		Model:       selectModel(cfg, f.Model),
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
		Stream:      cfg.Stream,
		Logger:      log,
	}, nil
}

type datasetFlags struct {
	Delimiter  string
	Sheet      string
	RawCells   bool
	FullEmbed  bool
	SampleRows int
}

func (f *datasetFlags) parserOptions() (parser.Options, error) {
	opt := parser.Options{RawCells: f.RawCells}
	switch f.Delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.Delimiter)
	}
	if s := strings.TrimSpace(f.Sheet); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			opt.SheetIndex = n
		} else {
			opt.SheetName = s
		}
	}
	return opt, nil
}

func (f *datasetFlags) summaryOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	if cfg != nil {
		opt.SampleSize = cfg.SampleRows
		opt.DistinctSampleSize = cfg.DistinctSample
		opt.TopValues = cfg.TopValues
		opt.MaxBytes = cfg.SummaryMaxBytes
		opt.FullEmbed = cfg.FullEmbed
	}
	if f.SampleRows >= 0 {
		opt.SampleSize = f.SampleRows
	}
	if f.FullEmbed {
		opt.FullEmbed = true
	}
	return opt
}

// loadDataset parses path and builds its summary. Summary warnings are
// logged; the caller decides whether to show them.
func (f *datasetFlags) loadDataset(path string) (*analysis.DatasetSummary, *parser.Table, error) {
	popt, err := f.parserOptions()
	if err != nil {
		return nil, nil, err
	}
	tbl, err := parser.ParseFile(path, popt)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	ds := analysis.Build(tbl.Rows, tbl.Columns, f.summaryOptions())
	ds.Name = tbl.Name
	for _, w := range ds.Warnings {
		log.Warn("cmd", w, map[string]any{"file": path})
	}
	return ds, tbl, nil
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// uniqueOutPath returns dir/base+ext, or dir/base__N+ext for the first N
// that does not exist yet.
func uniqueOutPath(dir, base, ext string) string {
	out := filepath.Join(dir, base+ext)
	if _, err := os.Stat(out); err != nil {
		return out
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}
