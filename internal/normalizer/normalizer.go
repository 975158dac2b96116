// Package normalizer turns written text into its spoken form.
//
// A [Normalizer] owns the compiled grammars of one language and runs every
// text through the same stages: optional punctuation padding, classification,
// parsing, field-order search with verbalization, and post-processing. Any
// failure returns the input unchanged, so [Normalizer.Normalize] never fails.
package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/MrWong99/spokenform/internal/gcache"
	"github.com/MrWong99/spokenform/internal/observe"
	"github.com/MrWong99/spokenform/internal/permute"
	"github.com/MrWong99/spokenform/internal/pipeline"
	"github.com/MrWong99/spokenform/internal/postprocess"
	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/pkg/tokens"
)

// LongInputWords is the word count above which a text is logged as
// possibly slow.
const LongInputWords = 500

// Options tune a single call.
type Options struct {
	// PunctuationPreProcess pads brackets with spaces before classification.
	PunctuationPreProcess bool

	// PunctuationPostProcess removes the spaces verbalization leaves around
	// punctuation.
	PunctuationPostProcess bool

	// MaxPermutationsPerSplit bounds the field orders tried per chunk.
	// Zero means the normalizer's default.
	MaxPermutationsPerSplit uint64

	// Verbose logs the parsed token trees.
	Verbose bool
}

// Option configures a Normalizer at construction.
type Option func(*Normalizer)

// WithInputCase selects the whitelist behaviour for lower-cased or cased
// input. The default is [registry.Cased].
func WithInputCase(c registry.InputCase) Option {
	return func(n *Normalizer) { n.inputCase = c }
}

// WithWhitelist merges the TSV whitelist at path into the language's own.
func WithWhitelist(path string) Option {
	return func(n *Normalizer) { n.whitelist = path }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(n *Normalizer) {
		if m != nil {
			n.metrics = m
		}
	}
}

// WithGrammarCache loads compiled grammars from c and stores them there.
func WithGrammarCache(c *gcache.Cache) Option {
	return func(n *Normalizer) { n.cache = c }
}

// WithVerbalizeCache memoises up to size verbalizer results for ttl.
func WithVerbalizeCache(size int, ttl time.Duration) Option {
	return func(n *Normalizer) { n.cacheSize, n.cacheTTL = size, ttl }
}

// WithWorkers sets how many texts [Normalizer.NormalizeList] processes at
// once. The default is GOMAXPROCS.
func WithWorkers(w int) Option {
	return func(n *Normalizer) {
		if w > 0 {
			n.workers = w
		}
	}
}

// WithMaxDepth bounds node nesting in parsed token trees.
func WithMaxDepth(d int) Option {
	return func(n *Normalizer) { n.parser.MaxDepth = d }
}

// WithMaxPermutations sets the default field-order bound per chunk.
func WithMaxPermutations(m uint64) Option {
	return func(n *Normalizer) {
		if m > 0 {
			n.maxPerms = m
		}
	}
}

// Normalizer runs texts of one language through the compiled grammars. It
// is immutable after New and safe for concurrent use.
type Normalizer struct {
	language  string
	inputCase registry.InputCase
	whitelist string

	logger  *slog.Logger
	metrics *observe.Metrics
	cache   *gcache.Cache

	cacheSize int
	cacheTTL  time.Duration
	workers   int
	maxPerms  uint64
	parser    tokens.Parser

	packs      []string
	classifier *pipeline.Classifier
	verbalizer *pipeline.Verbalizer
	post       *postprocess.Processor
	punctPre   *postprocess.Processor
	punctPost  *postprocess.Processor
}

// New builds the grammars of language from reg, or loads them from the
// grammar cache, and returns a normalizer over them.
func New(reg *registry.Registry, language string, opts ...Option) (*Normalizer, error) {
	if reg == nil || !slices.Contains(reg.Languages(), language) {
		return nil, fmt.Errorf("normalizer: %w: %q", registry.ErrUnsupportedLanguage, language)
	}
	n := &Normalizer{
		language:  language,
		inputCase: registry.Cased,
		logger:    slog.Default(),
		metrics:   observe.DefaultMetrics(),
		workers:   runtime.GOMAXPROCS(0),
		maxPerms:  permute.DefaultBound,
	}
	for _, o := range opts {
		o(n)
	}
	if !n.inputCase.IsValid() {
		return nil, fmt.Errorf("normalizer: invalid input case %q", n.inputCase)
	}

	wl, err := gcache.WhitelistIdentity(n.whitelist)
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	key := gcache.Key{
		Language:      language,
		Deterministic: true,
		InputCase:     string(n.inputCase),
		Whitelist:     wl,
	}

	start := time.Now()
	g, cached, err := n.cache.LoadOrBuild(key, func() (*pipeline.Grammars, error) {
		set, err := reg.Build(language, registry.Options{InputCase: n.inputCase, WhitelistPath: n.whitelist})
		if err != nil {
			return nil, err
		}
		return pipeline.Compile(set)
	})
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	elapsed := time.Since(start)
	n.metrics.RecordGrammarBuild(context.Background(), language, cached, elapsed)
	n.logger.Info("normalizer: grammars ready",
		"language", language,
		"input_case", n.inputCase,
		"cached", cached,
		"packs", len(g.Packs),
		"duration", elapsed,
	)

	n.packs = g.Packs
	n.classifier = pipeline.NewClassifier(g)
	n.verbalizer = pipeline.NewVerbalizer(g, pipeline.WithCache(n.cacheSize, n.cacheTTL))
	n.post = postprocess.FromChain(g.Post)
	if n.punctPre, err = postprocess.New(postprocess.PunctuationPre()...); err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	if n.punctPost, err = postprocess.New(postprocess.PunctuationPost()...); err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	return n, nil
}

// Language returns the language code the normalizer was built for.
func (n *Normalizer) Language() string { return n.language }

// Packs returns the names of the grammar packs in use.
func (n *Normalizer) Packs() []string { return slices.Clone(n.packs) }
