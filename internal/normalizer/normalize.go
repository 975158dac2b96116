package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goforj/godump"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/spokenform/internal/observe"
	"github.com/MrWong99/spokenform/internal/permute"
	"github.com/MrWong99/spokenform/internal/pipeline"
	"github.com/MrWong99/spokenform/pkg/tokens"
)

// Normalize returns the spoken form of text. It never fails: when a stage
// cannot handle the text, the failure is logged and text is returned
// unchanged.
func (n *Normalizer) Normalize(ctx context.Context, text string, opts Options) string {
	out, err := n.NormalizeE(ctx, text, opts)
	if err == nil {
		return out
	}
	var se *StageError
	if !errors.As(err, &se) {
		se = stageError("normalize", err)
	}
	log := observe.Logger(ctx, n.logger).With("stage", se.Stage, "reason", se.Reason, "err", err)
	switch se.Reason {
	case ReasonBoundExceeded, ReasonInternal:
		log.Error("normalizer: returning input unchanged")
	case ReasonCanceled:
		log.Debug("normalizer: returning input unchanged")
	default:
		log.Warn("normalizer: returning input unchanged")
	}
	return text
}

// NormalizeE is Normalize for callers that branch on the failure. On error
// it returns text unchanged together with a *StageError.
func (n *Normalizer) NormalizeE(ctx context.Context, text string, opts Options) (out string, err error) {
	ctx, span := observe.StartSpan(ctx, "normalizer.Normalize",
		trace.WithAttributes(attribute.String("language", n.language)))
	start := time.Now()
	n.metrics.ActiveNormalizations.Add(ctx, 1)
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: "normalize", Reason: ReasonInternal, Err: fmt.Errorf("panic: %v", r)}
		}
		reason := ""
		if err != nil {
			out = text
			reason = string(stageError("normalize", err).Reason)
		}
		n.metrics.ActiveNormalizations.Add(ctx, -1)
		n.metrics.RecordNormalization(ctx, time.Since(start), reason)
		observe.EndSpan(span, err)
	}()

	if words := len(strings.Fields(text)); words > LongInputWords {
		observe.Logger(ctx, n.logger).Warn("normalizer: long input, normalization may be slow", "words", words)
	}
	if err := ctx.Err(); err != nil {
		return text, stageError("normalize", err)
	}
	if !utf8.ValidString(text) {
		return text, stageError("normalize", ErrInvalidUTF8)
	}

	s := norm.NFC.String(text)
	if opts.PunctuationPreProcess {
		err := n.stage(ctx, observe.StagePreProcess, func(context.Context) (err error) {
			s, err = n.punctPre.Process(s)
			return err
		})
		if err != nil {
			return text, err
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return s, nil
	}

	var tagged string
	err = n.stage(ctx, observe.StageClassify, func(context.Context) (err error) {
		tagged, _, err = n.classifier.Classify(s)
		return err
	})
	if err != nil {
		return text, err
	}

	var toks []tokens.Token
	err = n.stage(ctx, observe.StageParse, func(context.Context) (err error) {
		toks, err = n.parser.Parse(tagged)
		return err
	})
	if err != nil {
		return text, err
	}
	if opts.Verbose {
		observe.Logger(ctx, n.logger).Info("normalizer: token trees", "tagged", tagged, "tree", godump.DumpStr(toks))
	}

	var spoken string
	err = n.stage(ctx, observe.StageVerbalize, func(ctx context.Context) (err error) {
		spoken, err = n.verbalize(ctx, toks, opts.MaxPermutationsPerSplit)
		return err
	})
	if err != nil {
		return text, err
	}

	err = n.stage(ctx, observe.StagePostProcess, func(context.Context) (err error) {
		if spoken, err = n.post.Process(spoken); err != nil {
			return err
		}
		if opts.PunctuationPostProcess {
			spoken, err = n.punctPost.Process(spoken)
		}
		return err
	})
	if err != nil {
		return text, err
	}
	return spoken, nil
}

// stage runs fn inside a span, records its duration and wraps its error.
func (n *Normalizer) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observe.StartSpan(ctx, "normalizer."+name)
	start := time.Now()
	err := fn(ctx)
	n.metrics.RecordStage(ctx, name, time.Since(start))
	observe.EndSpan(span, err)
	if err != nil {
		return stageError(name, err)
	}
	return nil
}

// verbalize splits toks into bounded chunks, verbalizes each and joins the
// results with single spaces.
func (n *Normalizer) verbalize(ctx context.Context, toks []tokens.Token, bound uint64) (string, error) {
	if bound == 0 {
		bound = n.maxPerms
	}
	chunks, err := permute.Split(toks, bound)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out, err := n.verbalizeChunk(ctx, chunk)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return collapseSpaces(strings.Join(parts, " ")), nil
}

// verbalizeChunk tries the field orders of chunk in enumeration order and
// returns the output of the first one the verbalizer accepts.
func (n *Normalizer) verbalizeChunk(ctx context.Context, chunk []tokens.Token) (string, error) {
	var tried int64
	defer func() { n.metrics.VariantsTried.Add(ctx, tried) }()
	for variant := range permute.Variants(chunk) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tried++
		out, err := n.verbalizer.Verbalize(variant)
		if errors.Is(err, pipeline.ErrEmptyLattice) {
			continue
		}
		if err != nil {
			return "", err
		}
		return out, nil
	}
	return "", fmt.Errorf("%w: none of %d field orders verbalized %s",
		pipeline.ErrEmptyLattice, tried, tokens.Serialize(chunk))
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := false
	for _, r := range s {
		if r == ' ' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// NormalizeList normalizes texts on up to the configured number of workers
// and returns the results in input order. A text that fails is returned
// unchanged without affecting the others. When ctx ends, texts not yet
// started are returned unchanged together with the context error.
func (n *Normalizer) NormalizeList(ctx context.Context, texts []string, opts Options) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)

	var g errgroup.Group
	g.SetLimit(n.workers)
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i] = n.Normalize(ctx, text, opts)
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}
