// Package parser turns a schema registry into the parsed cache.
//
// The pipeline is Select -> Classify -> Build -> Write. Exclusion rules
// decide which entity types survive; the classifier then checks that every
// to-one relation of a survivor stays inside the surviving set and drops
// to-many relations that leave it, reporting each drop.
package parser

import (
	"context"
	"fmt"
	"sync"

	"github.com/vvka-141/dbfill/internal/cache"
	"github.com/vvka-141/dbfill/internal/exclusion"
	"github.com/vvka-141/dbfill/internal/logging"
	"github.com/vvka-141/dbfill/internal/report"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Options configures a Parser.
type Options struct {
	Overrides exclusion.Overrides
	Sink      dbfill.Sink   // Receives dropped-relation warnings; required by Build and Parse
	Logger    dbfill.Logger // Defaults to a NullLogger
	Workers   int           // Parallel classification when > 1
	Writer    *cache.Writer // Defaults to parsed_cache.json in the working directory
}

// Parser exports one registry snapshot. Rules and the selection are
// computed once, on first use.
type Parser struct {
	registry dbfill.Registry
	opts     Options
	handler  *report.Handler

	rules     func() (*exclusion.Rules, error)
	selection func() (*Selection, error)
}

// New creates a Parser over reg.
func New(reg dbfill.Registry, opts Options) *Parser {
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}
	if opts.Writer == nil {
		opts.Writer = cache.NewWriter("", "")
	}

	p := &Parser{
		registry: reg,
		opts:     opts,
		handler:  report.NewHandler(opts.Sink),
	}
	p.rules = sync.OnceValues(p.loadRules)
	p.selection = sync.OnceValues(p.loadSelection)
	return p
}

func (p *Parser) loadRules() (*exclusion.Rules, error) {
	var actor *dbfill.TypeRef
	if ref, ok := p.registry.Actor(); ok {
		actor = &ref
	}
	rules, err := exclusion.New(p.opts.Overrides, actor)
	if err != nil {
		return nil, err
	}
	p.opts.Logger.Verbose("Exclusion rules: %s", rules)
	return rules, nil
}

func (p *Parser) loadSelection() (*Selection, error) {
	rules, err := p.rules()
	if err != nil {
		return nil, err
	}
	sel := Select(p.registry, rules)
	p.opts.Logger.Verbose("Selected %d entity types in %d groups", sel.Len(), len(sel.Groups()))
	return sel, nil
}

// Rules returns the effective exclusion rules.
func (p *Parser) Rules() (*exclusion.Rules, error) {
	return p.rules()
}

// Tables returns the surviving set.
func (p *Parser) Tables() (*Selection, error) {
	return p.selection()
}

// Build classifies the surviving entity types and returns the schema map
// without writing it.
func (p *Parser) Build(ctx context.Context) (*dbfill.SchemaMap, error) {
	sink, err := p.handler.Sink()
	if err != nil {
		return nil, err
	}
	sel, err := p.selection()
	if err != nil {
		return nil, err
	}

	b := NewBuilder(NewClassifier(p.registry, sel, sink), p.opts.Workers)
	return b.Build(ctx, sel)
}

// Parse builds the schema map and writes it to the cache file.
// Nothing is written when the build fails.
func (p *Parser) Parse(ctx context.Context) (string, error) {
	m, err := p.Build(ctx)
	if err != nil {
		return "", err
	}

	path, err := p.opts.Writer.Write(m)
	if err != nil {
		return "", fmt.Errorf("failed to write parsed cache: %w", err)
	}
	p.opts.Logger.Info("Parsed cache written to %s", path)
	return path, nil
}
