// Package collector orchestrates citation discovery: it fans out over the
// tracked item tree, consolidates what the sources return, and folds the
// batch into the persisted citation set without disturbing curator edits.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/dandi/citecollect/internal/citation"
	"github.com/dandi/citecollect/internal/collection"
	"github.com/dandi/citecollect/internal/discovery"
)

// Collector drives discovery runs for one collection. It owns the
// in-memory citation set between load and save.
type Collector struct {
	Collection *collection.Collection

	citations   []citation.Record
	discoverers []discovery.Discoverer
	log         discovery.Logger
	now         func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithDiscoverers replaces the default discoverer set (for testing, or to
// run with custom adapters).
func WithDiscoverers(ds ...discovery.Discoverer) Option {
	return func(c *Collector) { c.discoverers = ds }
}

// WithLogger sets the progress/warning logger.
func WithLogger(log discovery.Logger) Option {
	return func(c *Collector) { c.log = log }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector for a loaded collection.
func New(coll *collection.Collection, opts ...Option) *Collector {
	c := &Collector{
		Collection: coll,
		log:        discovery.StderrLogger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Citations returns the current in-memory citation set.
func (c *Collector) Citations() []citation.Record { return c.citations }

// SetCitations installs a previously persisted citation set as the merge
// baseline for the next discovery run.
func (c *Collector) SetCitations(records []citation.Record) { c.citations = records }

// Options controls a discovery run.
type Options struct {
	// Sources selects which discoverers run, by source name. Nil means all.
	// Unknown names are silently skipped.
	Sources []string

	// Incremental limits queries to citations indexed after the
	// collection's last-updated watermark, when one exists.
	Incremental bool

	// Email is passed to polite-pool APIs.
	Email string
}

// DiscoverAll queries every enabled discoverer for every (item, flavor,
// ref) triple in the collection, stamps each result with its item context,
// and merges the consolidated batch into the citation set. A failing
// discoverer contributes zero records for that ref and the run continues.
// The watermark advances unconditionally at the end of the run.
func (c *Collector) DiscoverAll(ctx context.Context, opts Options) error {
	discoverers := c.enabledDiscoverers(opts)

	var since *time.Time
	if opts.Incremental && c.Collection.LastUpdated != nil {
		since = c.Collection.LastUpdated
	}

	var batch []citation.Record

	for ii := range c.Collection.Items {
		item := &c.Collection.Items[ii]
		for fi := range item.Flavors {
			flavor := &item.Flavors[fi]
			for _, ref := range flavor.Refs {
				if err := ctx.Err(); err != nil {
					return err
				}
				c.log("discovering citations for %s/%s (%s:%s)",
					item.ItemID, flavor.FlavorID, ref.Type, ref.Value)

				for _, d := range discoverers {
					found, err := d.Discover(ctx, ref, since)
					if err != nil {
						c.log("discovering from %s for %s/%s: %v",
							d.Name(), item.ItemID, flavor.FlavorID, err)
						continue
					}
					for i := range found {
						found[i].ItemID = item.ItemID
						found[i].ItemFlavor = flavor.FlavorID
						found[i].ItemRefType = ref.Type
						found[i].ItemRefValue = ref.Value
						found[i].ItemName = item.Name
					}
					batch = append(batch, found...)
					c.log("found %d citations from %s for %s/%s",
						len(found), d.Name(), item.ItemID, flavor.FlavorID)
				}
			}
		}
	}

	c.citations = Merge(c.citations, Deduplicate(batch))

	// The watermark moves even on an empty run so the next incremental run
	// starts from here.
	now := c.now()
	c.Collection.LastUpdated = &now

	return nil
}

// enabledDiscoverers resolves the discoverer set for a run. Injected
// adapters are filtered by the requested source names; otherwise the four
// standard adapters are built fresh with the run's contact email.
func (c *Collector) enabledDiscoverers(opts Options) []discovery.Discoverer {
	all := c.discoverers
	if all == nil {
		all = []discovery.Discoverer{
			discovery.NewCrossRef(discovery.WithCrossRefEmail(opts.Email), discovery.WithCrossRefLogger(c.log)),
			discovery.NewOpenCitations(discovery.WithOpenCitationsLogger(c.log)),
			discovery.NewDataCite(discovery.WithDataCiteLogger(c.log)),
			discovery.NewOpenAlex(discovery.WithOpenAlexEmail(opts.Email), discovery.WithOpenAlexLogger(c.log)),
		}
	}
	if opts.Sources == nil {
		return all
	}

	wanted := make(map[string]bool, len(opts.Sources))
	for _, s := range opts.Sources {
		wanted[s] = true
	}
	var enabled []discovery.Discoverer
	for _, d := range all {
		if wanted[string(d.Name())] {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// RefExpander derives DOI refs from a non-DOI ref, e.g. a Zenodo concept
// DOI expanding to its version DOIs, or a GitHub repo mapping to its
// archived-release DOI.
type RefExpander interface {
	Expands(t citation.RefType) bool
	Expand(ctx context.Context, ref collection.Ref) ([]collection.Ref, error)
}

// ExpandRefs runs the given expanders over every flavor's refs and appends
// the derived DOI refs alongside the originals, skipping duplicates. A
// failing expansion is logged and the remaining refs proceed.
func (c *Collector) ExpandRefs(ctx context.Context, expanders ...RefExpander) error {
	for ii := range c.Collection.Items {
		item := &c.Collection.Items[ii]
		for fi := range item.Flavors {
			flavor := &item.Flavors[fi]

			var derived []collection.Ref
			for _, ref := range flavor.Refs {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, ex := range expanders {
					if !ex.Expands(ref.Type) {
						continue
					}
					c.log("expanding %s:%s for %s", ref.Type, ref.Value, item.ItemID)
					refs, err := ex.Expand(ctx, ref)
					if err != nil {
						c.log("expanding %s:%s: %v", ref.Type, ref.Value, err)
						continue
					}
					derived = append(derived, refs...)
				}
			}

			for _, ref := range derived {
				flavor.AddRef(ref)
			}
		}
	}
	return nil
}

// Promote copies a chosen classification verdict into the citation record
// as its curated relationship. The record's relationship list is replaced,
// the classification fields record the winning model, and the curation
// stamp marks the record as human-reviewed.
func (c *Collector) Promote(key citation.Key, rel citation.Relationship, model string, confidence float64, curator string) error {
	if !rel.IsValid() {
		return fmt.Errorf("unknown relationship type %q", rel)
	}

	for i := range c.citations {
		if citation.RecordKey(&c.citations[i]) != key {
			continue
		}
		rec := &c.citations[i]
		rec.Relationship = rel
		rec.Relationships = []citation.Relationship{rel}
		rec.ClassificationMethod = "llm"
		rec.ClassificationModel = model
		rec.ClassificationConfidence = confidence
		rec.ClassificationReviewed = true
		rec.CuratedBy = curator
		rec.CuratedDate = c.now().UTC().Format("2006-01-02")
		return nil
	}

	return fmt.Errorf("no citation found for %s", key)
}
