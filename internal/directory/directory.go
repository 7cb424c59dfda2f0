// Package directory implements the local resolver and link graph: it maps
// logical keys to the processes currently serving them, caching
// membership-service lookups, and maintains a bidirectional link graph so
// that death of either endpoint produces exactly one notification to the
// survivor. All tables are private to the directory's single dispatch
// loop.
package directory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"domaincore/internal/membership"
	"domaincore/internal/observability"
	"domaincore/internal/proc"
	"domaincore/pkg/object"
)

// NoticeKind identifies a directory notification.
type NoticeKind string

const (
	// NoticeSuperseded informs a previous owner that its key was
	// re-registered by a different process. Informational only.
	NoticeSuperseded NoticeKind = "superseded"
	// NoticeLinkFallen informs a link origin that the destination died.
	NoticeLinkFallen NoticeKind = "link_fallen"
	// NoticeLinkDown informs a link destination that the origin died.
	NoticeLinkDown NoticeKind = "link_down"
)

// Notice is one directory notification delivered to a registered party.
type Notice struct {
	Kind    NoticeKind
	Key     string // the receiving party's key
	PeerKey string // the other endpoint, for link notices
	Tag     string // the link tag, for link notices
	Reason  string // exit reason of the dead process
}

// Party couples a process handle with its notification endpoint. Notify
// may be nil for parties that only need liveness-driven cleanup.
type Party struct {
	Proc   *proc.Proc
	Notify func(Notice)
}

type cacheEntry struct {
	metadata map[string]any
	party    Party
}

type linkID struct {
	tag    string
	origin string
	dest   string
}

type linkRecord struct {
	id     linkID
	origin Party
	dest   Party
}

type procRefs struct {
	keys  map[string]struct{}
	links map[linkID]struct{}
	cancel func()
}

// Directory is the resolver/link-graph process.
type Directory struct {
	mailbox chan func()
	self    *proc.Proc

	members membership.Service
	cache   map[string]cacheEntry
	links   map[linkID]linkRecord
	index   map[string]*procRefs // proc id → held keys and links

	log     zerolog.Logger
	metrics observability.MetricsRecorder
}

// New starts a directory over the given membership service.
func New(members membership.Service, logger zerolog.Logger, metrics observability.MetricsRecorder) *Directory {
	d := &Directory{
		mailbox: make(chan func(), 256),
		self:    proc.New("directory"),
		members: members,
		cache:   make(map[string]cacheEntry),
		links:   make(map[linkID]linkRecord),
		index:   make(map[string]*procRefs),
		log:     logger.With().Str("component", "directory").Logger(),
		metrics: metrics,
	}
	go d.loop()
	return d
}

func (d *Directory) loop() {
	for {
		select {
		case fn := <-d.mailbox:
			fn()
		case <-d.self.Done():
			return
		}
	}
}

func (d *Directory) enqueue(fn func()) {
	select {
	case d.mailbox <- fn:
	case <-d.self.Done():
	}
}

func (d *Directory) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	d.enqueue(func() { errc <- fn() })
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.self.Done():
		return object.NotFoundError{Ref: "directory"}
	}
}

// Close stops the directory loop. Held watches are cancelled; no further
// notices are delivered.
func (d *Directory) Close() {
	d.enqueue(func() {
		for _, refs := range d.index {
			refs.cancel()
		}
	})
	d.self.Exit("closed")
}

// Resolve returns the metadata and process handle serving key. A cache
// hit answers immediately; a miss consults the membership service and
// caches the result indexed under the owning process.
func (d *Directory) Resolve(ctx context.Context, key string) (map[string]any, *proc.Proc, error) {
	start := time.Now()
	var metadata map[string]any
	var handle *proc.Proc
	err := d.call(ctx, func() error {
		if entry, ok := d.cache[key]; ok && entry.party.Proc.Alive() {
			metadata = object.CloneMap(entry.metadata)
			handle = entry.party.Proc
			return nil
		}
		entries, err := d.members.Lookup(ctx, key)
		if err != nil || len(entries) == 0 {
			return object.NotFoundError{Ref: key}
		}
		found := entries[0]
		d.put(key, found.Metadata, Party{Proc: found.Handle})
		metadata = object.CloneMap(found.Metadata)
		handle = found.Handle
		return nil
	})
	observability.Record(ctx, d.metrics, "directory.resolve", err == nil, time.Since(start))
	return metadata, handle, err
}

// Register publishes key → (metadata, owner) to the membership service,
// then updates the local cache unconditionally: the registering process
// is authoritative for its own key. A previous owner under a different
// process receives a superseded notice.
func (d *Directory) Register(ctx context.Context, key string, metadata map[string]any, owner Party) error {
	start := time.Now()
	err := d.call(ctx, func() error {
		if err := d.members.Publish(ctx, key, metadata, owner.Proc); err != nil {
			return err
		}
		if prev, ok := d.cache[key]; ok && prev.party.Proc.ID() != owner.Proc.ID() {
			d.notify(prev.party, Notice{Kind: NoticeSuperseded, Key: key})
			d.dropKey(prev.party.Proc.ID(), key)
			d.log.Debug().Str("key", key).Msg("registration superseded")
		}
		d.put(key, metadata, owner)
		return nil
	})
	observability.Record(ctx, d.metrics, "directory.register", err == nil, time.Since(start))
	return err
}

// Link records a bidirectional link between origin and the process
// serving destKey. When either side dies the survivor receives exactly
// one notice carrying tag.
func (d *Directory) Link(ctx context.Context, originKey string, origin Party, destKey, tag string) error {
	start := time.Now()
	err := d.call(ctx, func() error {
		dest, ok := d.cache[destKey]
		if !ok || !dest.party.Proc.Alive() {
			entries, lookupErr := d.members.Lookup(ctx, destKey)
			if lookupErr != nil || len(entries) == 0 {
				return object.NotFoundError{Ref: destKey}
			}
			d.put(destKey, entries[0].Metadata, Party{Proc: entries[0].Handle})
			dest = d.cache[destKey]
		}
		id := linkID{tag: tag, origin: originKey, dest: destKey}
		if _, exists := d.links[id]; exists {
			return nil
		}
		d.links[id] = linkRecord{id: id, origin: origin, dest: dest.party}
		d.indexFor(origin.Proc).links[id] = struct{}{}
		d.indexFor(dest.party.Proc).links[id] = struct{}{}
		return nil
	})
	observability.Record(ctx, d.metrics, "directory.link", err == nil, time.Since(start))
	return err
}

// Unlink removes a link without notifying either side.
func (d *Directory) Unlink(ctx context.Context, originKey, destKey, tag string) error {
	return d.call(ctx, func() error {
		id := linkID{tag: tag, origin: originKey, dest: destKey}
		rec, ok := d.links[id]
		if !ok {
			return object.NotFoundError{Ref: tag}
		}
		delete(d.links, id)
		d.unindexLink(rec.origin.Proc.ID(), id)
		d.unindexLink(rec.dest.Proc.ID(), id)
		return nil
	})
}

// put caches an entry and ensures its owner process is watched.
func (d *Directory) put(key string, metadata map[string]any, party Party) {
	d.cache[key] = cacheEntry{metadata: object.CloneMap(metadata), party: party}
	refs := d.indexFor(party.Proc)
	refs.keys[key] = struct{}{}
}

// indexFor returns the per-process reference index, starting the death
// watch on first use so cleanup is O(affected) rather than a full scan.
func (d *Directory) indexFor(p *proc.Proc) *procRefs {
	refs, ok := d.index[p.ID()]
	if !ok {
		refs = &procRefs{keys: make(map[string]struct{}), links: make(map[linkID]struct{})}
		id := p.ID()
		refs.cancel = p.Watch(func(reason string) {
			d.enqueue(func() { d.procDown(id, reason) })
		})
		d.index[p.ID()] = refs
	}
	return refs
}

func (d *Directory) dropKey(procID, key string) {
	if refs, ok := d.index[procID]; ok {
		delete(refs.keys, key)
	}
}

func (d *Directory) unindexLink(procID string, id linkID) {
	if refs, ok := d.index[procID]; ok {
		delete(refs.links, id)
	}
}

// procDown tears down everything the dead process held. Link teardown is
// exactly-once per link: the record is removed before the survivor is
// notified, so a second death signal finds nothing left to report.
func (d *Directory) procDown(procID, reason string) {
	refs, ok := d.index[procID]
	if !ok {
		return
	}
	delete(d.index, procID)

	for key := range refs.keys {
		if entry, ok := d.cache[key]; ok && entry.party.Proc.ID() == procID {
			delete(d.cache, key)
		}
	}
	for id := range refs.links {
		rec, ok := d.links[id]
		if !ok {
			continue
		}
		delete(d.links, id)
		if rec.origin.Proc.ID() == procID {
			d.unindexLink(rec.dest.Proc.ID(), id)
			d.notify(rec.dest, Notice{Kind: NoticeLinkDown, Key: id.dest, PeerKey: id.origin, Tag: id.tag, Reason: reason})
		} else {
			d.unindexLink(rec.origin.Proc.ID(), id)
			d.notify(rec.origin, Notice{Kind: NoticeLinkFallen, Key: id.origin, PeerKey: id.dest, Tag: id.tag, Reason: reason})
		}
	}
	d.log.Debug().Str("proc", procID).Str("reason", reason).Msg("process forgotten")
}

func (d *Directory) notify(p Party, n Notice) {
	if p.Notify != nil {
		p.Notify(n)
	}
}
