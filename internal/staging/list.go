// Package staging holds the ordered list of files a tool works on. The list de-duplicates
// on (name, size), keeps positions dense, releases preview handles exactly once and loads
// per-item metadata in the background.
package staging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
)

const defaultMetadataConcurrency = 4

// AcceptFunc is the tool-specific type filter applied on Add.
type AcceptFunc func(models.RawItem) bool

// MetadataLoader extracts metadata for a newly staged item. An error marks the item's
// metadata as unknown; the item stays in the list.
type MetadataLoader func(ctx context.Context, item models.StagedItem) (models.Metadata, error)

// PreviewHandle is an externally allocated resource tied to one item, such as a thumbnail.
type PreviewHandle interface {
	Release()
}

// Previewer allocates a preview handle for an item. A nil handle means no preview.
type Previewer func(item models.StagedItem) PreviewHandle

// Observer receives the list contents after every change. Calls are serialized and never
// go backwards: a snapshot older than one already delivered is dropped. Observers must not
// mutate the list.
type Observer func(items []models.StagedItem)

// Option configures a List.
type Option func(*List)

// WithMetadataLoader sets the background metadata extractor.
func WithMetadataLoader(loader MetadataLoader) Option {
	return func(l *List) { l.loader = loader }
}

// WithPreviewer sets the preview allocator.
func WithPreviewer(p Previewer) Option {
	return func(l *List) { l.previewer = p }
}

// WithObserver registers a change observer.
func WithObserver(o Observer) Option {
	return func(l *List) { l.observers = append(l.observers, o) }
}

// WithSingleSlot makes the list hold at most one item; an accepted Add replaces it.
func WithSingleSlot() Option {
	return func(l *List) { l.single = true }
}

// WithMetadataConcurrency bounds the number of concurrent metadata loads per Add.
func WithMetadataConcurrency(n int) Option {
	return func(l *List) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

type entry struct {
	item    models.StagedItem
	preview PreviewHandle
}

// List is an ordered staging list. All methods are safe for concurrent use.
type List struct {
	accept      AcceptFunc
	loader      MetadataLoader
	previewer   Previewer
	observers   []Observer
	single      bool
	concurrency int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries []*entry
	version uint64
	loading int
	idle    *sync.Cond

	notifyMu  sync.Mutex
	delivered uint64
}

// New creates an empty list that admits items passing accept.
func New(accept AcceptFunc, opts ...Option) *List {
	ctx, cancel := context.WithCancel(context.Background())
	l := &List{
		accept:      accept,
		concurrency: defaultMetadataConcurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
	l.idle = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add stages the given items in order and returns the ones that were accepted. Items
// rejected by the type filter or already present by (name, size) are dropped silently.
func (l *List) Add(items ...models.RawItem) []models.StagedItem {
	l.mu.Lock()
	var added []models.StagedItem
	for _, raw := range items {
		if l.accept != nil && !l.accept(raw) {
			continue
		}
		if l.single && len(added) > 0 {
			break
		}
		if l.indexOfLocked(raw.Name, raw.Size) >= 0 {
			continue
		}
		if l.single {
			l.releaseAllLocked()
		}

		e := &entry{item: models.StagedItem{
			ID:       uuid.NewString(),
			Name:     raw.Name,
			Size:     raw.Size,
			MIMEType: raw.MIMEType,
			Source:   raw.Source,
			Position: len(l.entries),
		}}
		if l.previewer != nil {
			e.preview = l.previewer(e.item)
		}
		l.entries = append(l.entries, e)
		added = append(added, e.item)
	}
	if len(added) == 0 {
		l.mu.Unlock()
		return nil
	}
	if l.loader != nil {
		l.loading++
	}
	version, snapshot := l.changedLocked()
	l.mu.Unlock()

	l.notify(version, snapshot)
	l.loadMetadata(added)
	return added
}

// Remove deletes the item at position. Stale or out-of-range positions are ignored.
func (l *List) Remove(position int) bool {
	l.mu.Lock()
	if position < 0 || position >= len(l.entries) {
		l.mu.Unlock()
		return false
	}
	release(l.entries[position])
	l.entries = append(l.entries[:position], l.entries[position+1:]...)
	l.renumberLocked()
	version, snapshot := l.changedLocked()
	l.mu.Unlock()

	l.notify(version, snapshot)
	return true
}

// Move takes the item at from and reinserts it at to, shifting the items in between by
// one. Equal or out-of-range positions are a no-op.
func (l *List) Move(from, to int) bool {
	l.mu.Lock()
	n := len(l.entries)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		l.mu.Unlock()
		return false
	}
	e := l.entries[from]
	if from < to {
		copy(l.entries[from:to], l.entries[from+1:to+1])
	} else {
		copy(l.entries[to+1:from+1], l.entries[to:from])
	}
	l.entries[to] = e
	l.renumberLocked()
	version, snapshot := l.changedLocked()
	l.mu.Unlock()

	l.notify(version, snapshot)
	return true
}

// Clear removes every item and releases every preview handle.
func (l *List) Clear() {
	l.mu.Lock()
	if len(l.entries) == 0 {
		l.mu.Unlock()
		return
	}
	l.releaseAllLocked()
	version, snapshot := l.changedLocked()
	l.mu.Unlock()

	l.notify(version, snapshot)
}

// Close tears the list down: pending metadata loads are cancelled and awaited, and every
// remaining preview handle is released.
func (l *List) Close() {
	l.cancel()
	l.WaitMetadata()
	l.Clear()
}

// WaitMetadata blocks until every metadata load started by an Add that returned before
// the call has finished.
func (l *List) WaitMetadata() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.loading > 0 {
		l.idle.Wait()
	}
}

// Len returns the number of staged items.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Item returns the item at position.
func (l *List) Item(position int) (models.StagedItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if position < 0 || position >= len(l.entries) {
		return models.StagedItem{}, false
	}
	return l.entries[position].item, true
}

// Snapshot returns a copy of the items in their current order.
func (l *List) Snapshot() []models.StagedItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *List) loadMetadata(added []models.StagedItem) {
	if l.loader == nil {
		return
	}
	go func() {
		defer l.loadDone()
		var g errgroup.Group
		g.SetLimit(l.concurrency)
		for _, item := range added {
			g.Go(func() error {
				md, err := l.loader(l.ctx, item)
				if err != nil {
					slog.Warn("Failed to load item metadata.", "item", item.Name, "error", err)
					md = models.Metadata{State: models.MetadataUnknown, Err: err.Error()}
				} else {
					md.State = models.MetadataLoaded
				}
				l.setMetadata(item.ID, md)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (l *List) loadDone() {
	l.mu.Lock()
	l.loading--
	l.mu.Unlock()
	l.idle.Broadcast()
}

func (l *List) setMetadata(id string, md models.Metadata) {
	l.mu.Lock()
	found := false
	for _, e := range l.entries {
		if e.item.ID == id {
			e.item.Metadata = md
			found = true
			break
		}
	}
	if !found {
		// removed while loading
		l.mu.Unlock()
		return
	}
	version, snapshot := l.changedLocked()
	l.mu.Unlock()

	l.notify(version, snapshot)
}

func (l *List) indexOfLocked(name string, size int64) int {
	for i, e := range l.entries {
		if e.item.Name == name && e.item.Size == size {
			return i
		}
	}
	return -1
}

func (l *List) releaseAllLocked() {
	for _, e := range l.entries {
		release(e)
	}
	l.entries = nil
}

func (l *List) renumberLocked() {
	for i, e := range l.entries {
		e.item.Position = i
	}
}

func (l *List) snapshotLocked() []models.StagedItem {
	items := make([]models.StagedItem, len(l.entries))
	for i, e := range l.entries {
		items[i] = e.item
	}
	return items
}

// changedLocked bumps the list version and returns it with the current contents.
func (l *List) changedLocked() (uint64, []models.StagedItem) {
	l.version++
	return l.version, l.snapshotLocked()
}

func (l *List) notify(version uint64, items []models.StagedItem) {
	if len(l.observers) == 0 {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	if version <= l.delivered {
		return
	}
	l.delivered = version
	for _, o := range l.observers {
		o(items)
	}
}

func release(e *entry) {
	if e.preview != nil {
		e.preview.Release()
		e.preview = nil
	}
}
