package browsecache

// EvictReason describes why an entry left the cache.
type EvictReason int

const (
	// EvictReasonCapacity means the entry was displaced by the LRU policy.
	EvictReasonCapacity EvictReason = iota
	// EvictReasonExpired means the entry's TTL elapsed.
	EvictReasonExpired
	// EvictReasonDeleted means the entry was removed or invalidated explicitly.
	EvictReasonDeleted
)

// String returns a human-readable name for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictReasonCapacity:
		return "capacity"
	case EvictReasonExpired:
		return "expired"
	case EvictReasonDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// OnHitHook is called after a successful lookup.
type OnHitHook func(key string)

// OnMissHook is called after a lookup found nothing usable.
type OnMissHook func(key string)

// OnEvictHook is called when an entry leaves the cache.
type OnEvictHook func(key string, reason EvictReason)

// OnInvalidateHook is called after a pattern invalidation with the number of
// entries it removed.
type OnInvalidateHook func(pattern string, removed int)

// OnFaultHook is called for every swallowed cache fault.
type OnFaultHook func(kind FaultKind, key string, err error)

// OnMaintenanceStartHook is called when a maintenance cycle begins, before
// any entry is examined.
type OnMaintenanceStartHook func()

// OnMaintenanceHook is called after a maintenance cycle completes.
type OnMaintenanceHook func(report MaintenanceReport)

// Hooks holds callback functions for cache events. Hooks run synchronously
// on the calling goroutine and must not block.
type Hooks struct {
	onHit              []OnHitHook
	onMiss             []OnMissHook
	onEvict            []OnEvictHook
	onInvalidate       []OnInvalidateHook
	onFault            []OnFaultHook
	onMaintenanceStart []OnMaintenanceStartHook
	onMaintenance      []OnMaintenanceHook
}

// NewHooks creates an empty hooks container.
func NewHooks() *Hooks { return &Hooks{} }

// AddOnHit registers an OnHit callback.
func (h *Hooks) AddOnHit(hook OnHitHook) { h.onHit = append(h.onHit, hook) }

// AddOnMiss registers an OnMiss callback.
func (h *Hooks) AddOnMiss(hook OnMissHook) { h.onMiss = append(h.onMiss, hook) }

// AddOnEvict registers an OnEvict callback.
func (h *Hooks) AddOnEvict(hook OnEvictHook) { h.onEvict = append(h.onEvict, hook) }

// AddOnInvalidate registers an OnInvalidate callback.
func (h *Hooks) AddOnInvalidate(hook OnInvalidateHook) { h.onInvalidate = append(h.onInvalidate, hook) }

// AddOnFault registers an OnFault callback.
func (h *Hooks) AddOnFault(hook OnFaultHook) { h.onFault = append(h.onFault, hook) }

// AddOnMaintenanceStart registers an OnMaintenanceStart callback.
func (h *Hooks) AddOnMaintenanceStart(hook OnMaintenanceStartHook) {
	h.onMaintenanceStart = append(h.onMaintenanceStart, hook)
}

// AddOnMaintenance registers an OnMaintenance callback.
func (h *Hooks) AddOnMaintenance(hook OnMaintenanceHook) { h.onMaintenance = append(h.onMaintenance, hook) }

func (h *Hooks) invokeHit(key string) {
	if h == nil {
		return
	}
	for _, hook := range h.onHit {
		hook(key)
	}
}

func (h *Hooks) invokeMiss(key string) {
	if h == nil {
		return
	}
	for _, hook := range h.onMiss {
		hook(key)
	}
}

func (h *Hooks) invokeEvict(key string, reason EvictReason) {
	if h == nil {
		return
	}
	for _, hook := range h.onEvict {
		hook(key, reason)
	}
}

func (h *Hooks) invokeInvalidate(pattern string, removed int) {
	if h == nil {
		return
	}
	for _, hook := range h.onInvalidate {
		hook(pattern, removed)
	}
}

func (h *Hooks) invokeFault(kind FaultKind, key string, err error) {
	if h == nil {
		return
	}
	for _, hook := range h.onFault {
		hook(kind, key, err)
	}
}

func (h *Hooks) invokeMaintenanceStart() {
	if h == nil {
		return
	}
	for _, hook := range h.onMaintenanceStart {
		hook()
	}
}

func (h *Hooks) invokeMaintenance(report MaintenanceReport) {
	if h == nil {
		return
	}
	for _, hook := range h.onMaintenance {
		hook(report)
	}
}
