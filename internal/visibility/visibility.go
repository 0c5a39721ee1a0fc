// Package visibility reports, once, that a page region became visible enough.
package visibility

// DefaultThreshold is the fraction of a region that must be visible.
const DefaultThreshold = 0.5

// Observer watches regions for their first qualifying intersection.
type Observer interface {
	Observe(region string, onIntersect func()) *Subscription
}

// Subscription is a one-shot observation of one region.
type Subscription struct {
	region    string
	fn        func()
	fired     bool
	cancelled bool
	detach    func(*Subscription)
}

// Region returns the observed region.
func (s *Subscription) Region() string {
	return s.region
}

// Fired reports whether the observation has triggered.
func (s *Subscription) Fired() bool {
	return s.fired
}

// Cancel stops observing. It is a no-op after firing.
func (s *Subscription) Cancel() {
	if s.fired || s.cancelled {
		return
	}
	s.cancelled = true
	s.detach(s)
}

func (s *Subscription) fire() bool {
	if s.fired || s.cancelled {
		return false
	}
	s.fired = true
	s.detach(s)
	if s.fn != nil {
		s.fn()
	}
	return true
}

// registry keeps the live subscriptions per region.
type registry struct {
	subs map[string][]*Subscription
}

func (r *registry) add(region string, fn func()) *Subscription {
	if r.subs == nil {
		r.subs = make(map[string][]*Subscription)
	}
	s := &Subscription{region: region, fn: fn, detach: r.remove}
	r.subs[region] = append(r.subs[region], s)
	return s
}

func (r *registry) remove(s *Subscription) {
	list := r.subs[s.region]
	for i, candidate := range list {
		if candidate == s {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.subs, s.region)
		return
	}
	r.subs[s.region] = list
}

// fire triggers every live subscription of region and reports how many fired.
func (r *registry) fire(region string) int {
	pending := append([]*Subscription(nil), r.subs[region]...)
	fired := 0
	for _, s := range pending {
		if s.fire() {
			fired++
		}
	}
	return fired
}

func (r *registry) watching(region string) bool {
	return len(r.subs[region]) > 0
}

// ThresholdObserver fires when a reported intersection ratio for a region
// reaches the threshold. Reports come from whatever measures layout: the
// browser's intersection observer, or the terminal preview's viewport.
type ThresholdObserver struct {
	threshold float64
	reg       registry
}

// NewThresholdObserver returns an observer for the given threshold. Values
// outside (0,1] fall back to DefaultThreshold.
func NewThresholdObserver(threshold float64) *ThresholdObserver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &ThresholdObserver{threshold: threshold}
}

// Threshold returns the configured threshold.
func (o *ThresholdObserver) Threshold() float64 {
	return o.threshold
}

func (o *ThresholdObserver) Observe(region string, onIntersect func()) *Subscription {
	return o.reg.add(region, onIntersect)
}

// Report records the visible fraction of region and reports whether it
// triggered any observation.
func (o *ThresholdObserver) Report(region string, ratio float64) bool {
	if ratio < o.threshold {
		return false
	}
	return o.reg.fire(region) > 0
}

// Watching reports whether region has a live observation.
func (o *ThresholdObserver) Watching(region string) bool {
	return o.reg.watching(region)
}

// Manual is an Observer fired explicitly, for tests and scripted previews.
type Manual struct {
	reg registry
}

// NewManual returns a Manual observer.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Observe(region string, onIntersect func()) *Subscription {
	return m.reg.add(region, onIntersect)
}

// Fire triggers region's live observations and reports whether any fired.
func (m *Manual) Fire(region string) bool {
	return m.reg.fire(region) > 0
}

var (
	_ Observer = (*ThresholdObserver)(nil)
	_ Observer = (*Manual)(nil)
)
