package lifecycle

import (
	"log"

	"github.com/fledgehq/fledge/internal/feature"
)

// AliasIndex is the duplicate-detection index consulted when a feature
// is created. The engine works without one (it falls back to scanning
// the record store), so a broken index never blocks feature creation.
type AliasIndex interface {
	Register(productID, slug, title string, aliases []string) error
	Candidates(productID, title string, threshold float64) ([]feature.DuplicateCandidate, error)
}

// OutputGenerator renders the downstream deliverables (stakeholder
// one-pager, epic skeleton) once a feature passes the decision gate.
// It returns the paths or references of what it produced.
type OutputGenerator interface {
	Generate(root string, rec *feature.FeatureRecord) ([]string, error)
}

// BrainEntityCreator mirrors a new feature into an external knowledge
// store. Creation failures are logged, never propagated: the feature
// record on disk is the source of truth and the mirror can catch up.
type BrainEntityCreator interface {
	CreateEntity(rec *feature.FeatureRecord) (ref string, err error)
}

// FeatureObserver is notified after a feature record is persisted.
type FeatureObserver interface {
	FeatureChanged(rec *feature.FeatureRecord, event string)
}

// notifyObserver invokes the observer if one is configured. Observer
// panics are contained so bookkeeping can never take down an operation
// that already persisted.
func (e *Engine) notifyObserver(rec *feature.FeatureRecord, event string) {
	if e.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARNING: feature observer panicked on %s: %v", event, r)
		}
	}()
	e.observer.FeatureChanged(rec, event)
}
