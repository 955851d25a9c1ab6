package worklist

import "radiology-worklist/internal/models"

// Memo caches the last Filter result keyed on the result-set generation and
// the filter values. A miss always recomputes; it is only an optimization.
type Memo struct {
	valid  bool
	gen    uint64
	cf     models.ClientFilters
	policy AbsentPolicy
	rows   []models.Study
	hits   int
}

// Rows returns Filter(studies, cf, policy), reusing the previous result when
// gen and the filters are unchanged.
func (m *Memo) Rows(gen uint64, studies []models.Study, cf models.ClientFilters, policy AbsentPolicy) []models.Study {
	if m.valid && m.gen == gen && m.cf == cf && m.policy == policy {
		m.hits++
		return m.rows
	}
	m.rows = Filter(studies, cf, policy)
	m.gen, m.cf, m.policy, m.valid = gen, cf, policy, true
	return m.rows
}

// Hits counts cache hits since creation.
func (m *Memo) Hits() int { return m.hits }

func (m *Memo) Reset() { *m = Memo{} }
