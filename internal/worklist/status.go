package worklist

import (
	"radiology-worklist/internal/pacs"
)

// Status is the outcome line shown above the worklist table.
type Status struct {
	Kind    pacs.Kind
	Message string
}

// IsError is true for outcomes rendered as errors rather than information.
func (s Status) IsError() bool {
	switch s.Kind {
	case pacs.KindOK, pacs.KindNoResults:
		return false
	}
	return true
}

// StatusOf maps a query outcome onto the status line.
func StatusOf(res *pacs.StudyResult, err error) Status {
	if err != nil {
		return Status{Kind: pacs.Classify(err), Message: pacs.Describe(err)}
	}
	if res == nil || res.Status == pacs.StatusNoResults {
		return Status{Kind: pacs.KindNoResults, Message: pacs.MsgNoResults}
	}
	return Status{Kind: pacs.KindOK}
}
