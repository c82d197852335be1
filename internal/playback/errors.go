// SPDX-License-Identifier: MIT
package playback

import (
	"errors"
	"fmt"

	"spectra/internal/graph"
)

var (
	// ErrGraphNotReady is returned by transport commands before an asset is
	// decoded and its graph built.
	ErrGraphNotReady = graph.ErrNotReady
	// ErrSourceRestart is returned when a source is started twice or mutated
	// after it stopped. Sources are single use; Play builds a new one.
	ErrSourceRestart = errors.New("source cannot be restarted")
)

// SourceError reports the operation attempted on a source in the wrong state.
type SourceError struct {
	Op    string
	State SourceState
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s on %s source", ErrSourceRestart, e.Op, e.State)
}

func (e *SourceError) Unwrap() error {
	return ErrSourceRestart
}
