package dispatcher

import (
	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/entity"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// event is one unit of work for the dispatch loop. All session state
// transitions happen on the loop goroutine, so handlers never race.
type event interface {
	isEvent()
}

// documentOpened is posted when an editor opens a document.
type documentOpened struct {
	Document uri.URI
	Filetype string
}

// documentClosed is posted when an editor closes a document.
type documentClosed struct {
	Document uri.URI
}

// negotiationDone is posted when an initialize request resolves, times out,
// or fails. Matched against the session by UUID; a session that detached in
// the meantime makes the event stale.
type negotiationDone struct {
	Session uuid.UUID
	Result  *protocol.InitializeResult
	Err     error
}

// processExited is posted once when a server process exits for any reason.
type processExited struct {
	Key entity.ProcessKey
}

func (documentOpened) isEvent()  {}
func (documentClosed) isEvent()  {}
func (negotiationDone) isEvent() {}
func (processExited) isEvent()   {}
