package bot

import (
	"github.com/ray319129/czj/catalog"
)

// Action is one outbound reply the transport should deliver. The dispatcher
// never talks to the chat platform itself; it only emits actions.
type Action interface {
	isAction()
}

// ShowEntry displays one catalog entry (image plus caption). WithNav asks
// the transport to attach previous/next/menu quick replies.
type ShowEntry struct {
	Entry   catalog.Entry
	WithNav bool
}

// ShowText displays a plain text reply.
type ShowText struct {
	Text    string
	WithNav bool
}

// ShowList displays a header, one summary line per entry, and a footer.
type ShowList struct {
	Header  string
	Entries []catalog.Entry
	Footer  string
	WithNav bool
}

func (ShowEntry) isAction() {}
func (ShowText) isAction()  {}
func (ShowList) isAction()  {}
