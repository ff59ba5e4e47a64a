package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages an actor cannot handle in its current state. A
// positive limit bounds the stash; once full the oldest message is dropped.
type Stash struct {
	stash   []stashElem
	limit   int
	dropped uint64
}

type stashElem struct {
	msg    any
	sender *actor.PID
}

func NewStash(limit int) *Stash {
	return &Stash{limit: limit}
}

// Stash stores msg and reports whether an older message had to be dropped.
func (stash *Stash) Stash(ctx actor.Context, msg any) bool {
	dropped := false
	if stash.limit > 0 && len(stash.stash) >= stash.limit {
		stash.stash = stash.stash[1:]
		stash.dropped++
		dropped = true
	}
	stash.stash = append(stash.stash, stashElem{
		msg:    msg,
		sender: ctx.Sender(),
	})
	return dropped
}

func (stash *Stash) Len() int {
	return len(stash.stash)
}

func (stash *Stash) Dropped() uint64 {
	return stash.dropped
}

func (stash *Stash) UnstashAll(ctx actor.Context) {
	for _, elem := range stash.stash {
		ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
	}
	stash.stash = nil
}

func (stash *Stash) UnstashOldest(ctx actor.Context) {
	if len(stash.stash) > 0 {
		first := stash.stash[0]
		ctx.RequestWithCustomSender(ctx.Self(), first.msg, first.sender)
		stash.stash = stash.stash[1:]
	}
}
