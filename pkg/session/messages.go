package session

import "github.com/crosstalk-dev/crosstalk/pkg/event"

// Messages processed by the manager's main loop. Since Go does not have sum
// types, the loop dispatches on the concrete type of the message.

type registerCmd struct {
	ch  Channel
	req event.Register
}

type userStatusCmd struct {
	ch  Channel
	req event.UserStatus
}

type initiateCmd struct {
	ch  Channel
	req event.CallInitiate
}

type acceptCmd struct {
	ch  Channel
	req event.CallAccept
}

type rejectCmd struct {
	ch  Channel
	req event.CallReject
}

type endCmd struct {
	ch  Channel
	req event.CallEnd
}

type readyCmd struct {
	ch  Channel
	req event.UserReady
}

// signalCmd carries one of the three signaling events; name is the wire
// event name under which the payload is forwarded.
type signalCmd struct {
	ch   Channel
	name string
	req  event.Signal
}

type disconnectCmd struct {
	ch Channel
}

// noAnswerFired is posted by the per-call no-answer timer.
type noAnswerFired struct {
	callID string
}

// sweepTick is posted by the sweeper on its fixed interval.
type sweepTick struct{}

// snapshotReq asks the loop for a consistent view of all tables. It is also
// used by tests as a barrier, since the loop processes messages in order.
type snapshotReq struct {
	reply chan Snapshot
}
