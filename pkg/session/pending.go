package session

import "github.com/sirupsen/logrus"

// pendingSignal is a server→client event retained because the target had no
// live channel when it was emitted.
type pendingSignal struct {
	Event   string
	Payload any
}

// pendingQueue keeps a FIFO mailbox per user. Queues are created lazily and
// deleted on drain. Queues are uncapped; they die with the process.
type pendingQueue struct {
	queues map[string][]pendingSignal
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{queues: make(map[string][]pendingSignal)}
}

func (q *pendingQueue) enqueue(userID, event string, payload any) {
	q.queues[userID] = append(q.queues[userID], pendingSignal{event, payload})
}

// drain sends all queued events for the user over the channel in insertion
// order and deletes the queue. Send failures are logged and do not stop the
// drain; the client recovers via user_ready or reconnection.
func (q *pendingQueue) drain(userID string, ch Channel, log *logrus.Entry) {
	queued, ok := q.queues[userID]
	if !ok {
		return
	}
	delete(q.queues, userID)

	for _, signal := range queued {
		if err := ch.Send(signal.Event, signal.Payload); err != nil {
			log.WithError(err).WithField("event", signal.Event).
				Warn("failed to deliver pending signal")
		}
	}
}
