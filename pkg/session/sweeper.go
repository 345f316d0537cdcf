package session

// handleSweep is the periodic safety net: it ends initiated calls whose
// offer went unanswered for too long and trims expired buffered candidates.
// Decisions are evaluated afresh each tick under the same single-writer
// discipline as the event handlers.
func (m *Manager) handleSweep() {
	now := m.now()

	m.registry.each(func(c *call) {
		if c.status == CallInitiated && c.offerAttempts > 0 &&
			now.Sub(c.lastOfferAt) > m.config.OfferStallTimeout {
			m.timeoutCall(c, "No answer from receiver", "No answer from receiver")
			m.callLogger(c).Info("call swept after stalled offer")
			return
		}

		c.trimCandidates(now, m.config.CandidateTTL)
	})
}
