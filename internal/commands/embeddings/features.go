package embeddingscmd

// FeatureGates exposes runtime toggles for the embedding handlers.
type FeatureGates struct {
	// QueueEnabled should return true when a scheduler is wired for sweeps.
	QueueEnabled func() bool
}

func (g FeatureGates) queueEnabled() bool {
	if g.QueueEnabled == nil {
		return true
	}
	return g.QueueEnabled()
}
