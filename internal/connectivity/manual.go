package connectivity

// Manual is a Monitor driven by explicit calls, for tests and for clients
// that learn about connectivity from the host platform.
type Manual struct {
	*broadcaster
}

var _ Monitor = (*Manual)(nil)

func NewManual(online bool) *Manual {
	return &Manual{broadcaster: newBroadcaster(online)}
}

// SetOnline updates the state. It returns true when the state flipped and
// subscribers were notified.
func (m *Manual) SetOnline(online bool) bool {
	return m.set(online)
}
