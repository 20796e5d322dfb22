package pool

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	// TotalOperations counts every dispatched operation since creation,
	// including operations on engines that have since been removed.
	TotalOperations uint64 `json:"total_operations"`

	// ActiveOperations is the number of operations currently in flight.
	ActiveOperations int64 `json:"active_operations"`

	// EngineOperations maps engine id to its dispatched operation count.
	EngineOperations map[int]uint64 `json:"engine_operations"`
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	perEngine := make(map[int]uint64, len(p.engines))
	for _, pe := range p.engines {
		perEngine[pe.eng.ID()] = pe.ops.Load()
	}

	return Stats{
		TotalOperations:  p.total.Load(),
		ActiveOperations: p.active.Load(),
		EngineOperations: perEngine,
	}
}
