package graph

// Observer receives graph change notifications. Every mutation fires its
// callback synchronously, batch or not; observers that want to coalesce
// work during bulk operations watch the batch callbacks and defer
// themselves.
//
// Callbacks run on the goroutine that mutated the graph. An observer may
// detach itself, or mutate the graph further, from inside a callback.
type Observer interface {
	// OnNodeAdded fires after a node is inserted into the graph.
	OnNodeAdded(n *Node)
	// OnNodeRemoved fires after a node has left the graph. Incident
	// edge removals have already been announced.
	OnNodeRemoved(id NodeID)
	// OnNodeMoved fires when a node's displacement since the last
	// report crosses the notify threshold.
	OnNodeMoved(id NodeID, from, to Point)
	// OnEdgeAdded fires after an edge resolves and joins the graph.
	OnEdgeAdded(e *Edge)
	// OnEdgeRemoved fires after an edge has left the graph.
	OnEdgeRemoved(id EdgeID)
	// OnGraphCleared fires after both wipe passes of Clear, before the
	// enclosing batch ends.
	OnGraphCleared()
	// OnGraphLoaded fires once a document load has materialized.
	OnGraphLoaded(origin string)
	// OnGraphSaved fires when the graph's owner reports a completed
	// save.
	OnGraphSaved(origin string)
	// OnBatchBegun fires when the outermost batch opens.
	OnBatchBegun()
	// OnBatchEnded fires when the outermost batch closes.
	OnBatchEnded()
}

// BaseObserver is a no-op Observer for embedding, so concrete observers
// only implement the callbacks they care about.
type BaseObserver struct{}

func (BaseObserver) OnNodeAdded(*Node)                {}
func (BaseObserver) OnNodeRemoved(NodeID)             {}
func (BaseObserver) OnNodeMoved(NodeID, Point, Point) {}
func (BaseObserver) OnEdgeAdded(*Edge)                {}
func (BaseObserver) OnEdgeRemoved(EdgeID)             {}
func (BaseObserver) OnGraphCleared()                  {}
func (BaseObserver) OnGraphLoaded(string)             {}
func (BaseObserver) OnGraphSaved(string)              {}
func (BaseObserver) OnBatchBegun()                    {}
func (BaseObserver) OnBatchEnded()                    {}

// Attach subscribes an observer. Attaching an already subscribed observer
// is a no-op.
func (g *Graph) Attach(o Observer) {
	if o == nil {
		return
	}
	for _, existing := range g.observers {
		if existing == o {
			return
		}
	}
	g.observers = append(g.observers, o)
}

// Detach unsubscribes an observer. Safe to call from inside a callback.
func (g *Graph) Detach(o Observer) {
	for i, existing := range g.observers {
		if existing == o {
			g.observers = append(g.observers[:i], g.observers[i+1:]...)
			return
		}
	}
}

// BeginBatch opens a bulk operation. Batches nest; only the outermost
// transition notifies observers.
func (g *Graph) BeginBatch() {
	g.batchDepth++
	if g.batchDepth == 1 {
		g.eachObserver(func(o Observer) { o.OnBatchBegun() })
	}
}

// EndBatch closes a bulk operation.
func (g *Graph) EndBatch() {
	if g.batchDepth == 0 {
		g.logger.Warn("end batch without matching begin")
		return
	}
	g.batchDepth--
	if g.batchDepth == 0 {
		g.eachObserver(func(o Observer) { o.OnBatchEnded() })
	}
}

// InBatch reports whether a batch is open.
func (g *Graph) InBatch() bool {
	return g.batchDepth > 0
}

// eachObserver fans a callback out over a snapshot of the observer list,
// so observers may attach or detach while being notified.
func (g *Graph) eachObserver(fn func(Observer)) {
	if len(g.observers) == 0 {
		return
	}
	snapshot := make([]Observer, len(g.observers))
	copy(snapshot, g.observers)
	for _, o := range snapshot {
		fn(o)
	}
}

func (g *Graph) notifyNodeAdded(n *Node) {
	g.eachObserver(func(o Observer) { o.OnNodeAdded(n) })
}

func (g *Graph) notifyNodeRemoved(id NodeID) {
	g.eachObserver(func(o Observer) { o.OnNodeRemoved(id) })
}

func (g *Graph) notifyNodeMoved(id NodeID, from, to Point) {
	g.eachObserver(func(o Observer) { o.OnNodeMoved(id, from, to) })
}

func (g *Graph) notifyEdgeAdded(e *Edge) {
	g.eachObserver(func(o Observer) { o.OnEdgeAdded(e) })
}

func (g *Graph) notifyEdgeRemoved(id EdgeID) {
	g.eachObserver(func(o Observer) { o.OnEdgeRemoved(id) })
}

func (g *Graph) notifyGraphCleared() {
	g.eachObserver(func(o Observer) { o.OnGraphCleared() })
}

func (g *Graph) notifyGraphLoaded(origin string) {
	g.eachObserver(func(o Observer) { o.OnGraphLoaded(origin) })
}

func (g *Graph) notifyGraphSaved(origin string) {
	g.eachObserver(func(o Observer) { o.OnGraphSaved(origin) })
}
