package harness

// Spawn brings up a new actor (§3 Lifecycle): it allocates a server
// Endpoint, starts a new goroutine that constructs the user implementation
// via newImpl and runs a ServerLoop around it, and returns the Endpoint
// immediately. The actor runs until Shutdown closes its three channels.
func Spawn(newImpl func() any, dispatcher Dispatcher) *Endpoint {
	return SpawnInstrumented(newImpl, dispatcher, nil)
}

// SpawnInstrumented is Spawn with an attached Metrics sink; pass nil for no
// instrumentation (equivalent to Spawn).
func SpawnInstrumented(newImpl func() any, dispatcher Dispatcher, metrics Metrics) *Endpoint {
	endpoint := NewServerEndpoint()
	go func() {
		impl := newImpl()
		loop := NewServerLoop(endpoint, impl, dispatcher).WithMetrics(metrics)
		loop.Run()
	}()
	return endpoint
}

// Shutdown posts the reserved shutdown request and closes all three server
// channels (§3 Lifecycle, §6 control surface "shutdown()"). Per §9's open
// question on shutdown ordering, closing the channels right behind the
// sentinel can make the sleep/filter tasks observe their own channel close
// before the request task observes the sentinel; that is harmless. The
// request channel is closed in the same call, but the sentinel was enqueued
// ahead of that close and a closed Channel still delivers queued values, so
// the request task always receives the sentinel.
func Shutdown(actor *Endpoint) {
	_ = actor.PutRequest(Request{Method: ShutdownTag})
	actor.Close()
}
