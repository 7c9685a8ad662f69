package module

// ReadyDoneAware is a component with a single start and stop cycle, such as the
// tracer exporting spans of a run.
type ReadyDoneAware interface {
	// Ready starts the component. The returned channel is closed once it can be
	// used.
	Ready() <-chan struct{}

	// Done stops the component. The returned channel is closed once everything it
	// buffered has been flushed.
	Done() <-chan struct{}
}
