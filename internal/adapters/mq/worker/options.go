package worker

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker's name used in log output.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}
