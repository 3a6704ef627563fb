package core

// ProgressFunc receives the share of completed rows, in [0, 1]. It is called
// from the goroutine that called Detect.
type ProgressFunc func(progress float64)

type DetectOption func(*detectOptions)

type detectOptions struct {
	workers  int
	progress []ProgressFunc
}

// WithProgress subscribes fn to progress notifications. It may be given
// more than once.
func WithProgress(fn ProgressFunc) DetectOption {
	return func(o *detectOptions) {
		if fn != nil {
			o.progress = append(o.progress, fn)
		}
	}
}

// WithWorkers overrides the number of comparison workers for one run.
// Values below 1 are ignored.
func WithWorkers(n int) DetectOption {
	return func(o *detectOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

func (o *detectOptions) emit(progress float64) {
	for _, fn := range o.progress {
		fn(progress)
	}
}
