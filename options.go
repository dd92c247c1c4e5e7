package autodo

import "github.com/joeycumines/logiface"

// runtimeOptions holds configuration options for Runtime creation.
type runtimeOptions struct {
	logger       *logiface.Logger[logiface.Event]
	gateCapacity int
}

// Option configures a Runtime instance.
type Option interface {
	applyRuntime(*runtimeOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyRuntimeFunc func(*runtimeOptions) error
}

func (o *optionImpl) applyRuntime(opts *runtimeOptions) error {
	return o.applyRuntimeFunc(opts)
}

// WithLogger sets the structured logger used by the runtime and its
// reactor. The default is the nil logger, which disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithGateCapacity sets the default pending-call capacity for gates
// created by NewGate.
func WithGateCapacity(n int) Option {
	return &optionImpl{func(opts *runtimeOptions) error {
		opts.gateCapacity = n
		return nil
	}}
}

// resolveRuntimeOptions applies Option instances to runtimeOptions.
func resolveRuntimeOptions(opts []Option) (*runtimeOptions, error) {
	cfg := &runtimeOptions{
		gateCapacity: defaultGateCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRuntime(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
