package ollama

// Options is the model tuning bag forwarded verbatim under the request's
// "options" field. Values are restricted to JSON scalars, string lists and
// nested option maps; the typed With* builders below keep the bag inside
// that closed set.
type Options map[string]any

// Option mutates an Options bag.
type Option func(Options)

// BuildOptions creates an Options bag from the given builders.
func BuildOptions(opts ...Option) Options {
	o := make(Options)
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// merged overlays o on top of defaults without mutating either.
func (o Options) merged(defaults Options) Options {
	if len(defaults) == 0 {
		return o
	}
	out := defaults.Clone()
	for k, v := range o {
		out[k] = v
	}
	return out
}

func WithTemperature(v float64) Option {
	return func(o Options) { o["temperature"] = v }
}

func WithTopK(v int) Option {
	return func(o Options) { o["top_k"] = v }
}

func WithTopP(v float64) Option {
	return func(o Options) { o["top_p"] = v }
}

func WithMinP(v float64) Option {
	return func(o Options) { o["min_p"] = v }
}

func WithSeed(v int) Option {
	return func(o Options) { o["seed"] = v }
}

// WithNumCtx sets the context window size in tokens.
func WithNumCtx(v int) Option {
	return func(o Options) { o["num_ctx"] = v }
}

// WithNumPredict caps the number of tokens to generate; -1 means unlimited.
func WithNumPredict(v int) Option {
	return func(o Options) { o["num_predict"] = v }
}

func WithRepeatPenalty(v float64) Option {
	return func(o Options) { o["repeat_penalty"] = v }
}

func WithStop(stop ...string) Option {
	return func(o Options) { o["stop"] = append([]string(nil), stop...) }
}

// WithNumGPU sets the number of layers to offload to the GPU.
func WithNumGPU(v int) Option {
	return func(o Options) { o["num_gpu"] = v }
}

// WithRawOption is the escape hatch for tuning keys without a typed builder.
// The value must still be a JSON scalar, string list or nested map.
func WithRawOption(key string, value any) Option {
	return func(o Options) { o[key] = value }
}
