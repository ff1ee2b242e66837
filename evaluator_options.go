package props

// scriptEvaluatorConfig is shared by the script engines (JS and Lua), which
// take their options as plain config mutators.
type scriptEvaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func (cfg *scriptEvaluatorConfig) setRegistry(registry *FunctionRegistry) {
	if registry == nil {
		return
	}
	cfg.registry = registry.Clone()
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*scriptEvaluatorConfig)

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *scriptEvaluatorConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS evaluator.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *scriptEvaluatorConfig) {
		cfg.setRegistry(registry)
	}
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) scriptEvaluatorConfig {
	cfg := scriptEvaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// LuaEvaluatorOption configures the Lua evaluator.
type LuaEvaluatorOption func(*scriptEvaluatorConfig)

// LuaWithProgramCache applies a ProgramCache to the Lua evaluator.
func LuaWithProgramCache(cache ProgramCache) LuaEvaluatorOption {
	return func(cfg *scriptEvaluatorConfig) {
		cfg.cache = cache
	}
}

// LuaWithFunctionRegistry applies a FunctionRegistry to the Lua evaluator.
func LuaWithFunctionRegistry(registry *FunctionRegistry) LuaEvaluatorOption {
	return func(cfg *scriptEvaluatorConfig) {
		cfg.setRegistry(registry)
	}
}

func applyLuaEvaluatorOptions(opts []LuaEvaluatorOption) scriptEvaluatorConfig {
	cfg := scriptEvaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
