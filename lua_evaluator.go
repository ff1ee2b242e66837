package props

import (
	"fmt"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type luaEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewLuaEvaluator constructs an Evaluator backed by gopher-lua. Expressions
// are wrapped in "return (...)"; only the base, table, string and math
// libraries are opened.
func NewLuaEvaluator(opts ...LuaEvaluatorOption) Evaluator {
	cfg := applyLuaEvaluatorOptions(opts)
	return &luaEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *luaEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("lua", fmt.Errorf("expression must not be empty"))
	}
	proto, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx.withDefaults(), expression, proto)
}

func (e *luaEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("lua", fmt.Errorf("expression must not be empty"))
	}
	proto, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &luaCompiledRule{evaluator: e, expression: expression, proto: proto}, nil
}

func (e *luaEvaluator) loadOrCompile(expression string) (*lua.FunctionProto, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get("lua:" + expression); ok {
			if proto, ok := cached.(*lua.FunctionProto); ok {
				return proto, nil
			}
		}
	}
	chunk, err := parse.Parse(strings.NewReader("return ("+expression+")"), "rule")
	if err != nil {
		return nil, wrapEvaluationError("lua", expression, "", err)
	}
	proto, err := lua.Compile(chunk, "rule")
	if err != nil {
		return nil, wrapEvaluationError("lua", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set("lua:"+expression, proto)
	}
	return proto, nil
}

// run uses a fresh state per evaluation so rules cannot leak globals into
// each other.
func (e *luaEvaluator) run(ctx RuleContext, expression string, proto *lua.FunctionProto) (any, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	L.SetGlobal("value", toLuaValue(L, ctx.Value))
	L.SetGlobal("msg", toLuaValue(L, map[string]any(ctx.Message)))
	L.SetGlobal("property", lua.LString(ctx.Property))
	L.SetGlobal("scope", lua.LString(string(ctx.Scope)))
	L.SetGlobal("now", lua.LNumber(ctx.timestamp().Unix()))
	L.SetGlobal("args", toLuaValue(L, ctx.Args))
	if e.registry != nil {
		L.SetGlobal("call", L.NewFunction(e.callFunction))
	}

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, wrapEvaluationError("lua", expression, ctx.Property, err)
	}
	result := fromLuaValue(L.Get(-1), map[*lua.LTable]bool{})
	L.Pop(1)
	return result, nil
}

// callFunction implements call(name, ...) against the function registry.
func (e *luaEvaluator) callFunction(L *lua.LState) int {
	name := L.CheckString(1)
	args := make([]any, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, fromLuaValue(L.Get(i), map[*lua.LTable]bool{}))
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(toLuaValue(L, result))
	return 1
}

func (*luaEvaluator) engine() string { return "lua" }

type luaCompiledRule struct {
	evaluator  *luaEvaluator
	expression string
	proto      *lua.FunctionProto
}

func (r *luaCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("lua", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.proto)
}

func toLuaValue(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint:
		return lua.LNumber(v)
	case uint64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case time.Time:
		return lua.LNumber(v.Unix())
	case Message:
		return toLuaValue(L, map[string]any(v))
	case map[string]any:
		table := L.NewTable()
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			table.RawSetString(key, toLuaValue(L, v[key]))
		}
		return table
	case []any:
		table := L.NewTable()
		for _, item := range v {
			table.Append(toLuaValue(L, item))
		}
		return table
	case []string:
		table := L.NewTable()
		for _, item := range v {
			table.Append(lua.LString(item))
		}
		return table
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

func fromLuaValue(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return luaTableToGo(v, visited)
	default:
		return nil
	}
}

// luaTableToGo returns a slice for sequences starting at 1, a map otherwise.
func luaTableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	isArray := n > 0
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })
	if count != n {
		isArray = false
	}
	if isArray {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, fromLuaValue(t.RawGetInt(i), visited))
		}
		return out
	}
	out := make(map[string]any, count)
	t.ForEach(func(key, value lua.LValue) {
		out[key.String()] = fromLuaValue(value, visited)
	})
	return out
}
