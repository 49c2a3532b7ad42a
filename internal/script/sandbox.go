package script

import (
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// safeModules may be required besides the timeline module.
var safeModules = map[string]bool{
	"string":   true,
	"table":    true,
	"math":     true,
	ModuleName: true,
}

// installSandbox removes the loaders that reach the file system, routes
// print to out and restricts require to safeModules.
func installSandbox(L *lua.LState, out io.Writer) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(out, strings.Join(parts, "\t"))
		return 0
	}))

	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}

	require := L.GetGlobal("require")
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !safeModules[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(require)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}
