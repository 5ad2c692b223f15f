package toolsurface

import "sort"

// roster is the fixed, process-wide map of every named tool operation.
// Each tools_*.go file registers its own operations into it from an
// init func, mirroring the teacher pack's RegisterBuiltInExecutors
// wiring without needing a runtime registry object passed around.
var roster = map[string]ToolDef{}

func register(defs ...ToolDef) {
	for _, d := range defs {
		if _, exists := roster[d.Name]; exists {
			panic("toolsurface: duplicate tool name " + d.Name)
		}
		roster[d.Name] = d
	}
}

// Names returns every registered tool name, sorted, for building a
// protocol front end's tool-listing response.
func Names() []string {
	out := make([]string, 0, len(roster))
	for name := range roster {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe returns the description and schema for one tool, for the
// same tool-listing use case Names serves.
func Describe(name string) (ToolDef, bool) {
	d, ok := roster[name]
	return d, ok
}
