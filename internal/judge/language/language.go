// Package language defines the per-language compile and run strategy.
// Adding a language means adding one Spec here; the judge engine never
// branches on the language tag.
package language

import (
	"fmt"

	"github.com/google/shlex"

	"codearena/internal/domain/model"
)

// Spec describes how one language's source is named, compiled and run.
// Commands run inside the submission workspace; the source and any
// compiled artifact live there and die with it.
type Spec struct {
	Name       string
	SourceFile string
	CompileCmd []string // empty for interpreted languages
	RunCmd     []string

	// MinMemoryMB raises the problem's memory limit to a runtime floor.
	// The JVM and V8 reserve address space far beyond their resident use,
	// so typical per-problem limits would stop them from even starting.
	MinMemoryMB int
}

// Compiled reports whether the language has a build step.
func (s Spec) Compiled() bool { return len(s.CompileCmd) > 0 }

func defaultSpecs() map[string]Spec {
	return map[string]Spec{
		model.LangJava: {
			Name:        "Java",
			SourceFile:  "Main.java",
			CompileCmd:  []string{"javac", "Main.java"},
			RunCmd:      []string{"java", "-Xss64m", "Main"},
			MinMemoryMB: 512,
		},
		model.LangPython: {
			Name:       "Python",
			SourceFile: "main.py",
			RunCmd:     []string{"python3", "main.py"},
		},
		model.LangJavaScript: {
			Name:        "JavaScript",
			SourceFile:  "main.js",
			RunCmd:      []string{"node", "main.js"},
			MinMemoryMB: 512,
		},
		model.LangC: {
			Name:       "C",
			SourceFile: "main.c",
			CompileCmd: []string{"gcc", "-O2", "-o", "main", "main.c"},
			RunCmd:     []string{"./main"},
		},
		model.LangCPP: {
			Name:       "C++",
			SourceFile: "main.cpp",
			CompileCmd: []string{"g++", "-O2", "-o", "main", "main.cpp"},
			RunCmd:     []string{"./main"},
		},
	}
}

// Registry builds the language table, applying configured command
// overrides ("compile:<lang>" / "run:<lang>" -> command line).
func Registry(overrides map[string]string) (map[string]Spec, error) {
	specs := defaultSpecs()
	for key, cmdline := range overrides {
		var lang string
		var compile bool
		switch {
		case len(key) > 8 && key[:8] == "compile:":
			lang, compile = key[8:], true
		case len(key) > 4 && key[:4] == "run:":
			lang = key[4:]
		default:
			return nil, fmt.Errorf("language override %q: expected compile:<lang> or run:<lang>", key)
		}
		spec, ok := specs[lang]
		if !ok {
			return nil, fmt.Errorf("language override %q: unknown language", key)
		}
		argv, err := shlex.Split(cmdline)
		if err != nil {
			return nil, fmt.Errorf("language override %q: %w", key, err)
		}
		if compile {
			spec.CompileCmd = argv
		} else {
			spec.RunCmd = argv
		}
		specs[lang] = spec
	}
	return specs, nil
}
