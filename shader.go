package gpuimage

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// ShaderSource is a fragment program in two forms: Kage text for the GPU
// device and an equivalent CPU kernel for the software device.
type ShaderSource struct {
	Name   string
	Kage   string
	Kernel Kernel
}

// CompileError reports a program that failed to compile or link.
type CompileError struct {
	Program string
	Log     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpuimage: compile %s: %s", e.Program, e.Log)
}

// uniformDecl is a top-level `var Name type` declaration in a Kage source.
type uniformDecl struct {
	Name string
	Type string
}

// parseUniforms scans a Kage source for uniform declarations and checks the
// minimal program structure. Kage uniforms must be exported.
func parseUniforms(src *ShaderSource) ([]uniformDecl, error) {
	if !strings.Contains(src.Kage, "package main") {
		return nil, &CompileError{Program: src.Name, Log: "missing package clause"}
	}
	if !strings.Contains(src.Kage, "func Fragment(") {
		return nil, &CompileError{Program: src.Name, Log: "missing Fragment entry point"}
	}
	var decls []uniformDecl
	sc := bufio.NewScanner(strings.NewReader(src.Kage))
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		// Only package-level declarations are uniforms.
		if !strings.HasPrefix(text, "var ") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(text, "var "))
		if len(fields) < 2 {
			return nil, &CompileError{Program: src.Name, Log: fmt.Sprintf("line %d: malformed uniform declaration", line)}
		}
		name := fields[0]
		if r := []rune(name)[0]; !unicode.IsUpper(r) {
			return nil, &CompileError{Program: src.Name, Log: fmt.Sprintf("line %d: uniform %q must be exported", line, name)}
		}
		decls = append(decls, uniformDecl{Name: name, Type: strings.Join(fields[1:], " ")})
	}
	return decls, nil
}

// Program is a compiled shader with its uniform locations.
type Program struct {
	source    *ShaderSource
	handle    DeviceProgram
	locations map[string]int
	deleted   bool
}

// compileProgram compiles src on the frame's device. Failures are returned as
// *CompileError and logged.
func compileProgram(f *Frame, src *ShaderSource) (*Program, error) {
	dev, err := f.device("compile " + src.Name)
	if err != nil {
		return nil, err
	}
	decls, err := parseUniforms(src)
	if err == nil {
		var h DeviceProgram
		h, err = dev.CompileProgram(src)
		if err == nil {
			p := &Program{source: src, handle: h, locations: make(map[string]int, len(decls))}
			for i, d := range decls {
				p.locations[d.Name] = i
			}
			Logger().Debug("program compiled", zap.String("program", src.Name), zap.Int("uniforms", len(decls)))
			return p, nil
		}
		if _, ok := err.(*CompileError); !ok {
			err = &CompileError{Program: src.Name, Log: err.Error()}
		}
	}
	Logger().Warn("shader compile failed", zap.String("program", src.Name), zap.Error(err))
	return nil, err
}

// Location returns the location of a declared uniform. ok is false for names
// the program does not declare.
func (p *Program) Location(name string) (loc int, ok bool) {
	loc, ok = p.locations[name]
	return loc, ok
}

// Name returns the source name of the program.
func (p *Program) Name() string { return p.source.Name }

// Delete releases the program. Deleting twice is a no-op.
func (p *Program) Delete(f *Frame) error {
	if p == nil || p.deleted {
		return nil
	}
	if _, err := f.device("delete program " + p.source.Name); err != nil {
		return err
	}
	p.handle.Dispose()
	p.deleted = true
	return nil
}
