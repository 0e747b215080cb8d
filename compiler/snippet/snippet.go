package snippet

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/lirgen/compiler/ir"
)

type (
	Role uint8

	// Param is one operand slot of a template.
	Param struct {
		Name string
		Kind ir.Kind
		Role Role

		// Input roles.
		AcceptsConst bool    // an inline constant may be bound instead of a register
		Destroyed    bool    // the template overwrites the input
		Store        ir.Kind // the input is stored to memory with this kind

		Fixed int // physical register number or -1
	}

	// Op is one symbolic instruction of a template body. Args index Params,
	// negative values are template-local labels.
	Op struct {
		Code string
		Args []int
	}

	// Template is a parameterized expansion of a complex operation.
	// The assembler expands FastPath inline and SlowPath out of line.
	Template struct {
		Name   string
		Params []Param

		Result      int // index of the result param or -1
		ResultAlias int // index of the input param the result aliases or -1

		FastPath []Op
		SlowPath []Op
		Labels   int

		Stubs []string // global stubs called from the template

		Traps bool // needs a frame state
	}

	ArgKind uint8

	Arg struct {
		Kind  ArgKind
		Value ir.Value
		Const ir.Const
		Lock  int
	}

	// Snippet binds a template to concrete arguments: Args[i] feeds Params[i].
	Snippet struct {
		T    *Template
		Args []Arg
	}
)

const (
	Input Role = iota
	Const
	Temp
	Result
	LockSlot
)

const (
	ArgNone ArgKind = iota
	ArgValue
	ArgConst
	ArgLock
)

var roleNames = [...]string{Input: "in", Const: "const", Temp: "temp", Result: "result", LockSlot: "lock"}

func (r Role) String() string { return roleNames[r] }

func ValueArg(v ir.Value) Arg { return Arg{Kind: ArgValue, Value: v} }
func ConstArg(c ir.Const) Arg { return Arg{Kind: ArgConst, Const: c} }
func LockArg(lock int) Arg    { return Arg{Kind: ArgLock, Lock: lock} }

// HasCode reports whether the template emits any machine code itself.
func (t *Template) HasCode() bool {
	return len(t.FastPath) != 0 || len(t.SlowPath) != 0 || t.Labels != 0
}

// Check verifies the template shape and that every slot is bindable.
func (t *Template) Check() error {
	if t.Result >= len(t.Params) {
		return errors.New("%v: result index %d out of range", t.Name, t.Result)
	}

	if t.Result >= 0 {
		switch r := t.Params[t.Result].Role; r {
		case Result, Const:
		default:
			return errors.New("%v: result param has role %v", t.Name, r)
		}
	}

	if a := t.ResultAlias; a >= 0 {
		if a >= len(t.Params) || t.Params[a].Role != Input {
			return errors.New("%v: result alias %d is not an input", t.Name, a)
		}

		if t.Result < 0 {
			return errors.New("%v: result alias without result", t.Name)
		}
	}

	for i, p := range t.Params {
		if p.Kind == ir.Illegal || p.Kind == ir.Void {
			return errors.New("%v: param %d (%v) has no kind", t.Name, i, p.Name)
		}
	}

	return nil
}

func (s *Snippet) String() string {
	return fmt.Sprintf("%v%v", s.T.Name, s.Args)
}

func (a Arg) String() string {
	switch a.Kind {
	case ArgValue:
		return fmt.Sprintf("v%d", a.Value)
	case ArgConst:
		return a.Const.String()
	case ArgLock:
		return fmt.Sprintf("lock%d", a.Lock)
	}

	return "_"
}
