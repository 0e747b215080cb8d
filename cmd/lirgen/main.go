package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lirgen/compiler/compile"
	"github.com/slowlang/lirgen/compiler/gen"
	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/sample"
	"github.com/slowlang/lirgen/compiler/snippet"
	"github.com/slowlang/lirgen/compiler/target"
)

func main() {
	sampleCmd := &cli.Command{
		Name:        "sample",
		Description: "lower built-in sample methods and print the result",
		Action:      sampleAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("arch", "amd64", "target architecture: x86, amd64, arm64"),
			cli.NewFlag("switch-limit", gen.DefaultConfig().SequentialSwitchLimit, "max switch cases compared one by one"),
			cli.NewFlag("no-strength-reduce", false, "do not rewrite multiplication by constants"),
		},
	}

	movesCmd := &cli.Command{
		Name:        "moves",
		Description: "order parallel moves given as dst=src, like v1=v2 v2=v1 v3=r0 v4=5",
		Action:      movesAct,
		Args:        cli.Args{},
	}

	listCmd := &cli.Command{
		Name:        "list",
		Description: "list samples",
		Action:      listAct,
	}

	app := &cli.Command{
		Name:        "lirgen",
		Description: "lirgen lowers method graphs into low-level instructions",
		Commands: []*cli.Command{
			sampleCmd,
			movesCmd,
			listCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func sampleAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	a, err := target.ByName(c.String("arch"))
	if err != nil {
		return errors.Wrap(err, "arch")
	}

	cfg := gen.DefaultConfig()
	cfg.SequentialSwitchLimit = c.Int("switch-limit")
	cfg.StrengthReduceMultiply = !c.Bool("no-strength-reduce")

	names := []string(c.Args)
	if len(names) == 0 {
		names = sample.Names()
	}

	rt := snippet.NewDefault()

	for _, name := range names {
		g := sample.Get(name)
		if g == nil {
			return errors.New("no such sample: %v", name)
		}

		m, err := compile.Compile(ctx, a, g, rt, cfg)
		if err != nil {
			return errors.Wrap(err, "compile %v", name)
		}

		fmt.Printf("%s\n", m.AppendText(nil))
	}

	return nil
}

func movesAct(c *cli.Command) (err error) {
	var vars int

	type move struct {
		dst, src lir.Operand
	}

	var moves []move

	for _, a := range c.Args {
		dst, src, ok := strings.Cut(a, "=")
		if !ok {
			return errors.New("bad move: %q", a)
		}

		d, err := parseOperand(dst)
		if err != nil {
			return errors.Wrap(err, "move %v", a)
		}

		s, err := parseOperand(src)
		if err != nil {
			return errors.Wrap(err, "move %v", a)
		}

		for _, o := range []lir.Operand{d, s} {
			if o.IsVariable() {
				vars = max(vars, o.Index+1)
			}
		}

		moves = append(moves, move{dst: d, src: s})
	}

	r := gen.NewPhiResolver(func(dst, src lir.Operand) {
		fmt.Printf("%s\n", lir.AppendInstr(nil, lir.Move{Dst: dst, Src: src}))
	}, func(k ir.Kind) lir.Operand {
		t := lir.Var(vars, k)
		vars++

		return t
	})

	seen := map[lir.Operand]bool{}

	for _, m := range moves {
		if !m.dst.IsVariable() {
			return errors.New("destination must be a variable: %v", m.dst)
		}

		if seen[m.dst] {
			return errors.New("destination assigned twice: %v", m.dst)
		}

		seen[m.dst] = true

		r.Move(m.src, m.dst)
	}

	r.Dispose()

	return nil
}

func listAct(c *cli.Command) error {
	for _, n := range sample.Names() {
		fmt.Printf("%s\n", n)
	}

	return nil
}

// parseOperand reads vN, rN or an int constant.
func parseOperand(s string) (lir.Operand, error) {
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'r') {
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return lir.Illegal, errors.Wrap(err, "operand %q", s)
		}

		if s[0] == 'v' {
			return lir.Var(n, ir.Int), nil
		}

		return lir.Reg(n, ir.Int), nil
	}

	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return lir.Illegal, errors.Wrap(err, "operand %q", s)
	}

	return lir.Constant(ir.IntConst(int32(n))), nil
}
