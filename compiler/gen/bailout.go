package gen

import (
	"fmt"

	"tlog.app/go/loc"
)

type (
	// Bailout aborts lowering of the whole method.
	// The caller may retry with a lower tier or interpret the method.
	Bailout struct {
		Method string
		Reason string
		PC     loc.PC
	}
)

func (b *Bailout) Error() string {
	return fmt.Sprintf("bailout: %s: %s", b.Method, b.Reason)
}

func (g *Generator) bailout(format string, args ...interface{}) {
	b := &Bailout{
		Method: g.g.Name,
		Reason: fmt.Sprintf(format, args...),
		PC:     loc.Caller(1),
	}

	g.tr.Printw("bailout", "reason", b.Reason, "from", b.PC)

	panic(b)
}
