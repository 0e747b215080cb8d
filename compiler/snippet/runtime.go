package snippet

import (
	"fmt"
	"sync"

	"github.com/slowlang/lirgen/compiler/ir"
)

type (
	// Runtime supplies templates for operations whose lowering depends on
	// the object model. A nil snippet means the operation is unsupported.
	Runtime interface {
		Prologue(method string) *Snippet
		Epilogue() *Snippet
		Safepoint() *Snippet

		LoadIndexed(elem ir.Kind, array, index ir.Value) *Snippet
		StoreIndexed(elem ir.Kind, array, index, value ir.Value) *Snippet

		CheckCast(obj ir.Value, typ string) *Snippet
		InstanceOf(obj ir.Value, typ string) *Snippet

		NewInstance(typ string) *Snippet
		NewArray(elem ir.Kind, length ir.Value) *Snippet

		MonitorEnter(obj ir.Value, lock int) *Snippet
		MonitorExit(obj ir.Value, lock int) *Snippet

		// Invoke computes the call destination. The result is a Word.
		Invoke(op ir.InvokeOp, target ir.Method, receiver ir.Value) *Snippet
	}

	// Default is a runtime with a conventional object layout.
	// It is safe for concurrent use.
	Default struct {
		mu    sync.Mutex
		cache map[string]*Template
	}
)

func NewDefault() *Default {
	return &Default{
		cache: map[string]*Template{},
	}
}

func (d *Default) template(name string, build func() *Template) *Template {
	defer d.mu.Unlock()
	d.mu.Lock()

	if t, ok := d.cache[name]; ok {
		return t
	}

	t := build()
	t.Name = name

	if err := t.Check(); err != nil {
		panic(err)
	}

	d.cache[name] = t

	return t
}

func (d *Default) Prologue(method string) *Snippet {
	t := d.template("prologue", func() *Template {
		return &Template{
			Result:      -1,
			ResultAlias: -1,
			FastPath:    []Op{{Code: "enter"}, {Code: "stackbang"}},
			SlowPath:    []Op{{Code: "call", Args: []int{-1}}},
			Labels:      1,
			Stubs:       []string{"stack_overflow"},
		}
	})

	return &Snippet{T: t}
}

func (d *Default) Epilogue() *Snippet {
	t := d.template("epilogue", func() *Template {
		return &Template{
			Result:      -1,
			ResultAlias: -1,
			FastPath:    []Op{{Code: "leave"}},
		}
	})

	return &Snippet{T: t}
}

func (d *Default) Safepoint() *Snippet {
	t := d.template("safepoint", func() *Template {
		return &Template{
			Result:      -1,
			ResultAlias: -1,
			FastPath:    []Op{{Code: "poll", Args: []int{-1}}},
			SlowPath:    []Op{{Code: "call", Args: []int{-1}}},
			Labels:      1,
			Stubs:       []string{"safepoint"},
			Traps:       true,
		}
	})

	return &Snippet{T: t}
}

func (d *Default) LoadIndexed(elem ir.Kind, array, index ir.Value) *Snippet {
	t := d.template(fmt.Sprintf("aload_%v", elem), func() *Template {
		return &Template{
			Params: []Param{
				{Name: "array", Kind: ir.Object, Role: Input, Fixed: -1},
				{Name: "index", Kind: ir.Int, Role: Input, AcceptsConst: true, Fixed: -1},
				{Name: "result", Kind: elem.StackKind(), Role: Result, Fixed: -1},
			},
			Result:      2,
			ResultAlias: -1,
			FastPath: []Op{
				{Code: "boundscheck", Args: []int{0, 1, -1}},
				{Code: "load", Args: []int{2, 0, 1}},
			},
			SlowPath: []Op{{Code: "call", Args: []int{-1}}},
			Labels:   1,
			Stubs:    []string{"throw_index_out_of_bounds"},
			Traps:    true,
		}
	})

	return &Snippet{T: t, Args: []Arg{ValueArg(array), ValueArg(index), {}}}
}

func (d *Default) StoreIndexed(elem ir.Kind, array, index, value ir.Value) *Snippet {
	t := d.template(fmt.Sprintf("astore_%v", elem), func() *Template {
		t := &Template{
			Params: []Param{
				{Name: "array", Kind: ir.Object, Role: Input, Fixed: -1},
				{Name: "index", Kind: ir.Int, Role: Input, AcceptsConst: true, Fixed: -1},
				{Name: "value", Kind: elem.StackKind(), Role: Input, AcceptsConst: true, Store: elem, Fixed: -1},
			},
			Result:      -1,
			ResultAlias: -1,
			FastPath: []Op{
				{Code: "boundscheck", Args: []int{0, 1, -1}},
				{Code: "store", Args: []int{0, 1, 2}},
			},
			SlowPath: []Op{{Code: "call", Args: []int{-1}}},
			Labels:   1,
			Stubs:    []string{"throw_index_out_of_bounds"},
			Traps:    true,
		}

		if elem == ir.Object {
			t.Params = append(t.Params, Param{Name: "tmp", Kind: ir.Word, Role: Temp, Fixed: -1})
			t.FastPath = append([]Op{{Code: "storecheck", Args: []int{0, 2, 3, -2}}}, t.FastPath...)
			t.FastPath = append(t.FastPath, Op{Code: "barrier", Args: []int{0, 3}})
			t.SlowPath = append(t.SlowPath, Op{Code: "call", Args: []int{-2}})
			t.Labels = 2
			t.Stubs = append(t.Stubs, "throw_array_store")
		}

		return t
	})

	args := []Arg{ValueArg(array), ValueArg(index), ValueArg(value)}
	if elem == ir.Object {
		args = append(args, Arg{})
	}

	return &Snippet{T: t, Args: args}
}

func (d *Default) CheckCast(obj ir.Value, typ string) *Snippet {
	t := d.template("checkcast", func() *Template {
		return &Template{
			Params: []Param{
				{Name: "obj", Kind: ir.Object, Role: Input, Fixed: -1},
				{Name: "hub", Kind: ir.Object, Role: Const, Fixed: -1},
				{Name: "tmp", Kind: ir.Word, Role: Temp, Fixed: -1},
				{Name: "result", Kind: ir.Object, Role: Result, Fixed: -1},
			},
			Result:      3,
			ResultAlias: 0,
			FastPath: []Op{
				{Code: "jnull", Args: []int{0, -2}},
				{Code: "loadhub", Args: []int{2, 0}},
				{Code: "jne", Args: []int{2, 1, -1}},
			},
			SlowPath: []Op{{Code: "call", Args: []int{-1}}},
			Labels:   2,
			Stubs:    []string{"checkcast"},
			Traps:    true,
		}
	})

	return &Snippet{T: t, Args: []Arg{ValueArg(obj), ConstArg(ir.ObjConst("hub:" + typ)), {}, {}}}
}

func (d *Default) InstanceOf(obj ir.Value, typ string) *Snippet {
	t := d.template("instanceof", func() *Template {
		return &Template{
			Params: []Param{
				{Name: "obj", Kind: ir.Object, Role: Input, Fixed: -1},
				{Name: "hub", Kind: ir.Object, Role: Const, Fixed: -1},
				{Name: "result", Kind: ir.Int, Role: Result, Fixed: -1},
			},
			Result:      2,
			ResultAlias: -1,
			FastPath: []Op{
				{Code: "clear", Args: []int{2}},
				{Code: "jnull", Args: []int{0, -1}},
				{Code: "loadhub", Args: []int{2, 0}},
				{Code: "seteq", Args: []int{2, 1}},
			},
			SlowPath: []Op{{Code: "call", Args: []int{-1}}},
			Labels:   1,
			Stubs:    []string{"instanceof"},
		}
	})

	return &Snippet{T: t, Args: []Arg{ValueArg(obj), ConstArg(ir.ObjConst("hub:" + typ)), {}}}
}

func (d *Default) NewInstance(typ string) *Snippet {
	t := d.template("new", func() *Template {
		return &Template{
			Params: []Param{
				{Name: "hub", Kind: ir.Object, Role: Const, Fixed: -1},
				{Name: "tmp", Kind: ir.Word, Role: Temp, Fixed: -1},
				{Name: "result", Kind: ir.Object, Role: Result, Fixed: -1},
			},
			Result:      2,
			ResultAlias: -1,
			FastPath: []Op{
				{Code: "tlab_alloc", Args: []int{2, 1, 0, -1}},
				{Code: "init_header", Args: []int{2, 0}},
			},
			SlowPath: []Op{{Code: "call", Args: []int{-1}}},
			Labels:   1,
			Stubs:    []string{"new_instance"},
			Traps:    true,
		}
	})

	return &Snippet{T: t, Args: []Arg{ConstArg(ir.ObjConst("hub:" + typ)), {}, {}}}
}

func (d *Default) NewArray(elem ir.Kind, length ir.Value) *Snippet {
	t := d.template(fmt.Sprintf("newarray_%v", elem), func() *Template {
		return &Template{
			Params: []Param{
				{Name: "length", Kind: ir.Int, Role: Input, Destroyed: true, Fixed: -1},
				{Name: "hub", Kind: ir.Object, Role: Const, Fixed: -1},
				{Name: "result", Kind: ir.Object, Role: Result, Fixed: -1},
			},
			Result:      2,
			ResultAlias: -1,
			FastPath: []Op{
				{Code: "size", Args: []int{0}},
				{Code: "tlab_alloc", Args: []int{2, 0, 1, -1}},
				{Code: "init_array", Args: []int{2, 1}},
			},
			SlowPath: []Op{{Code: "call", Args: []int{-1}}},
			Labels:   1,
			Stubs:    []string{"new_array"},
			Traps:    true,
		}
	})

	return &Snippet{T: t, Args: []Arg{ValueArg(length), ConstArg(ir.ObjConst(fmt.Sprintf("hub:[%v", elem))), {}}}
}

func (d *Default) MonitorEnter(obj ir.Value, lock int) *Snippet {
	return d.monitor("monitorenter", "monitor_enter", obj, lock)
}

func (d *Default) MonitorExit(obj ir.Value, lock int) *Snippet {
	return d.monitor("monitorexit", "monitor_exit", obj, lock)
}

func (d *Default) monitor(name, stub string, obj ir.Value, lock int) *Snippet {
	t := d.template(name, func() *Template {
		return &Template{
			Params: []Param{
				{Name: "obj", Kind: ir.Object, Role: Input, Fixed: -1},
				{Name: "lock", Kind: ir.Word, Role: LockSlot, Fixed: -1},
				{Name: "tmp", Kind: ir.Word, Role: Temp, Fixed: -1},
			},
			Result:      -1,
			ResultAlias: -1,
			FastPath:    []Op{{Code: "cas_lock", Args: []int{0, 1, 2, -1}}},
			SlowPath:    []Op{{Code: "call", Args: []int{-1}}},
			Labels:      1,
			Stubs:       []string{stub},
			Traps:       true,
		}
	})

	return &Snippet{T: t, Args: []Arg{ValueArg(obj), LockArg(lock), {}}}
}

func (d *Default) Invoke(op ir.InvokeOp, target ir.Method, receiver ir.Value) *Snippet {
	entry := ir.ObjConst(fmt.Sprintf("method:%s.%s", target.Holder, target.Name))

	switch op {
	case ir.InvokeStatic, ir.InvokeSpecial:
		t := d.template("invoke_direct", func() *Template {
			return &Template{
				Params: []Param{
					{Name: "entry", Kind: ir.Word, Role: Const, Fixed: -1},
				},
				Result:      0,
				ResultAlias: -1,
			}
		})

		return &Snippet{T: t, Args: []Arg{ConstArg(entry)}}
	case ir.InvokeVirtual:
		t := d.template("invoke_virtual", func() *Template {
			return &Template{
				Params: []Param{
					{Name: "receiver", Kind: ir.Object, Role: Input, Fixed: -1},
					{Name: "vtable_index", Kind: ir.Int, Role: Const, Fixed: -1},
					{Name: "result", Kind: ir.Word, Role: Result, Fixed: -1},
				},
				Result:      2,
				ResultAlias: -1,
				FastPath: []Op{
					{Code: "loadhub", Args: []int{2, 0}},
					{Code: "loadvtable", Args: []int{2, 2, 1}},
				},
				Traps: true,
			}
		})

		return &Snippet{T: t, Args: []Arg{ValueArg(receiver), ConstArg(ir.IntConst(vtableIndex(target))), {}}}
	case ir.InvokeInterface:
		t := d.template("invoke_interface", func() *Template {
			return &Template{
				Params: []Param{
					{Name: "receiver", Kind: ir.Object, Role: Input, Fixed: -1},
					{Name: "iface", Kind: ir.Object, Role: Const, Fixed: -1},
					{Name: "tmp", Kind: ir.Word, Role: Temp, Fixed: -1},
					{Name: "result", Kind: ir.Word, Role: Result, Fixed: -1},
				},
				Result:      3,
				ResultAlias: -1,
				FastPath: []Op{
					{Code: "loadhub", Args: []int{2, 0}},
					{Code: "itable_scan", Args: []int{3, 2, 1, -1}},
				},
				SlowPath: []Op{{Code: "call", Args: []int{-1}}},
				Labels:   1,
				Stubs:    []string{"throw_incompatible_class_change"},
				Traps:    true,
			}
		})

		return &Snippet{T: t, Args: []Arg{ValueArg(receiver), ConstArg(ir.ObjConst("hub:" + target.Holder)), {}, {}}}
	}

	return nil
}

// vtableIndex gives a stable slot per method name.
func vtableIndex(m ir.Method) int32 {
	var h uint32 = 2166136261

	for _, c := range []byte(m.Name) {
		h = (h ^ uint32(c)) * 16777619
	}

	return int32(h % 64)
}
