package filesystem_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/filesystem"
)

func newFSComponent(t *testing.T, h *nucleustest.Harness, c *nucleus.Computer, opts filesystem.Options) *nucleus.Component {
	t.Helper()

	table := filesystem.NewMethodTable(h.Universe)

	comp, err := c.AddComponent(table, "fs1", 0, filesystem.New(opts))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	return comp
}

func TestWriteCloseReopenRead(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newFSComponent(t, h, c, filesystem.Options{Capacity: 4096})

	rets := nucleustest.Call(t, c, comp.Address, "open", nucleus.String([]byte("boot.lua")), nucleus.String([]byte("w")))
	fd := rets[0]

	nucleustest.Call(t, c, comp.Address, "write", fd, nucleus.String([]byte("print(1)")))
	nucleustest.Call(t, c, comp.Address, "close", fd)

	rets = nucleustest.Call(t, c, comp.Address, "open", nucleus.String([]byte("boot.lua")), nucleus.String([]byte("r")))
	fd = rets[0]

	rets = nucleustest.Call(t, c, comp.Address, "read", fd, nucleus.Number(1024))
	if got := string(rets[0].ToString()); got != "print(1)" {
		t.Fatalf("read: want %q, got %q", "print(1)", got)
	}

	frame := c.Frame()
	if err := frame.AddArgument(fd); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	if err := frame.AddArgument(nucleus.Number(1024)); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	if exit := c.Invoke(comp.Address, "read"); exit != nucleus.ExitOK {
		t.Fatalf("read at EOF: want ExitOK, got %v", exit)
	}

	if rets := c.Frame().Returns(); len(rets) != 0 {
		t.Fatalf("read at EOF: want no returns, got %d", len(rets))
	}
}

func TestSeekWhence(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newFSComponent(t, h, c, filesystem.Options{Capacity: 4096})

	rets := nucleustest.Call(t, c, comp.Address, "open", nucleus.String([]byte("data.bin")), nucleus.String([]byte("w")))
	fd := rets[0]

	nucleustest.Call(t, c, comp.Address, "write", fd, nucleus.String([]byte("0123456789")))

	rets = nucleustest.Call(t, c, comp.Address, "seek", fd, nucleus.String([]byte("set")), nucleus.Int(3))
	if rets[0].ToInt() != 3 {
		t.Fatalf("seek set: want 3, got %d", rets[0].ToInt())
	}

	rets = nucleustest.Call(t, c, comp.Address, "seek", fd, nucleus.String([]byte("cur")), nucleus.Int(2))
	if rets[0].ToInt() != 5 {
		t.Fatalf("seek cur: want 5, got %d", rets[0].ToInt())
	}

	rets = nucleustest.Call(t, c, comp.Address, "seek", fd, nucleus.String([]byte("end")), nucleus.Int(0))
	if rets[0].ToInt() != 10 {
		t.Fatalf("seek end: want 10, got %d", rets[0].ToInt())
	}
}

func TestListExistsSizeIsDirectory(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newFSComponent(t, h, c, filesystem.Options{Capacity: 4096})

	nucleustest.Call(t, c, comp.Address, "makeDirectory", nucleus.String([]byte("lib")))

	rets := nucleustest.Call(t, c, comp.Address, "open", nucleus.String([]byte("lib/util.lua")), nucleus.String([]byte("w")))
	fd := rets[0]
	nucleustest.Call(t, c, comp.Address, "write", fd, nucleus.String([]byte("return {}")))
	nucleustest.Call(t, c, comp.Address, "close", fd)

	rets = nucleustest.Call(t, c, comp.Address, "list", nucleus.String([]byte("")))
	arr := rets[0]
	if arr.Len() != 1 {
		t.Fatalf("list /: want 1 entry, got %d", arr.Len())
	}
	if got := string(nucleus.Get(arr, 0).ToString()); got != "lib/" {
		t.Fatalf("list /: want %q, got %q", "lib/", got)
	}

	rets = nucleustest.Call(t, c, comp.Address, "exists", nucleus.String([]byte("lib/util.lua")))
	if !rets[0].ToBoolean() {
		t.Fatalf("exists lib/util.lua: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "size", nucleus.String([]byte("lib/util.lua")))
	if rets[0].ToInt() != int64(len("return {}")) {
		t.Fatalf("size: want %d, got %d", len("return {}"), rets[0].ToInt())
	}

	rets = nucleustest.Call(t, c, comp.Address, "isDirectory", nucleus.String([]byte("lib")))
	if !rets[0].ToBoolean() {
		t.Fatalf("isDirectory lib: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "isDirectory", nucleus.String([]byte("lib/util.lua")))
	if rets[0].ToBoolean() {
		t.Fatalf("isDirectory lib/util.lua: want false, got true")
	}
}

func TestRenameAndRemove(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newFSComponent(t, h, c, filesystem.Options{Capacity: 4096})

	rets := nucleustest.Call(t, c, comp.Address, "open", nucleus.String([]byte("old.txt")), nucleus.String([]byte("w")))
	fd := rets[0]
	nucleustest.Call(t, c, comp.Address, "write", fd, nucleus.String([]byte("hi")))
	nucleustest.Call(t, c, comp.Address, "close", fd)

	rets = nucleustest.Call(t, c, comp.Address, "rename", nucleus.String([]byte("old.txt")), nucleus.String([]byte("new.txt")))
	if !rets[0].ToBoolean() {
		t.Fatalf("rename: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "exists", nucleus.String([]byte("old.txt")))
	if rets[0].ToBoolean() {
		t.Fatalf("exists old.txt after rename: want false, got true")
	}

	rets = nucleustest.Call(t, c, comp.Address, "exists", nucleus.String([]byte("new.txt")))
	if !rets[0].ToBoolean() {
		t.Fatalf("exists new.txt after rename: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "remove", nucleus.String([]byte("new.txt")))
	if !rets[0].ToBoolean() {
		t.Fatalf("remove: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "exists", nucleus.String([]byte("new.txt")))
	if rets[0].ToBoolean() {
		t.Fatalf("exists new.txt after remove: want false, got true")
	}
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newFSComponent(t, h, c, filesystem.Options{Capacity: 4096, ReadOnly: true})

	if exit := c.Invoke(comp.Address, "open"); exit != nucleus.ExitBadCall {
		t.Fatalf("open (no args): want ExitBadCall, got %v", exit)
	}

	frame := c.Frame()
	if err := frame.AddArgument(nucleus.String([]byte("new.txt"))); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	if err := frame.AddArgument(nucleus.String([]byte("w"))); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	if exit := c.Invoke(comp.Address, "open"); exit != nucleus.ExitBadCall {
		t.Fatalf("open for write on read-only fs: want ExitBadCall, got %v", exit)
	}

	if exit := c.Invoke(comp.Address, "remove"); exit != nucleus.ExitBadCall {
		t.Fatalf("remove (no args): want ExitBadCall, got %v", exit)
	}

	frame = c.Frame()
	if err := frame.AddArgument(nucleus.String([]byte("anything"))); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	if exit := c.Invoke(comp.Address, "remove"); exit != nucleus.ExitBadCall {
		t.Fatalf("remove on read-only fs: want ExitBadCall, got %v", exit)
	}

	frame = c.Frame()
	if err := frame.AddArgument(nucleus.String([]byte("newdir"))); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	if exit := c.Invoke(comp.Address, "makeDirectory"); exit != nucleus.ExitBadCall {
		t.Fatalf("makeDirectory on read-only fs: want ExitBadCall, got %v", exit)
	}
}

func TestLabelAndSpaceAccounting(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newFSComponent(t, h, c, filesystem.Options{Capacity: 1024})

	rets := nucleustest.Call(t, c, comp.Address, "setLabel", nucleus.String([]byte("tmpfs")))
	if got := string(rets[0].ToString()); got != "tmpfs" {
		t.Fatalf("setLabel: want %q, got %q", "tmpfs", got)
	}

	rets = nucleustest.Call(t, c, comp.Address, "getLabel")
	if got := string(rets[0].ToString()); got != "tmpfs" {
		t.Fatalf("getLabel: want %q, got %q", "tmpfs", got)
	}

	rets = nucleustest.Call(t, c, comp.Address, "spaceTotal")
	if rets[0].ToInt() != 1024 {
		t.Fatalf("spaceTotal: want 1024, got %d", rets[0].ToInt())
	}

	rets = nucleustest.Call(t, c, comp.Address, "spaceUsed")
	if rets[0].ToInt() != 0 {
		t.Fatalf("spaceUsed on empty fs: want 0, got %d", rets[0].ToInt())
	}

	rets = nucleustest.Call(t, c, comp.Address, "open", nucleus.String([]byte("a.txt")), nucleus.String([]byte("w")))
	fd := rets[0]
	nucleustest.Call(t, c, comp.Address, "write", fd, nucleus.String([]byte("hello")))
	nucleustest.Call(t, c, comp.Address, "close", fd)

	rets = nucleustest.Call(t, c, comp.Address, "spaceUsed")
	if rets[0].ToInt() != int64(len("hello")) {
		t.Fatalf("spaceUsed: want %d, got %d", len("hello"), rets[0].ToInt())
	}
}
