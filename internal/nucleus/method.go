package nucleus

// RequestKind identifies which of the five operations a MethodTable's
// generic handler is being asked to perform, per spec section 4.3.
type RequestKind int

const (
	ReqInit RequestKind = iota
	ReqDeinit
	ReqCall
	ReqEnabled
	ReqFreeType
)

func (k RequestKind) String() string {
	switch k {
	case ReqInit:
		return "init"
	case ReqDeinit:
		return "deinit"
	case ReqCall:
		return "call"
	case ReqEnabled:
		return "enabled"
	case ReqFreeType:
		return "freetype"
	default:
		return "request(?)"
	}
}

// MethodFlag carries a method's OpenComputers field-abstraction role and
// call discipline.
type MethodFlag uint8

const (
	// Direct methods are safe to call synchronously without yielding.
	Direct MethodFlag = 1 << iota
	Getter
	Setter
	Field
)

// Method describes one named, doc-stringed entry of a MethodTable.
type Method struct {
	Name     string
	Doc      string
	Flags    MethodFlag
	UserData any
}

// Indirect reports whether the method forces a cooperative yield: any
// method not flagged Direct.
func (m Method) Indirect() bool { return m.Flags&Direct == 0 }

// Request is passed to a MethodTable's HandlerFunc. Which fields are
// meaningful depends on Kind:
//
//   - ReqInit: Frame/Component are unset; the handler returns the new
//     instance state via State, or an error to abort addComponent.
//   - ReqDeinit: Component.State holds the instance being torn down.
//   - ReqCall: Method names the call; Frame holds arguments and receives
//     returns; the handler sets Exit (defaulting to ExitOK) and, for
//     ExitBadCall, a human-readable Err.
//   - ReqEnabled: Method names the call being probed; the handler sets
//     Enabled (default true if left unset).
//   - ReqFreeType: the type-level state (Table.TypeState) is being
//     released; there is no per-instance Component.
type Request struct {
	Kind      RequestKind
	Universe  *Universe
	Table     *MethodTable
	Computer  *Computer
	Component *Component
	Method    string
	Frame     *CallFrame

	State   any
	Enabled bool
	Exit    Exit
	Err     error
}

// HandlerFunc is the single generic handler a MethodTable dispatches every
// request through, per spec section 4.3's "single generic handler function."
type HandlerFunc func(req *Request) error

// MethodTable (a.k.a. ComponentType) is the static description of a
// peripheral: its type name, its methods, the handler that implements them,
// and any type-level state shared by every instance.
type MethodTable struct {
	Name     string
	Universe *Universe
	TypeState any
	Methods  []Method
	Handler  HandlerFunc
}

// NewMethodTable creates a MethodTable and, if u is non-nil, makes no
// implicit registration -- callers that want it cached for later lookup use
// Universe.SetUserData explicitly, matching spec section 3's "used to store
// VTables for built-in components once per universe."
func NewMethodTable(u *Universe, name string, typeState any, methods []Method, handler HandlerFunc) *MethodTable {
	return &MethodTable{
		Name:      name,
		Universe:  u,
		TypeState: typeState,
		Methods:   methods,
		Handler:   handler,
	}
}

// Method looks up a named method descriptor.
func (t *MethodTable) Method(name string) (Method, bool) {
	for _, m := range t.Methods {
		if m.Name == name {
			return m, true
		}
	}

	return Method{}, false
}

// FreeType invokes the handler with ReqFreeType, releasing any type-level
// state. It is called by a Universe when a MethodTable is evicted from its
// registry.
func (t *MethodTable) FreeType() {
	if t.Handler == nil {
		return
	}

	_ = t.Handler(&Request{Kind: ReqFreeType, Universe: t.Universe, Table: t})
}
