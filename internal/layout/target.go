package layout

// Target describes the linear-memory addressing of the output module.
type Target struct {
	Name     string // e.g. "wasm32"
	PtrSize  int    // bytes
	PageSize int    // bytes per memory page
}

// Wasm32 is the only target: 32-bit addresses, 64 KiB pages.
func Wasm32() Target {
	return Target{
		Name:     "wasm32",
		PtrSize:  4,
		PageSize: 64 * 1024,
	}
}

// MaxPages is the largest memory a wasm32 module can declare.
func (t Target) MaxPages() int {
	if t.PageSize <= 0 {
		return 0
	}
	return (1 << 32) / t.PageSize
}
