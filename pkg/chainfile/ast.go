package chainfile

// File represents a parsed chain description file. A file may describe
// several chains; boards with independent TAP connectors usually do.
type File struct {
	Chains []*ChainDecl `@@+`
}

// ChainDecl is one named chain and its ordered device list.
// Example: chain am335x { device icepick ir 6 router; }
type ChainDecl struct {
	Name    string        `KwChain @Ident LBrace`
	Devices []*DeviceDecl `@@* RBrace`
}

// DeviceDecl is a single device entry. Devices are listed nearest-TDO first,
// matching shift order on the wire.
type DeviceDecl struct {
	Name     string `KwDevice @Ident`
	IRLength int    `KwIR @Integer`
	Router   bool   `@KwRouter? Semicolon`
}

// Chain returns the named chain declaration if present.
func (f *File) Chain(name string) (*ChainDecl, bool) {
	for _, c := range f.Chains {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
