package pkguid

// Prefixed decorates a StringID so every generated value starts with a fixed prefix.
type Prefixed struct {
	prefix string
	next   StringID
}

// NewPrefixed returns a generator producing prefix + next.Generate().
func NewPrefixed(prefix string, next StringID) *Prefixed {
	return &Prefixed{prefix: prefix, next: next}
}

// Generate returns a new prefixed identifier.
func (p *Prefixed) Generate() string {
	return p.prefix + p.next.Generate()
}
