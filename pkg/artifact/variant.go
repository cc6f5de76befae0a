package artifact

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Variant names a thumbnail rendition and its pixel dimensions.
type Variant struct {
	Name   string
	Width  int
	Height int
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// DefaultVariants are the renditions generated on warm-up and served
// on demand.
var DefaultVariants = []Variant{
	{Name: "grid", Width: 256, Height: 256},
	{Name: "preview", Width: 768, Height: 768},
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// VariantByName returns the named variant, or false when unknown.
func VariantByName(name string) (Variant, bool) {
	for _, variant := range DefaultVariants {
		if variant.Name == name {
			return variant, true
		}
	}
	return Variant{}, false
}
