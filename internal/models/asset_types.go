package models

// AssetKind tags which shape of asset reference an order carries.
type AssetKind int

const (
	NoAsset AssetKind = iota
	SingleAsset
	MultipleAssets
)

func (k AssetKind) String() string {
	switch k {
	case SingleAsset:
		return "single"
	case MultipleAssets:
		return "multiple"
	default:
		return "none"
	}
}

// Assets holds the custom model references attached to an order.
// The zero value is NoAsset.
type Assets struct {
	kind AssetKind
	refs []string
}

// NewAssets builds the variant matching the number of references.
func NewAssets(refs ...string) Assets {
	kept := make([]string, 0, len(refs))
	for _, r := range refs {
		if r != "" {
			kept = append(kept, r)
		}
	}
	switch len(kept) {
	case 0:
		return Assets{}
	case 1:
		return Assets{kind: SingleAsset, refs: kept}
	default:
		return Assets{kind: MultipleAssets, refs: kept}
	}
}

func (a Assets) Kind() AssetKind { return a.kind }

// Refs returns a copy of the references in attachment order.
func (a Assets) Refs() []string {
	if len(a.refs) == 0 {
		return nil
	}
	out := make([]string, len(a.refs))
	copy(out, a.refs)
	return out
}

// fields maps the variant onto the persisted document fields. A single
// reference is mirrored into both fields for older readers.
func (a Assets) fields() (single string, list []string) {
	switch a.kind {
	case SingleAsset:
		return a.refs[0], a.Refs()
	case MultipleAssets:
		return "", a.Refs()
	default:
		return "", nil
	}
}

func assetsFromFields(single string, list []string) Assets {
	if len(list) > 0 {
		return NewAssets(list...)
	}
	return NewAssets(single)
}
