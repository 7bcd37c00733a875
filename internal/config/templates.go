// SPDX-License-Identifier: Apache-2.0

package config

// Field order templates. Output records carry their keys in exactly this order.
var (
	ManuscriptObjectFieldOrder = []string{
		"ark", "reconstruction", "type", "shelfmark", "summary", "extent", "weight", "dim",
		"state", "fol", "coll", "features", "part", "layer", "para", "location", "assoc_date",
		"assoc_name", "assoc_place", "note", "related_mss", "viscodex", "bib", "iiif", "internal",
		"desc_provenance", "image_provenance", "metadata_rights", "image_rights", "cataloguer",
		"reconstructed_from",
	}

	LayerFieldOrder = []string{
		"ark", "reconstruction", "state", "label", "locus", "summary", "extent", "writing", "ink",
		"layout", "text_unit", "para", "assoc_date", "assoc_name", "assoc_place", "features",
		"related_mss", "note", "bib", "desc_provenance", "metadata_rights", "cataloguer",
		"reconstructed_from", "parent", "internal",
	}

	TextUnitFieldOrder = []string{
		"ark", "reconstruction", "label", "summary", "locus", "lang", "work_wit", "para",
		"features", "note", "bib", "desc_provenance", "metadata_rights", "cataloguer",
		"reconstructed_from", "parent", "internal",
	}
)

// FieldOrder returns the template for rt and whether rt is known.
func FieldOrder(rt RecordType) ([]string, bool) {
	switch rt {
	case ManuscriptObjects:
		return ManuscriptObjectFieldOrder, true
	case Layers:
		return LayerFieldOrder, true
	case TextUnits:
		return TextUnitFieldOrder, true
	}
	return nil, false
}

// AdminDefaults returns the administrative fields merged into records of rt
// when the source row does not provide them.
func (c *Config) AdminDefaults(rt RecordType) map[string]any {
	metadata, image := DefaultMetadataRights, DefaultImageRights
	if c != nil && c.Rights.Metadata != "" {
		metadata = c.Rights.Metadata
	}
	if c != nil && c.Rights.Image != "" {
		image = c.Rights.Image
	}
	defaults := map[string]any{"metadata_rights": metadata}
	if rt == ManuscriptObjects {
		defaults["image_rights"] = image
	}
	return defaults
}
