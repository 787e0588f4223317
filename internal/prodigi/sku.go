package prodigi

// DefaultSKU is the fallback for unrecognized product or size combinations.
const DefaultSKU = "GLOBAL-HPR-8X10"

var skuTable = map[string]map[string]string{
	"poster": {
		"8x10":  "GLOBAL-HPR-8X10",
		"11x14": "GLOBAL-HPR-11X14",
		"16x20": "GLOBAL-HPR-16X20",
		"24x36": "GLOBAL-HPR-24X36",
	},
	"canvas": {
		"8x10":  "GLOBAL-CAN-8X10",
		"11x14": "GLOBAL-CAN-11X14",
		"16x20": "GLOBAL-CAN-16X20",
		"24x36": "GLOBAL-CAN-24X36",
	},
	"framed": {
		"8x10":  "GLOBAL-FRP-8X10",
		"11x14": "GLOBAL-FRP-11X14",
		"16x20": "GLOBAL-FRP-16X20",
		"24x36": "GLOBAL-FRP-24X36",
	},
	"metal": {
		"8x10":  "GLOBAL-MET-8X10",
		"11x14": "GLOBAL-MET-11X14",
		"16x20": "GLOBAL-MET-16X20",
		"24x36": "GLOBAL-MET-24X36",
	},
}

// ProductSku maps a product type and size to a Prodigi SKU. Unknown
// combinations fall back to DefaultSKU rather than failing, so an order can
// always be placed.
func ProductSku(productType, size string) string {
	if sizes, ok := skuTable[productType]; ok {
		if sku, ok := sizes[size]; ok {
			return sku
		}
	}
	return DefaultSKU
}

// Sizes lists the supported print sizes.
func Sizes() []string {
	return []string{"8x10", "11x14", "16x20", "24x36"}
}

// ProductTypes lists the supported product types.
func ProductTypes() []string {
	return []string{"poster", "canvas", "framed", "metal"}
}
