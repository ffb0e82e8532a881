package scene

// Kind names a glyph family in the icon cache.
type Kind string

const (
	KindTruck     Kind = "truck"
	KindWarehouse Kind = "warehouse"
	KindIndustry  Kind = "industry"
	KindMarker    Kind = "marker"
)

// colorToken is replaced by the requested fill color before rasterizing.
const colorToken = "{{color}}"

// Built-in glyphs, drawn on a 512 unit square. The truck faces right.
var builtinGlyphs = map[Kind]string{
	KindTruck: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512">
<path fill="{{color}}" d="M16 112 H320 V352 H16 Z"/>
<path fill="{{color}}" d="M336 176 H416 L496 272 V352 H336 Z"/>
<path fill="#ffffff" d="M360 200 H408 L456 264 H360 Z"/>
<circle fill="{{color}}" cx="112" cy="384" r="56"/>
<circle fill="{{color}}" cx="400" cy="384" r="56"/>
<circle fill="#ffffff" cx="112" cy="384" r="24"/>
<circle fill="#ffffff" cx="400" cy="384" r="24"/>
</svg>`,

	KindWarehouse: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512">
<path fill="{{color}}" d="M256 24 L496 152 V496 H424 V224 H88 V496 H16 V152 Z"/>
<path fill="{{color}}" d="M120 256 H392 V312 H120 Z"/>
<path fill="{{color}}" d="M120 344 H392 V400 H120 Z"/>
<path fill="{{color}}" d="M120 432 H392 V496 H120 Z"/>
</svg>`,

	KindIndustry: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512">
<path fill="{{color}}" d="M16 496 V72 H96 V232 L224 152 V232 L352 152 V232 L496 152 V496 Z"/>
<path fill="#ffffff" d="M96 360 H160 V424 H96 Z"/>
<path fill="#ffffff" d="M224 360 H288 V424 H224 Z"/>
<path fill="#ffffff" d="M352 360 H416 V424 H352 Z"/>
</svg>`,

	KindMarker: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512">
<path fill="{{color}}" d="M256 16 C150 16 80 96 80 192 C80 320 256 496 256 496 C256 496 432 320 432 192 C432 96 362 16 256 16 Z"/>
<circle fill="#ffffff" cx="256" cy="192" r="72"/>
</svg>`,
}
