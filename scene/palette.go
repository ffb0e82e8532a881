package scene

import "fleetview/protocol"

// Icon sizes in canvas pixels.
const (
	IconSize      = 32
	OrderIconSize = 24
)

const (
	ColorNeutral       = "#444444"
	ColorMainWarehouse = "#000000"
	ColorEmpty         = "#ff0000"
	ColorStocked       = "#00c800"
	ColorOrder         = "#5459EA"
	ColorOrderFocus    = "#FFD700"
	ColorStuck         = "#ff0000"
	ColorMaintenance   = "#ffa500"
	ColorMoving        = "#00c800"
	ColorIdle          = "#ffc800"
	ColorBlockage      = "#F80707"
	ColorFocusRing     = "#805ad5"
	ColorBarBackground = "#c8c8c8"
	ColorBarFill       = "#00c800"
	ColorRoute         = "#444444"
	ColorLabel         = "#222222"
)

// VehicleColor returns the icon color for a vehicle status.
func VehicleColor(s protocol.VehicleStatus) string {
	switch {
	case s == protocol.VehicleStuck:
		return ColorStuck
	case s == protocol.VehicleMaintenance:
		return ColorMaintenance
	case s.Moving():
		return ColorMoving
	case s == protocol.VehicleIdle:
		return ColorIdle
	}
	return ColorNeutral
}

// WarehouseIcon returns the glyph and color for a warehouse. The main plant
// is never colored by stock.
func WarehouseIcon(w *protocol.Warehouse) (Kind, string) {
	if w.IsMain {
		return KindWarehouse, ColorMainWarehouse
	}
	if w.Empty() {
		return KindIndustry, ColorEmpty
	}
	return KindIndustry, ColorStocked
}
