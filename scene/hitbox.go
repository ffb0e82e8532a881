package scene

// EntityKind names what a hit-box refers to.
type EntityKind string

const (
	EntityVehicle   EntityKind = "vehicle"
	EntityWarehouse EntityKind = "warehouse"
	EntityOrder     EntityKind = "order"
)

// Box is an axis-aligned square in pre-pan/zoom canvas pixels.
type Box struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

func (b Box) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Size && y >= b.Y && y <= b.Y+b.Size
}

// Hit is one interactive region and the snapshot entity behind it. Ref
// points into the immutable snapshot the frame was rendered from.
type Hit struct {
	Kind  EntityKind `json:"kind"`
	ID    int64      `json:"id"`
	Label string     `json:"label"`
	Box   Box        `json:"box"`
	Ref   any        `json:"entity"`
}

// Hitboxes is the registry a render pass rebuilds from scratch.
type Hitboxes struct {
	Vehicles   []Hit
	Warehouses []Hit
	Orders     []Hit
}

func (h *Hitboxes) Reset() {
	h.Vehicles = h.Vehicles[:0]
	h.Warehouses = h.Warehouses[:0]
	h.Orders = h.Orders[:0]
}

func (h *Hitboxes) Len() int {
	return len(h.Vehicles) + len(h.Warehouses) + len(h.Orders)
}

// Resolve returns the entity under the world point, preferring vehicles over
// warehouses over orders.
func (h *Hitboxes) Resolve(wx, wy float64) (Hit, bool) {
	for _, list := range [][]Hit{h.Vehicles, h.Warehouses, h.Orders} {
		for _, hit := range list {
			if hit.Box.Contains(wx, wy) {
				return hit, true
			}
		}
	}
	return Hit{}, false
}

func (h *Hitboxes) list(kind EntityKind) []Hit {
	switch kind {
	case EntityVehicle:
		return h.Vehicles
	case EntityWarehouse:
		return h.Warehouses
	case EntityOrder:
		return h.Orders
	}
	return nil
}
