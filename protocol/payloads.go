package protocol

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidSnapshot marks a snapshot rejected at the ingestion boundary.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrUnknownType marks an envelope whose type is not recognized.
	ErrUnknownType = errors.New("unknown message type")
)

// Position is a point on the logical grid.
type Position struct {
	X float64 `json:"posX"`
	Y float64 `json:"posY"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// VehicleStatus is the planner's state for a vehicle.
type VehicleStatus string

const (
	VehicleStuck           VehicleStatus = "STUCK"
	VehicleMaintenance     VehicleStatus = "MAINTENANCE"
	VehicleIdle            VehicleStatus = "IDLE"
	VehicleOnTheWay        VehicleStatus = "ONTHEWAY"
	VehicleReturningToBase VehicleStatus = "RETURNING_TO_BASE"
	VehicleFinished        VehicleStatus = "FINISHED"
	VehicleRepair          VehicleStatus = "REPAIR"
)

// Label returns the human readable state shown in the vehicle panel.
func (s VehicleStatus) Label() string {
	switch s {
	case VehicleStuck:
		return "Immobilized"
	case VehicleMaintenance:
		return "In maintenance"
	case VehicleIdle:
		return "Unscheduled"
	case VehicleOnTheWay:
		return "En route"
	case VehicleReturningToBase:
		return "Returning to base"
	case VehicleFinished:
		return "Route finished"
	case VehicleRepair:
		return "Under repair"
	default:
		return "En route"
	}
}

// Moving reports whether the status means the vehicle is travelling.
// Older planners report "En Ruta" or "MOVIENDOSE" instead of ONTHEWAY.
func (s VehicleStatus) Moving() bool {
	switch s {
	case VehicleOnTheWay, VehicleReturningToBase, "En Ruta", "MOVIENDOSE":
		return true
	}
	return false
}

// Vehicle is one truck within a snapshot.
type Vehicle struct {
	ID      int64         `json:"idVehiculo"`
	Plate   string        `json:"placa"`
	Type    string        `json:"tipo"`
	X       float64       `json:"posicionX"`
	Y       float64       `json:"posicionY"`
	Fuel    float64       `json:"combustible"`
	MaxFuel float64       `json:"maxCombustible"`
	GLP     float64       `json:"currGLP"`
	MaxGLP  float64       `json:"maxGLP"`
	Status  VehicleStatus `json:"estado"`
	Action  string        `json:"accion,omitempty"`
	// Route holds the waypoints not yet traversed; Route[0] is the next target.
	Route []Position `json:"rutaActual,omitempty"`
}

// Position returns the vehicle's current grid position.
func (v *Vehicle) Position() Position { return Position{X: v.X, Y: v.Y} }

// Label is the text painted above the vehicle icon.
func (v *Vehicle) Label() string {
	if v.Plate != "" {
		return v.Plate
	}
	if v.ID != 0 {
		return fmt.Sprintf("%d", v.ID)
	}
	return ""
}

// Assignment is a vehicle currently serving an order.
type Assignment struct {
	Plate string `json:"placa"`
	ETA   string `json:"eta"`
}

// Order is a customer delivery request within a snapshot.
type Order struct {
	ID       int64        `json:"idPedido"`
	Status   string       `json:"estado"`
	GLP      float64      `json:"glp"`
	Deadline string       `json:"tiempoLimite"`
	X        float64      `json:"posX"`
	Y        float64      `json:"posY"`
	Vehicles []Assignment `json:"vehiculosAtendiendo,omitempty"`
}

// Open reports whether the order still needs a marker on the map: it is not
// completed and still has GLP pending.
func (o *Order) Open() bool {
	return !strings.EqualFold(strings.TrimSpace(o.Status), OrderCompleted) && o.GLP > 0
}

// Warehouse is a GLP depot. CurrentGLP and MaxGLP are absent for the main
// plant, whose capacity is unlimited.
type Warehouse struct {
	ID         int64     `json:"idAlmacen"`
	Position   *Position `json:"posicion,omitempty"`
	CurrentGLP *float64  `json:"currentGLP,omitempty"`
	MaxGLP     *float64  `json:"maxGLP,omitempty"`
	IsMain     bool      `json:"isMain"`
	WasVehicle bool      `json:"wasVehicle,omitempty"`
}

// Empty reports whether a non-main warehouse has run out of GLP. The main
// warehouse is never empty.
func (w *Warehouse) Empty() bool {
	if w.IsMain {
		return false
	}
	return w.CurrentGLP == nil || *w.CurrentGLP == 0
}

// FillRatio returns currentGLP/maxGLP clamped to [0,1]; ok is false when the
// warehouse has no bounded capacity.
func (w *Warehouse) FillRatio() (ratio float64, ok bool) {
	if w.IsMain || w.MaxGLP == nil || *w.MaxGLP <= 0 {
		return 0, false
	}
	cur := 0.0
	if w.CurrentGLP != nil {
		cur = *w.CurrentGLP
	}
	ratio = cur / *w.MaxGLP
	return math.Max(0, math.Min(1, ratio)), true
}

// Blockage is a road closure: a polyline of forbidden segments valid
// between Start and End.
type Blockage struct {
	ID     int64      `json:"idBloqueo"`
	Start  string     `json:"fechaInicio"`
	End    string     `json:"fechaFin"`
	Points []Position `json:"segmentos"`
}

// IncidentVehicle references the vehicle an incident applies to.
type IncidentVehicle struct {
	ID    int64  `json:"id"`
	Plate string `json:"placa,omitempty"`
}

// Incident is a registered vehicle breakdown.
type Incident struct {
	ID       int64           `json:"id"`
	Date     string          `json:"fecha"`
	Shift    string          `json:"turno"`
	Vehicle  IncidentVehicle `json:"vehiculo"`
	Occurred bool            `json:"ocurrido"`
}

// MaintenanceVehicle references the vehicle under maintenance.
type MaintenanceVehicle struct {
	Plate string `json:"placa"`
	Type  string `json:"tipo"`
}

// Maintenance is a scheduled maintenance window.
type Maintenance struct {
	ID      int64              `json:"id"`
	Vehicle MaintenanceVehicle `json:"vehiculo"`
	Status  string             `json:"estado"`
	Start   string             `json:"fechaInicio"`
	End     string             `json:"fechaFin"`
}

// Indicators aggregates fleet KPIs for the current minute.
type Indicators struct {
	FuelCounterTA    float64 `json:"fuelCounterTA"`
	FuelCounterTB    float64 `json:"fuelCounterTB"`
	FuelCounterTC    float64 `json:"fuelCounterTC"`
	FuelCounterTD    float64 `json:"fuelCounterTD"`
	FuelCounterTotal float64 `json:"fuelCounterTotal"`
	GLPFilledNorth   float64 `json:"glpFilledNorth"`
	GLPFilledEast    float64 `json:"glpFilledEast"`
	GLPFilledMain    float64 `json:"glpFilledMain"`
	GLPFilledTotal   float64 `json:"glpFilledTotal"`
	MeanDeliveryTime float64 `json:"meanDeliveryTime"`
	CompletedOrders  int     `json:"completedOrders"`
	TotalOrders      int     `json:"totalOrders"`
}

// Snapshot is one simulated minute of world state. A new snapshot replaces
// the previous one entirely.
type Snapshot struct {
	Minute       string        `json:"minuto"`
	Vehicles     []Vehicle     `json:"vehiculos"`
	Orders       []Order       `json:"pedidos"`
	Warehouses   []Warehouse   `json:"almacenes"`
	Blockages    []Blockage    `json:"bloqueos"`
	Incidents    []Incident    `json:"incidencias,omitempty"`
	Maintenances []Maintenance `json:"mantenimientos,omitempty"`
	Indicators   *Indicators   `json:"indicadores,omitempty"`
}

// Validate checks the structural invariants enforced at ingestion.
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.Minute) == "" {
		return fmt.Errorf("%w: missing minute", ErrInvalidSnapshot)
	}
	for i := range s.Vehicles {
		v := &s.Vehicles[i]
		if !v.Position().Finite() {
			return fmt.Errorf("%w: vehicle %s has non-finite position", ErrInvalidSnapshot, v.Label())
		}
	}
	return nil
}

// OpenOrders returns the orders that still need a map marker.
func (s *Snapshot) OpenOrders() []*Order {
	var out []*Order
	for i := range s.Orders {
		if s.Orders[i].Open() {
			out = append(out, &s.Orders[i])
		}
	}
	return out
}

// MainWarehouse returns the main plant, or nil when the snapshot has none.
func (s *Snapshot) MainWarehouse() *Warehouse {
	for i := range s.Warehouses {
		if s.Warehouses[i].IsMain {
			return &s.Warehouses[i]
		}
	}
	return nil
}

// Summary is the end-of-run aggregate sent with SIMULATION_SUMMARY.
type Summary struct {
	StartedAt       string         `json:"fechaInicio"`
	FinishedAt      string         `json:"fechaFin"`
	Duration        string         `json:"duracion"`
	DeliveredOrders int            `json:"pedidosEntregados"`
	FuelConsumed    float64        `json:"consumoPetroleo"`
	PlanningTime    string         `json:"tiempoPlanificacion"`
	Statistics      map[string]any `json:"estadisticas,omitempty"`
}
