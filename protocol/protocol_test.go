package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

const updateJSON = `{"type":"SIMULATION_UPDATE","data":{
	"minuto":"01/06/2024 08:01",
	"vehiculos":[
		{"idVehiculo":1,"placa":"TA01","tipo":"TA","posicionX":10,"posicionY":5,"estado":"ONTHEWAY",
		 "rutaActual":[{"posX":11,"posY":5},{"posX":12,"posY":5}]},
		{"idVehiculo":2,"placa":"TD02","tipo":"TD","posicionX":3,"posicionY":4,"estado":"STUCK"}
	],
	"pedidos":[],
	"almacenes":[{"idAlmacen":1,"posicion":{"posX":12,"posY":8},"isMain":true}],
	"bloqueos":[]
}}`

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(TypeSimulationStarted, "running")
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Type != TypeSimulationStarted {
		t.Errorf("type = %q, want %q", decoded.Type, TypeSimulationStarted)
	}
	var s string
	if err := decoded.DecodePayload(&s); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if s != "running" {
		t.Errorf("payload = %q, want running", s)
	}
}

func TestIngestorDispatch(t *testing.T) {
	handler := &testHandler{}
	var logs []string
	ing := NewIngestor(handler, captureLog(&logs))

	if err := ing.HandleRaw([]byte(updateJSON)); err != nil {
		t.Fatalf("HandleRaw: %v", err)
	}
	if handler.update == nil {
		t.Fatal("expected HandleUpdate to be called")
	}
	if got := len(handler.update.Vehicles); got != 2 {
		t.Errorf("vehicles = %d, want 2", got)
	}
	v := handler.update.Vehicles[0]
	if v.Plate != "TA01" || len(v.Route) != 2 || v.Route[0].X != 11 {
		t.Errorf("vehicle decoded as %+v", v)
	}
	if w := handler.update.MainWarehouse(); w == nil || w.Position == nil || w.Position.X != 12 {
		t.Errorf("main warehouse = %+v", w)
	}
	if len(logs) != 0 {
		t.Errorf("unexpected logs: %v", logs)
	}
}

func TestIngestorControlMessages(t *testing.T) {
	handler := &testHandler{}
	ing := NewIngestor(handler, func(string, ...any) {})

	for _, msg := range []string{
		`{"type":"SIMULATION_LOADING","data":"loading"}`,
		`{"type":"SIMULATION_STARTED","data":"started"}`,
		`{"type":"SIMULATION_ERROR","data":"planner crashed"}`,
		`{"type":"SIMULATION_STOPPED","data":"stopped"}`,
	} {
		if err := ing.HandleRaw([]byte(msg)); err != nil {
			t.Fatalf("HandleRaw(%s): %v", msg, err)
		}
	}
	want := []string{"loading:loading", "started:started", "error:planner crashed", "stopped:stopped"}
	if strings.Join(handler.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", handler.calls, want)
	}
}

func TestIngestorStateVariants(t *testing.T) {
	handler := &testHandler{}
	ing := NewIngestor(handler, func(string, ...any) {})

	if err := ing.HandleRaw([]byte(`{"type":"SIMULATION_STATE","data":true}`)); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if handler.flag == nil || !*handler.flag {
		t.Error("expected HandleStateFlag(true)")
	}

	state := strings.Replace(updateJSON, TypeSimulationUpdate, TypeSimulationState, 1)
	if err := ing.HandleRaw([]byte(state)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if handler.stateSnap == nil || handler.stateSnap.Minute != "01/06/2024 08:01" {
		t.Errorf("state snapshot = %+v", handler.stateSnap)
	}
}

func TestIngestorSummary(t *testing.T) {
	handler := &testHandler{}
	ing := NewIngestor(handler, func(string, ...any) {})

	msg := `{"type":"SIMULATION_SUMMARY","data":{"fechaInicio":"2024-06-01T08:00:00","fechaFin":"2024-06-08T08:00:00","duracion":"7d 00:00:00","pedidosEntregados":120,"consumoPetroleo":845.5}}`
	if err := ing.HandleRaw([]byte(msg)); err != nil {
		t.Fatalf("HandleRaw: %v", err)
	}
	if handler.summary == nil || handler.summary.DeliveredOrders != 120 || handler.summary.FuelConsumed != 845.5 {
		t.Errorf("summary = %+v", handler.summary)
	}
}

func TestIngestorMalformedLogsOnce(t *testing.T) {
	cases := map[string]string{
		"not json":        `this is not json`,
		"missing type":    `{"data":"x"}`,
		"unknown type":    `{"type":"SOMETHING_ELSE","data":1}`,
		"wrong payload":   `{"type":"SIMULATION_UPDATE","data":"oops"}`,
		"no minute":       `{"type":"SIMULATION_UPDATE","data":{"vehiculos":[]}}`,
		"null snapshot":   `{"type":"SIMULATION_UPDATE","data":null}`,
		"summary no data": `{"type":"SIMULATION_SUMMARY"}`,
		"null state":      `{"type":"SIMULATION_STATE","data":null}`,
		"state no data":   `{"type":"SIMULATION_STATE"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			handler := &testHandler{}
			var logs []string
			ing := NewIngestor(handler, captureLog(&logs))

			if err := ing.HandleRaw([]byte(raw)); err == nil {
				t.Error("expected error")
			}
			if len(logs) != 1 {
				t.Errorf("logs = %d, want exactly 1: %v", len(logs), logs)
			}
			if handler.update != nil || handler.summary != nil || handler.flag != nil || handler.stateSnap != nil || len(handler.calls) != 0 {
				t.Error("handler should not be called for a discarded message")
			}
		})
	}
}

func TestIngestorInvalidSnapshotSentinel(t *testing.T) {
	ing := NewIngestor(&testHandler{}, func(string, ...any) {})
	err := ing.HandleRaw([]byte(`{"type":"SIMULATION_UPDATE","data":{"minuto":""}}`))
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("err = %v, want ErrInvalidSnapshot", err)
	}
	err = ing.HandleRaw([]byte(`{"type":"SOMETHING_ELSE","data":1}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestIngestorIgnoresStateUpdated(t *testing.T) {
	var logs []string
	ing := NewIngestor(&testHandler{}, captureLog(&logs))
	if err := ing.HandleRaw([]byte(`{"type":"STATE_UPDATED","data":{"any":"thing"}}`)); err != nil {
		t.Errorf("HandleRaw: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("STATE_UPDATED should not log, got %v", logs)
	}
}

func TestOrderOpen(t *testing.T) {
	cases := []struct {
		status string
		glp    float64
		want   bool
	}{
		{OrderScheduled, 5, true},
		{OrderOnTheWay, 1, true},
		{OrderCompleted, 5, false},
		{"completado", 5, false},
		{OrderScheduled, 0, false},
		{OrderScheduled, -2, false},
	}
	for _, c := range cases {
		o := Order{Status: c.status, GLP: c.glp}
		if got := o.Open(); got != c.want {
			t.Errorf("Open(%q, %v) = %v, want %v", c.status, c.glp, got, c.want)
		}
	}
}

func TestWarehouseEmpty(t *testing.T) {
	zero, some := 0.0, 40.0
	if !(&Warehouse{CurrentGLP: &zero}).Empty() {
		t.Error("zero GLP should be empty")
	}
	if (&Warehouse{CurrentGLP: &some}).Empty() {
		t.Error("stocked warehouse should not be empty")
	}
	if (&Warehouse{IsMain: true, CurrentGLP: &zero}).Empty() {
		t.Error("main warehouse is never empty")
	}

	capacity := 160.0
	w := Warehouse{CurrentGLP: &some, MaxGLP: &capacity}
	if r, ok := w.FillRatio(); !ok || r != 0.25 {
		t.Errorf("FillRatio = %v,%v want 0.25,true", r, ok)
	}
	if _, ok := (&Warehouse{IsMain: true, MaxGLP: &capacity}).FillRatio(); ok {
		t.Error("main warehouse has no fill ratio")
	}
}

func TestVehicleStatusLabel(t *testing.T) {
	if VehicleStuck.Label() != "Immobilized" {
		t.Errorf("STUCK label = %q", VehicleStuck.Label())
	}
	if VehicleStatus("whatever").Label() != "En route" {
		t.Error("unknown status should read as en route")
	}
	if !VehicleStatus("MOVIENDOSE").Moving() || VehicleIdle.Moving() {
		t.Error("Moving classification wrong")
	}
}

func TestCommandsWireFormat(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	data, err := json.Marshal(InitCommand{InitialTime: TimePartsOf(start)})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"initialTime":{"year":2024,"month":6,"day":1,"hour":8,"minute":0}}`
	if string(data) != want {
		t.Errorf("init = %s, want %s", data, want)
	}

	data, _ = json.Marshal(StopCommand{})
	if string(data) != `{}` {
		t.Errorf("stop = %s, want {}", data)
	}

	data, _ = json.Marshal(FailureCommand{VehiclePlaque: "TA01", Type: FailureType2, ShiftOccurredOn: ShiftT3})
	want = `{"vehiclePlaque":"TA01","type":"Ti2","shiftOccurredOn":"T3"}`
	if string(data) != want {
		t.Errorf("failure = %s, want %s", data, want)
	}
}

func TestFailureValidate(t *testing.T) {
	ok := FailureCommand{VehiclePlaque: "TA01", Type: FailureType1, ShiftOccurredOn: ShiftT1}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid command rejected: %v", err)
	}
	bad := []FailureCommand{
		{Type: FailureType1, ShiftOccurredOn: ShiftT1},
		{VehiclePlaque: "TA01", Type: "Ti9", ShiftOccurredOn: ShiftT1},
		{VehiclePlaque: "TA01", Type: FailureType1, ShiftOccurredOn: "T4"},
	}
	for _, c := range bad {
		if err := c.Validate(); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("%+v: err = %v, want ErrInvalidCommand", c, err)
		}
	}
}

func TestShiftFor(t *testing.T) {
	for hour, want := range map[int]string{0: ShiftT1, 7: ShiftT1, 8: ShiftT2, 15: ShiftT2, 16: ShiftT3, 23: ShiftT3} {
		if got := ShiftFor(hour); got != want {
			t.Errorf("ShiftFor(%d) = %s, want %s", hour, got, want)
		}
	}
}

func TestParseMinute(t *testing.T) {
	want := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"01/06/2024 08:30",
		"2024-06-01T08:30",
		"2024-06-01T08:30:00",
		"2024-06-01 08:30",
		"2024-06-01T08:30:00Z",
	} {
		got, err := ParseMinute(s)
		if err != nil {
			t.Errorf("ParseMinute(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseMinute(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseMinute("yesterday"); err == nil {
		t.Error("expected error for unparsable minute")
	}
}

func captureLog(dst *[]string) LogFunc {
	return func(format string, args ...any) {
		*dst = append(*dst, fmt.Sprintf(format, args...))
	}
}

// testHandler records which methods were called.
type testHandler struct {
	NoOpHandler
	calls     []string
	update    *Snapshot
	stateSnap *Snapshot
	flag      *bool
	summary   *Summary
}

func (h *testHandler) HandleLoading(s string) { h.calls = append(h.calls, "loading:"+s) }
func (h *testHandler) HandleStarted(s string) { h.calls = append(h.calls, "started:"+s) }
func (h *testHandler) HandleError(s string)   { h.calls = append(h.calls, "error:"+s) }
func (h *testHandler) HandleStopped(s string) { h.calls = append(h.calls, "stopped:"+s) }
func (h *testHandler) HandleUpdate(s *Snapshot)        { h.update = s }
func (h *testHandler) HandleStateFlag(b bool)          { h.flag = &b }
func (h *testHandler) HandleStateSnapshot(s *Snapshot) { h.stateSnap = s }
func (h *testHandler) HandleSummary(s *Summary)        { h.summary = s }
