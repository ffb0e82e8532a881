package protocol

// Inbound message types published by the simulation backend on the snapshot topic.
const (
	TypeSimulationLoading = "SIMULATION_LOADING"
	TypeSimulationStarted = "SIMULATION_STARTED"
	TypeSimulationError   = "SIMULATION_ERROR"
	TypeSimulationStopped = "SIMULATION_STOPPED"
	TypeSimulationUpdate  = "SIMULATION_UPDATE"
	TypeSimulationState   = "SIMULATION_STATE"
	TypeSimulationSummary = "SIMULATION_SUMMARY"

	// TypeStateUpdated acknowledges a backend-side state change; it carries
	// nothing the dashboard renders.
	TypeStateUpdated = "STATE_UPDATED"
)

// Order states as reported by the planner.
const (
	OrderScheduled = "PROGRAMADO"
	OrderOnTheWay  = "EN CURSO"
	OrderCompleted = "COMPLETADO"
)

// Failure kinds accepted by the update-failures command.
const (
	FailureType1 = "Ti1"
	FailureType2 = "Ti2"
	FailureType3 = "Ti3"
)

// Shifts used when registering a failure.
const (
	ShiftT1 = "T1"
	ShiftT2 = "T2"
	ShiftT3 = "T3"
)
