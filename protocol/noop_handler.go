package protocol

// NoOpHandler implements Handler with no-op methods.
// Embed this and override only the methods you need.
type NoOpHandler struct{}

func (NoOpHandler) HandleLoading(string)          {}
func (NoOpHandler) HandleStarted(string)          {}
func (NoOpHandler) HandleError(string)            {}
func (NoOpHandler) HandleStopped(string)          {}
func (NoOpHandler) HandleUpdate(*Snapshot)        {}
func (NoOpHandler) HandleStateFlag(bool)          {}
func (NoOpHandler) HandleStateSnapshot(*Snapshot) {}
func (NoOpHandler) HandleSummary(*Summary)        {}

// Compile-time check that NoOpHandler implements Handler.
var _ Handler = NoOpHandler{}
