package core

// ContractError is raised when a caller breaks an API contract that would
// otherwise corrupt the timeout list (double add, degenerate timer start,
// blocking from interrupt context).
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string {
	return "contract violation: " + e.Msg
}

// FatalHandler is invoked on a contract violation. It must not return;
// if it does the violation panics anyway.
type FatalHandler func(err error)

var fatalHandler FatalHandler = func(err error) {
	panic(err)
}

// SetFatalHandler installs the platform reaction to contract violations,
// e.g. a watchdog reset on hardware. Call once during init.
func SetFatalHandler(h FatalHandler) {
	if h == nil {
		h = func(err error) { panic(err) }
	}
	fatalHandler = h
}

func assert(cond bool, msg string) {
	if !cond {
		fatal(msg)
	}
}

func fatal(msg string) {
	err := &ContractError{Msg: msg}
	RecordTiming(EvtFatal, GetUptime(), 0, 0)
	debugFromAnyContext("[FATAL] " + msg)
	fatalHandler(err)
	panic(err)
}
