package shell

// EnvLookup resolves an environment variable by name, returning "" for an
// unset variable (substitution never fails).
type EnvLookup func(name string) string

// PartialCommand is a fully-walked command awaiting dispatch: the
// executable name (nil if the part list was empty) and its parameters.
type PartialCommand struct {
	Exec   []byte
	Params [][]byte
}

// StepOutcome is the result of one Evaluator.Step call. When Ready is
// false, Command must be run to completion by the caller and its
// captured stdout fed back into the next Step call; when Ready is true,
// Command is the final command to dispatch as the foreground process.
type StepOutcome struct {
	Ready   bool
	Command PartialCommand
}

// Evaluator walks a parsed command's parts left to right, substituting
// variables and nested command output, without ever recursing into a
// goroutine: a nested substitution is itself an Evaluator, held in
// expanding, that the outer driver steps in lockstep with the inner one.
type Evaluator struct {
	parts     []Part
	pos       int
	expanding *Evaluator
	stdioOut  [2]RedirectTarget

	exec     []byte
	haveExec bool
	params   [][]byte
}

// NewEvaluator begins walking parts. stdout and stderr both default to
// their own stdio stream until a Redirection part overrides them.
func NewEvaluator(parts []Part) *Evaluator {
	return &Evaluator{
		parts: parts,
		stdioOut: [2]RedirectTarget{
			{Stdio: true, StdioFD: 0},
			{Stdio: true, StdioFD: 1},
		},
	}
}

// Step advances the evaluator. previousOut/havePrevious carry the
// captured stdout of the command the previous Step call asked the
// caller to run, if any.
func (e *Evaluator) Step(env EnvLookup, previousOut []byte, havePrevious bool) StepOutcome {
	for {
		var out []byte
		var haveOut bool

		switch {
		case e.expanding != nil:
			inner := e.expanding.Step(env, previousOut, havePrevious)
			havePrevious = false
			if inner.Ready {
				// The nested evaluator is done walking its own parts, but
				// its output hasn't been captured yet — that's our job,
				// not its. Rewrite its Ready into an Expand at this level
				// and stop tracking it; the next Step call will receive
				// its captured output as our own previousOut.
				e.expanding = nil
				return StepOutcome{Ready: false, Command: inner.Command}
			}
			return StepOutcome{Ready: false, Command: inner.Command}

		case havePrevious:
			out = previousOut
			haveOut = true
			havePrevious = false

		case e.pos < len(e.parts):
			part := e.parts[e.pos]
			e.pos++

			switch part.Kind {
			case PartBreak:
				if len(e.params) == 0 || len(e.params[len(e.params)-1]) != 0 {
					e.params = append(e.params, []byte{})
				}
				continue
			case PartString:
				out, haveOut = part.Str, true
			case PartCommand:
				e.expanding = NewEvaluator(part.Command)
				continue
			case PartVariable:
				out, haveOut = []byte(env(string(part.Var))), true
			case PartRedirection:
				if int(part.RedirFrom) < len(e.stdioOut) {
					e.stdioOut[part.RedirFrom] = part.RedirTo
				}
				continue
			}

		default:
			return StepOutcome{Ready: true, Command: PartialCommand{Exec: e.exec, Params: e.params}}
		}

		if !haveOut {
			continue
		}

		if !e.haveExec {
			e.exec = out
			e.haveExec = true
		} else if n := len(e.params); n > 0 {
			e.params[n-1] = append(e.params[n-1], out...)
		} else {
			e.params = append(e.params, out)
		}
	}
}

// Run drives an Evaluator to completion, using dispatch to run each
// nested substitution and capture its stdout.
func Run(parts []Part, env EnvLookup, dispatch func(exec []byte, params [][]byte) []byte) PartialCommand {
	ev := NewEvaluator(parts)
	var prevOut []byte
	havePrev := false
	for {
		outcome := ev.Step(env, prevOut, havePrev)
		if outcome.Ready {
			return outcome.Command
		}
		prevOut = dispatch(outcome.Command.Exec, outcome.Command.Params)
		havePrev = true
	}
}
