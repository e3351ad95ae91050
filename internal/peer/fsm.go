package peer

// Config holds the per-peer policy values Step consults. Everything
// else (timer scheduling, actual backoff delay) belongs to the runtime
// layer, not the pure function.
type Config struct {
	Role                Role
	MaxWatchdogFailures int
}

const resultCodeSuccess = 2001

// Step is the FSM's pure transition function: step(state, event) ->
// (state', actions[]). It never blocks, never performs I/O, and never
// mutates its inputs, so it can be exercised directly by table and
// property-based tests with arbitrary event sequences.
func Step(cfg Config, snap Snapshot, ev Event) (Snapshot, []Action) {
	switch snap.State {
	case Closed:
		return stepClosed(cfg, snap, ev)
	case WaitConnAck:
		return stepWaitConnAck(snap, ev)
	case WaitICEA:
		return stepWaitICEA(cfg, snap, ev)
	case Open:
		return stepOpen(cfg, snap, ev)
	case Closing:
		return stepClosing(snap, ev)
	default:
		return snap, nil
	}
}

func stepClosed(cfg Config, snap Snapshot, ev Event) (Snapshot, []Action) {
	switch ev.Kind {
	case Start:
		if cfg.Role == RoleClient {
			return Snapshot{State: WaitConnAck}, []Action{{Kind: ActionConnectToPeer}}
		}
		// Server role has nothing to do on Start; it waits for an
		// inbound connection to drive ConnectionUp.
		return snap, nil
	case ConnectionUp:
		if cfg.Role == RoleServer {
			return Snapshot{State: WaitICEA}, nil
		}
		return snap, nil
	case DisconnectRequest:
		return snap, nil
	default:
		return snap, nil
	}
}

func stepWaitConnAck(snap Snapshot, ev Event) (Snapshot, []Action) {
	switch ev.Kind {
	case ConnectionUp:
		return Snapshot{State: WaitICEA}, []Action{{Kind: ActionSendCER}}
	case ConnectionFailed:
		return Snapshot{State: Closed}, []Action{{Kind: ActionScheduleRetry}}
	case DisconnectRequest:
		return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
	default:
		return snap, nil
	}
}

func stepWaitICEA(cfg Config, snap Snapshot, ev Event) (Snapshot, []Action) {
	switch ev.Kind {
	case MessageReceived:
		switch ev.MsgKind {
		case MsgCEA:
			if ev.ResultCode == resultCodeSuccess {
				return Snapshot{State: Open, WatchdogFailures: 0}, []Action{
					{Kind: ActionNotifyFrontlineUp},
					{Kind: ActionResetWatchdogTimer},
				}
			}
			return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
		case MsgCER:
			if cfg.Role == RoleServer {
				return Snapshot{State: Open, WatchdogFailures: 0}, []Action{
					{Kind: ActionSendCEA, ResultCode: resultCodeSuccess},
					{Kind: ActionNotifyFrontlineUp},
					{Kind: ActionResetWatchdogTimer},
				}
			}
			return snap, []Action{{Kind: ActionLog, Detail: "unexpected CER while WaitICEA"}}
		default:
			// Any other message (e.g. DWR) arriving before CEA must not
			// prematurely mark the peer Open (§8 boundary behavior).
			return snap, []Action{{Kind: ActionLog, Detail: "message ignored before capabilities exchange completes"}}
		}
	case ConnectionFailed:
		return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
	case DisconnectRequest:
		return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
	default:
		return snap, nil
	}
}

func stepOpen(cfg Config, snap Snapshot, ev Event) (Snapshot, []Action) {
	switch ev.Kind {
	case MessageReceived:
		switch ev.MsgKind {
		case MsgDWR:
			return Snapshot{State: Open, WatchdogFailures: 0}, []Action{
				{Kind: ActionSendDWA, ResultCode: resultCodeSuccess},
				{Kind: ActionResetWatchdogTimer},
			}
		case MsgDWA:
			return Snapshot{State: Open, WatchdogFailures: 0}, []Action{{Kind: ActionResetWatchdogTimer}}
		case MsgDPR:
			return Snapshot{State: Closed}, []Action{
				{Kind: ActionSendDPA, ResultCode: resultCodeSuccess},
				{Kind: ActionNotifyFrontlineDown},
				{Kind: ActionDisconnectPeer},
			}
		default:
			return snap, nil
		}
	case WatchdogTimerExpiry:
		if snap.WatchdogFailures < cfg.MaxWatchdogFailures {
			return Snapshot{State: Open, WatchdogFailures: snap.WatchdogFailures + 1}, []Action{
				{Kind: ActionSendDWR},
				{Kind: ActionResetWatchdogTimer},
			}
		}
		return Snapshot{State: Closed, WatchdogFailures: 0}, []Action{
			{Kind: ActionNotifyFrontlineDown},
			{Kind: ActionDisconnectPeer},
		}
	case ConnectionFailed:
		return Snapshot{State: Closed, WatchdogFailures: 0}, []Action{
			{Kind: ActionNotifyFrontlineDown},
			{Kind: ActionDisconnectPeer},
		}
	case DisconnectRequest:
		return Snapshot{State: Closing, WatchdogFailures: snap.WatchdogFailures}, []Action{{Kind: ActionSendDPR}}
	default:
		return snap, nil
	}
}

func stepClosing(snap Snapshot, ev Event) (Snapshot, []Action) {
	switch ev.Kind {
	case MessageReceived:
		if ev.MsgKind == MsgDPA {
			return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
		}
		return snap, nil
	case WatchdogTimerExpiry:
		// Used here as the DPA wait timeout: give up and close anyway.
		return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
	case ConnectionFailed:
		return Snapshot{State: Closed}, []Action{{Kind: ActionDisconnectPeer}}
	default:
		return snap, nil
	}
}
