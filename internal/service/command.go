package service

import (
	"strconv"
	"strings"
)

// CommandKind identifies an inbound SMS command.
type CommandKind string

const (
	CommandRegisterDriver CommandKind = "REGISTER_DRIVER"
	CommandRegisterClient CommandKind = "REGISTER_CLIENT"
	CommandRideRequest    CommandKind = "RIDE_REQUEST"
	CommandTakeRide       CommandKind = "TAKE_RIDE"
	CommandStop           CommandKind = "STOP"
	CommandRate           CommandKind = "RATE"
	CommandUnrecognized   CommandKind = "UNRECOGNIZED"
)

// Rating bounds advertised in the command help.
const (
	MinScore = 1
	MaxScore = 5
)

// Command is a parsed inbound message.
type Command struct {
	Kind       CommandKind
	RideNumber int64 // TAKE_RIDE only
	Score      int   // RATE only
}

const (
	takePrefix = "take:"
	ratePrefix = "rate:"
)

// ParseCommand classifies an inbound text. Matching ignores case and
// surrounding whitespace. The value of take: and rate: ends at the next
// colon, so "take:1:x" takes ride 1. A value that is not an integer is
// Unrecognized.
func ParseCommand(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))

	switch normalized {
	case "register-driver":
		return Command{Kind: CommandRegisterDriver}
	case "register-client":
		return Command{Kind: CommandRegisterClient}
	case "ride-request":
		return Command{Kind: CommandRideRequest}
	case "stop":
		return Command{Kind: CommandStop}
	}

	if value, ok := strings.CutPrefix(normalized, takePrefix); ok {
		n, err := strconv.ParseInt(argument(value), 10, 64)
		if err != nil {
			return Command{Kind: CommandUnrecognized}
		}
		return Command{Kind: CommandTakeRide, RideNumber: n}
	}

	if value, ok := strings.CutPrefix(normalized, ratePrefix); ok {
		score, err := strconv.Atoi(argument(value))
		if err != nil {
			return Command{Kind: CommandUnrecognized}
		}
		return Command{Kind: CommandRate, Score: score}
	}

	return Command{Kind: CommandUnrecognized}
}

// argument returns the text up to the next colon, trimmed.
func argument(value string) string {
	value, _, _ = strings.Cut(value, ":")
	return strings.TrimSpace(value)
}
