package drone

import "strconv"

// AckToken is the reply sent by the drone when a command succeeded.
const AckToken = "ok"

// Command vocabulary of the text SDK. Arguments are appended after a single space.
const (
	CmdCommand          = "command"
	CmdTakeOff          = "takeoff"
	CmdLand             = "land"
	CmdStreamOn         = "streamon"
	CmdStreamOff        = "streamoff"
	CmdEmergency        = "emergency"
	CmdUp               = "up"
	CmdDown             = "down"
	CmdLeft             = "left"
	CmdRight            = "right"
	CmdForward          = "forward"
	CmdBack             = "back"
	CmdClockwise        = "cw"
	CmdCounterClockwise = "ccw"
	CmdSpeed            = "speed"

	QuerySpeed   = "speed?"
	QueryBattery = "battery?"
)

func withArg(verb string, n uint64) string {
	return verb + " " + strconv.FormatUint(n, 10)
}

// decodeASCII maps every non ASCII byte to '?'.
func decodeASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c > 0x7f {
			c = '?'
		}
		out[i] = c
	}
	return string(out)
}
