package transport

import "strings"

// Command names for the line protocol (spec.md §4.2). Every request is one
// line of the form "<COMMAND>[:ARG1[:ARG2...]]"; every response is one line
// of the form "OK[:payload]" or "ERR:<message>". An unrecognized command
// gets a benign "OK:Done" acknowledgement rather than an error, so a future
// peer speaking a newer protocol version is not mistaken for dead.
//
// Address arguments are themselves colon-bearing ("<id>/<host:port>"), so
// decoding never blindly splits a whole line on every ':': DecodeRequest and
// DecodeResponse only split off the command/status, leaving the remainder
// intact for the caller to parse according to that command's own arity
// (SplitArgs, when more than one field follows).
const (
	CmdYourSuccessor     = "YOUR_SUCCESSOR"
	CmdYourPredecessor   = "YOUR_PREDECESSOR"
	CmdFindSuccessor     = "FIND_SUCCESSOR"
	CmdFindPredecessor   = "FIND_PREDECESSOR"
	CmdChangeSuccessor   = "CHANGE_SUCCESSOR"
	CmdChangePredecessor = "CHANGE_PREDECESSOR"
	CmdUpdateIthFinger   = "UPDATE_ITH_FINGER"
	CmdTransferKeys      = "TRANSFER_KEYS"
	CmdNotify            = "NOTIFY"
	CmdAlive             = "ALIVE"
)

const (
	StatusOK  = "OK"
	StatusErr = "ERR"

	// AckDone is the payload of a plain acknowledgment response.
	AckDone = "Done"
)

// EncodeRequest joins a command and its arguments with ':'. Callers must
// ensure that at most the LAST argument carries embedded colons (addresses
// do); anything earlier must be colon-free (ids, indices).
func EncodeRequest(cmd string, args ...string) string {
	if len(args) == 0 {
		return cmd
	}
	return cmd + ":" + strings.Join(args, ":")
}

// DecodeRequest splits off the command name, leaving everything after the
// first ':' untouched as rest (empty if the command took no arguments).
func DecodeRequest(line string) (cmd string, rest string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i+1:]
}

// SplitArgs splits rest into exactly n fields, the last of which keeps any
// further embedded ':' characters intact (used for commands whose final
// argument is an address).
func SplitArgs(rest string, n int) []string {
	return strings.SplitN(rest, ":", n)
}

// EncodeOK formats a successful response. With no payload the line is bare
// "OK"; with one payload string (an address, an ack, or a pre-joined list)
// it is appended after a single ':'.
func EncodeOK(payload ...string) string {
	if len(payload) == 0 {
		return StatusOK
	}
	return StatusOK + ":" + payload[0]
}

// EncodeErr formats a failure response.
func EncodeErr(msg string) string {
	return StatusErr + ":" + msg
}

// DecodeResponse splits off the status, leaving the payload (if any)
// untouched in rest.
func DecodeResponse(line string) (status string, rest string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i+1:]
}
