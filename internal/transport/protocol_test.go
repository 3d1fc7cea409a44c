package transport

import "testing"

func TestEncodeDecodeRequestNoArgs(t *testing.T) {
	cmd, rest := DecodeRequest(EncodeRequest(CmdAlive))
	if cmd != CmdAlive || rest != "" {
		t.Fatalf("got (%q,%q), want (%q,\"\")", cmd, rest, CmdAlive)
	}
}

func TestEncodeDecodeRequestSingleIDArg(t *testing.T) {
	cmd, rest := DecodeRequest(EncodeRequest(CmdFindSuccessor, "17"))
	if cmd != CmdFindSuccessor || rest != "17" {
		t.Fatalf("got (%q,%q), want (%q,%q)", cmd, rest, CmdFindSuccessor, "17")
	}
}

func TestEncodeDecodeRequestAddrArgKeepsEmbeddedColon(t *testing.T) {
	cmd, rest := DecodeRequest(EncodeRequest(CmdNotify, "3/127.0.0.1:6000"))
	if cmd != CmdNotify || rest != "3/127.0.0.1:6000" {
		t.Fatalf("got (%q,%q), want (%q,%q)", cmd, rest, CmdNotify, "3/127.0.0.1:6000")
	}
}

func TestSplitArgsKeepsLastFieldIntact(t *testing.T) {
	_, rest := DecodeRequest(EncodeRequest(CmdUpdateIthFinger, "2", "3/127.0.0.1:6000"))
	args := SplitArgs(rest, 2)
	if len(args) != 2 || args[0] != "2" || args[1] != "3/127.0.0.1:6000" {
		t.Fatalf("SplitArgs(%q,2) = %v", rest, args)
	}
}

func TestEncodeDecodeResponseAddrPayload(t *testing.T) {
	status, rest := DecodeResponse(EncodeOK("3/127.0.0.1:6000"))
	if status != StatusOK || rest != "3/127.0.0.1:6000" {
		t.Fatalf("got (%q,%q), want (%q,%q)", status, rest, StatusOK, "3/127.0.0.1:6000")
	}
}

func TestEncodeDecodeResponseEmptyPayload(t *testing.T) {
	status, rest := DecodeResponse(EncodeOK(""))
	if status != StatusOK || rest != "" {
		t.Fatalf("got (%q,%q), want (%q,\"\")", status, rest, StatusOK)
	}
}

func TestEncodeDecodeResponseErr(t *testing.T) {
	status, rest := DecodeResponse(EncodeErr("not found"))
	if status != StatusErr || rest != "not found" {
		t.Fatalf("got (%q,%q), want (%q,%q)", status, rest, StatusErr, "not found")
	}
}
