// Package pb contains the wire schema of the kv protocol: the command
// request/response messages exchanged on every logical stream, and the
// Value/Kvpair data model they carry.
//
// The types mirror abi.proto and stay wire-compatible with it. The
// encoding is implemented on top of google.golang.org/protobuf's
// encoding/protowire rather than generated code; see marshal.go.
package pb

// Value is the tagged union of the data model. A Value with a nil
// Value field is the null variant, which doubles as "no previous value"
// in command responses.
type Value struct {
	// Exactly one concrete type, or nil for null:
	// *Value_String, *Value_Binary, *Value_Integer, *Value_Bool, *Value_Float.
	Value isValue_Value
}

type isValue_Value interface{ isValue_Value() }

type Value_String struct{ String_ string }

type Value_Binary struct{ Binary []byte }

type Value_Integer struct{ Integer int64 }

type Value_Bool struct{ Bool bool }

type Value_Float struct{ Float float64 }

func (*Value_String) isValue_Value()  {}
func (*Value_Binary) isValue_Value()  {}
func (*Value_Integer) isValue_Value() {}
func (*Value_Bool) isValue_Value()    {}
func (*Value_Float) isValue_Value()   {}

// Kvpair is a key/value pair within one table.
type Kvpair struct {
	Key   string
	Value *Value
}

// CommandRequest carries exactly one request variant. A request with a
// nil RequestData is invalid and rejected by the dispatcher.
type CommandRequest struct {
	// One of *CommandRequest_Hget, *CommandRequest_Hgetall,
	// *CommandRequest_Hmget, *CommandRequest_Hset, *CommandRequest_Hmset,
	// *CommandRequest_Hdel, *CommandRequest_Hmdel, *CommandRequest_Hexist,
	// *CommandRequest_Hmexist, *CommandRequest_Subscribe,
	// *CommandRequest_Unsubscribe, *CommandRequest_Publish.
	RequestData isCommandRequest_RequestData
}

type isCommandRequest_RequestData interface{ isCommandRequest_RequestData() }

type CommandRequest_Hget struct{ Hget *Hget }
type CommandRequest_Hgetall struct{ Hgetall *Hgetall }
type CommandRequest_Hmget struct{ Hmget *Hmget }
type CommandRequest_Hset struct{ Hset *Hset }
type CommandRequest_Hmset struct{ Hmset *Hmset }
type CommandRequest_Hdel struct{ Hdel *Hdel }
type CommandRequest_Hmdel struct{ Hmdel *Hmdel }
type CommandRequest_Hexist struct{ Hexist *Hexist }
type CommandRequest_Hmexist struct{ Hmexist *Hmexist }
type CommandRequest_Subscribe struct{ Subscribe *Subscribe }
type CommandRequest_Unsubscribe struct{ Unsubscribe *Unsubscribe }
type CommandRequest_Publish struct{ Publish *Publish }

func (*CommandRequest_Hget) isCommandRequest_RequestData()        {}
func (*CommandRequest_Hgetall) isCommandRequest_RequestData()     {}
func (*CommandRequest_Hmget) isCommandRequest_RequestData()       {}
func (*CommandRequest_Hset) isCommandRequest_RequestData()        {}
func (*CommandRequest_Hmset) isCommandRequest_RequestData()       {}
func (*CommandRequest_Hdel) isCommandRequest_RequestData()        {}
func (*CommandRequest_Hmdel) isCommandRequest_RequestData()       {}
func (*CommandRequest_Hexist) isCommandRequest_RequestData()      {}
func (*CommandRequest_Hmexist) isCommandRequest_RequestData()     {}
func (*CommandRequest_Subscribe) isCommandRequest_RequestData()   {}
func (*CommandRequest_Unsubscribe) isCommandRequest_RequestData() {}
func (*CommandRequest_Publish) isCommandRequest_RequestData()     {}

// IsStreaming reports whether the request opens or touches a server-pushed
// event stream (Subscribe/Unsubscribe/Publish) rather than executing a
// one-shot storage command.
func (r *CommandRequest) IsStreaming() bool {
	switch r.RequestData.(type) {
	case *CommandRequest_Subscribe, *CommandRequest_Unsubscribe, *CommandRequest_Publish:
		return true
	}
	return false
}

// Name returns the variant name, for logging and metrics.
func (r *CommandRequest) Name() string {
	switch r.RequestData.(type) {
	case *CommandRequest_Hget:
		return "hget"
	case *CommandRequest_Hgetall:
		return "hgetall"
	case *CommandRequest_Hmget:
		return "hmget"
	case *CommandRequest_Hset:
		return "hset"
	case *CommandRequest_Hmset:
		return "hmset"
	case *CommandRequest_Hdel:
		return "hdel"
	case *CommandRequest_Hmdel:
		return "hmdel"
	case *CommandRequest_Hexist:
		return "hexist"
	case *CommandRequest_Hmexist:
		return "hmexist"
	case *CommandRequest_Subscribe:
		return "subscribe"
	case *CommandRequest_Unsubscribe:
		return "unsubscribe"
	case *CommandRequest_Publish:
		return "publish"
	}
	return "none"
}

// CommandResponse is the reply to any command. Status 0 is reserved as the
// unsubscribe acknowledgment / end-of-stream sentinel.
type CommandResponse struct {
	Status  uint32
	Message string
	Values  []*Value
	Pairs   []*Kvpair
}

type Hget struct {
	Table string
	Key   string
}

type Hgetall struct {
	Table string
}

type Hmget struct {
	Table string
	Keys  []string
}

type Hset struct {
	Table string
	Pair  *Kvpair
}

type Hmset struct {
	Table string
	Pairs []*Kvpair
}

type Hdel struct {
	Table string
	Key   string
}

type Hmdel struct {
	Table string
	Keys  []string
}

type Hexist struct {
	Table string
	Key   string
}

type Hmexist struct {
	Table string
	Keys  []string
}

type Subscribe struct {
	Topic string
}

type Unsubscribe struct {
	Topic string
	ID    uint32
}

type Publish struct {
	Topic string
	Data  []*Value
}
