package pb

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/caelansar/kv/kverr"
)

// Value constructors.

func StringValue(s string) *Value { return &Value{Value: &Value_String{String_: s}} }

func BytesValue(b []byte) *Value { return &Value{Value: &Value_Binary{Binary: b}} }

func IntValue(i int64) *Value { return &Value{Value: &Value_Integer{Integer: i}} }

func BoolValue(b bool) *Value { return &Value{Value: &Value_Bool{Bool: b}} }

func FloatValue(f float64) *Value { return &Value{Value: &Value_Float{Float: f}} }

// NullValue returns the null variant, used to encode "no previous value".
func NullValue() *Value { return &Value{} }

// IsNull reports whether v is the null variant.
func (v *Value) IsNull() bool { return v == nil || v.Value == nil }

// String renders the value for error messages and logs.
func (v *Value) String() string {
	if v == nil || v.Value == nil {
		return "null"
	}
	switch k := v.Value.(type) {
	case *Value_String:
		return fmt.Sprintf("%q", k.String_)
	case *Value_Binary:
		return fmt.Sprintf("binary(%d bytes)", len(k.Binary))
	case *Value_Integer:
		return fmt.Sprintf("%d", k.Integer)
	case *Value_Bool:
		return fmt.Sprintf("%t", k.Bool)
	case *Value_Float:
		return fmt.Sprintf("%g", k.Float)
	}
	return "unknown"
}

// AsInt returns the integer variant or a ConvertError.
func (v *Value) AsInt() (int64, error) {
	if v != nil {
		if k, ok := v.Value.(*Value_Integer); ok {
			return k.Integer, nil
		}
	}
	return 0, &kverr.ConvertError{Value: v.String(), Target: "Integer"}
}

// AsString returns the string variant or a ConvertError.
func (v *Value) AsString() (string, error) {
	if v != nil {
		if k, ok := v.Value.(*Value_String); ok {
			return k.String_, nil
		}
	}
	return "", &kverr.ConvertError{Value: v.String(), Target: "String"}
}

// AsBytes returns the binary variant or a ConvertError.
func (v *Value) AsBytes() ([]byte, error) {
	if v != nil {
		if k, ok := v.Value.(*Value_Binary); ok {
			return k.Binary, nil
		}
	}
	return nil, &kverr.ConvertError{Value: v.String(), Target: "Binary"}
}

// EncodeValue returns the standalone protobuf encoding of v, the form the
// disk backend persists.
func EncodeValue(v *Value) ([]byte, error) {
	if v == nil {
		v = NullValue()
	}
	return Marshal(v)
}

// DecodeValue parses a standalone protobuf-encoded Value.
func DecodeValue(data []byte) (*Value, error) {
	v := new(Value)
	if err := Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Response constructors.

// NewValuesResponse returns a 200 response carrying values.
func NewValuesResponse(values ...*Value) *CommandResponse {
	return &CommandResponse{Status: http.StatusOK, Values: values}
}

// NewPairsResponse returns a 200 response carrying kv pairs.
func NewPairsResponse(pairs []*Kvpair) *CommandResponse {
	return &CommandResponse{Status: http.StatusOK, Pairs: pairs}
}

// OKResponse returns an empty 200 response.
func OKResponse() *CommandResponse {
	return &CommandResponse{Status: http.StatusOK}
}

// UnsubscribeAck returns the status-0 end-of-stream sentinel.
func UnsubscribeAck() *CommandResponse {
	return &CommandResponse{}
}

// NewErrorResponse encodes err into a response: NotFound maps to 404,
// InvalidCommand to 400, everything else to 500. The error's display
// message travels in Message.
func NewErrorResponse(err error) *CommandResponse {
	status := uint32(http.StatusInternalServerError)
	var (
		notFound *kverr.NotFoundError
		invalid  *kverr.InvalidCommandError
	)
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	}
	return &CommandResponse{Status: status, Message: err.Error()}
}

// SubscriptionID extracts the subscription id from the first message of a
// subscribed stream: status must be 200 and the first value an integer.
func (r *CommandResponse) SubscriptionID() (uint32, error) {
	if r.Status != http.StatusOK || len(r.Values) == 0 {
		return 0, &kverr.InternalError{Detail: "Invalid stream"}
	}
	id, err := r.Values[0].AsInt()
	if err != nil {
		return 0, &kverr.InternalError{Detail: "Invalid stream"}
	}
	return uint32(id), nil
}
