package pb

import (
	"math"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every schema type in this package. The
// encoding is the protobuf wire format described by abi.proto.
type Message interface {
	appendMarshal(b []byte) ([]byte, error)
	unmarshal(data []byte) error
}

// Marshal returns the protobuf encoding of m.
func Marshal(m Message) ([]byte, error) {
	return m.appendMarshal(nil)
}

// Unmarshal parses data into m. m should be a freshly allocated message;
// repeated fields are appended to, scalar fields are overwritten.
func Unmarshal(data []byte, m Message) error {
	return m.unmarshal(data)
}

var errWireType = errors.New("pb: mismatched wire type")

func parseErr(n int) error {
	return errors.Wrap(protowire.ParseError(n), "pb")
}

func appendSubmessage(b []byte, num protowire.Number, m Message) ([]byte, error) {
	sub, err := m.appendMarshal(nil)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub), nil
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func consumeStringField(data []byte, typ protowire.Type) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, errWireType
	}
	s, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", 0, parseErr(n)
	}
	return s, n, nil
}

func consumeBytesField(data []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, parseErr(n)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

func consumeVarintField(data []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, parseErr(n)
	}
	return v, n, nil
}

func skipField(data []byte, num protowire.Number, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return 0, parseErr(n)
	}
	return n, nil
}

func (v *Value) appendMarshal(b []byte) ([]byte, error) {
	switch k := v.Value.(type) {
	case nil:
	case *Value_String:
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, k.String_)
	case *Value_Binary:
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, k.Binary)
	case *Value_Integer:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(k.Integer))
	case *Value_Bool:
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		if k.Bool {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
	case *Value_Float:
		b = protowire.AppendTag(b, 5, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(k.Float))
	default:
		return nil, errors.Newf("pb: unknown value variant %T", k)
	}
	return b, nil
}

func (v *Value) unmarshal(data []byte) error {
	v.Value = nil
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			v.Value = &Value_String{String_: s}
			data = data[n:]
		case 2:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			v.Value = &Value_Binary{Binary: raw}
			data = data[n:]
		case 3:
			u, n, err := consumeVarintField(data, typ)
			if err != nil {
				return err
			}
			v.Value = &Value_Integer{Integer: int64(u)}
			data = data[n:]
		case 4:
			u, n, err := consumeVarintField(data, typ)
			if err != nil {
				return err
			}
			v.Value = &Value_Bool{Bool: u != 0}
			data = data[n:]
		case 5:
			if typ != protowire.Fixed64Type {
				return errWireType
			}
			u, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return parseErr(n)
			}
			v.Value = &Value_Float{Float: math.Float64frombits(u)}
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func (p *Kvpair) appendMarshal(b []byte) ([]byte, error) {
	b = appendStringField(b, 1, p.Key)
	if p.Value != nil {
		return appendSubmessage(b, 2, p.Value)
	}
	return b, nil
}

func (p *Kvpair) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			p.Key = s
			data = data[n:]
		case 2:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			p.Value = new(Value)
			if err := p.Value.unmarshal(raw); err != nil {
				return err
			}
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

// tableKey covers the variants that are just {table, key} pairs on the wire.
type tableKey struct {
	table *string
	key   *string
}

func appendTableKey(b []byte, table, key string) []byte {
	b = appendStringField(b, 1, table)
	return appendStringField(b, 2, key)
}

func (tk tableKey) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			*tk.table = s
			data = data[n:]
		case 2:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			*tk.key = s
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

// tableKeys covers the variants that are {table, repeated keys} on the wire.
type tableKeys struct {
	table *string
	keys  *[]string
}

func appendTableKeys(b []byte, table string, keys []string) []byte {
	b = appendStringField(b, 1, table)
	for _, k := range keys {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	return b
}

func (tk tableKeys) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			*tk.table = s
			data = data[n:]
		case 2:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			*tk.keys = append(*tk.keys, s)
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func (m *Hget) appendMarshal(b []byte) ([]byte, error) {
	return appendTableKey(b, m.Table, m.Key), nil
}

func (m *Hget) unmarshal(data []byte) error {
	return tableKey{&m.Table, &m.Key}.unmarshal(data)
}

func (m *Hdel) appendMarshal(b []byte) ([]byte, error) {
	return appendTableKey(b, m.Table, m.Key), nil
}

func (m *Hdel) unmarshal(data []byte) error {
	return tableKey{&m.Table, &m.Key}.unmarshal(data)
}

func (m *Hexist) appendMarshal(b []byte) ([]byte, error) {
	return appendTableKey(b, m.Table, m.Key), nil
}

func (m *Hexist) unmarshal(data []byte) error {
	return tableKey{&m.Table, &m.Key}.unmarshal(data)
}

func (m *Hgetall) appendMarshal(b []byte) ([]byte, error) {
	return appendStringField(b, 1, m.Table), nil
}

func (m *Hgetall) unmarshal(data []byte) error {
	var discard string
	return tableKey{&m.Table, &discard}.unmarshal(data)
}

func (m *Hmget) appendMarshal(b []byte) ([]byte, error) {
	return appendTableKeys(b, m.Table, m.Keys), nil
}

func (m *Hmget) unmarshal(data []byte) error {
	return tableKeys{&m.Table, &m.Keys}.unmarshal(data)
}

func (m *Hmdel) appendMarshal(b []byte) ([]byte, error) {
	return appendTableKeys(b, m.Table, m.Keys), nil
}

func (m *Hmdel) unmarshal(data []byte) error {
	return tableKeys{&m.Table, &m.Keys}.unmarshal(data)
}

func (m *Hmexist) appendMarshal(b []byte) ([]byte, error) {
	return appendTableKeys(b, m.Table, m.Keys), nil
}

func (m *Hmexist) unmarshal(data []byte) error {
	return tableKeys{&m.Table, &m.Keys}.unmarshal(data)
}

func (m *Hset) appendMarshal(b []byte) ([]byte, error) {
	b = appendStringField(b, 1, m.Table)
	if m.Pair != nil {
		return appendSubmessage(b, 2, m.Pair)
	}
	return b, nil
}

func (m *Hset) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			m.Table = s
			data = data[n:]
		case 2:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			m.Pair = new(Kvpair)
			if err := m.Pair.unmarshal(raw); err != nil {
				return err
			}
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func (m *Hmset) appendMarshal(b []byte) ([]byte, error) {
	b = appendStringField(b, 1, m.Table)
	var err error
	for _, p := range m.Pairs {
		if b, err = appendSubmessage(b, 2, p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *Hmset) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			m.Table = s
			data = data[n:]
		case 2:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			p := new(Kvpair)
			if err := p.unmarshal(raw); err != nil {
				return err
			}
			m.Pairs = append(m.Pairs, p)
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func (m *Subscribe) appendMarshal(b []byte) ([]byte, error) {
	return appendStringField(b, 1, m.Topic), nil
}

func (m *Subscribe) unmarshal(data []byte) error {
	var discard string
	return tableKey{&m.Topic, &discard}.unmarshal(data)
}

func (m *Unsubscribe) appendMarshal(b []byte) ([]byte, error) {
	b = appendStringField(b, 1, m.Topic)
	if m.ID != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ID))
	}
	return b, nil
}

func (m *Unsubscribe) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			m.Topic = s
			data = data[n:]
		case 2:
			u, n, err := consumeVarintField(data, typ)
			if err != nil {
				return err
			}
			m.ID = uint32(u)
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func (m *Publish) appendMarshal(b []byte) ([]byte, error) {
	b = appendStringField(b, 1, m.Topic)
	var err error
	for _, v := range m.Data {
		if b, err = appendSubmessage(b, 2, v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *Publish) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			m.Topic = s
			data = data[n:]
		case 2:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			v := new(Value)
			if err := v.unmarshal(raw); err != nil {
				return err
			}
			m.Data = append(m.Data, v)
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func (r *CommandRequest) appendMarshal(b []byte) ([]byte, error) {
	switch d := r.RequestData.(type) {
	case nil:
		return b, nil
	case *CommandRequest_Hget:
		return appendSubmessage(b, 1, d.Hget)
	case *CommandRequest_Hgetall:
		return appendSubmessage(b, 2, d.Hgetall)
	case *CommandRequest_Hmget:
		return appendSubmessage(b, 3, d.Hmget)
	case *CommandRequest_Hset:
		return appendSubmessage(b, 4, d.Hset)
	case *CommandRequest_Hmset:
		return appendSubmessage(b, 5, d.Hmset)
	case *CommandRequest_Hdel:
		return appendSubmessage(b, 6, d.Hdel)
	case *CommandRequest_Hmdel:
		return appendSubmessage(b, 7, d.Hmdel)
	case *CommandRequest_Hexist:
		return appendSubmessage(b, 8, d.Hexist)
	case *CommandRequest_Hmexist:
		return appendSubmessage(b, 9, d.Hmexist)
	case *CommandRequest_Subscribe:
		return appendSubmessage(b, 10, d.Subscribe)
	case *CommandRequest_Unsubscribe:
		return appendSubmessage(b, 11, d.Unsubscribe)
	case *CommandRequest_Publish:
		return appendSubmessage(b, 12, d.Publish)
	default:
		return nil, errors.Newf("pb: unknown request variant %T", d)
	}
}

func (r *CommandRequest) unmarshal(data []byte) error {
	r.RequestData = nil
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		if num >= 1 && num <= 12 {
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			if err := r.setVariant(num, raw); err != nil {
				return err
			}
			data = data[n:]
			continue
		}
		n, err := skipField(data, num, typ)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (r *CommandRequest) setVariant(num protowire.Number, raw []byte) error {
	var (
		m    Message
		wrap isCommandRequest_RequestData
	)
	switch num {
	case 1:
		v := new(Hget)
		m, wrap = v, &CommandRequest_Hget{Hget: v}
	case 2:
		v := new(Hgetall)
		m, wrap = v, &CommandRequest_Hgetall{Hgetall: v}
	case 3:
		v := new(Hmget)
		m, wrap = v, &CommandRequest_Hmget{Hmget: v}
	case 4:
		v := new(Hset)
		m, wrap = v, &CommandRequest_Hset{Hset: v}
	case 5:
		v := new(Hmset)
		m, wrap = v, &CommandRequest_Hmset{Hmset: v}
	case 6:
		v := new(Hdel)
		m, wrap = v, &CommandRequest_Hdel{Hdel: v}
	case 7:
		v := new(Hmdel)
		m, wrap = v, &CommandRequest_Hmdel{Hmdel: v}
	case 8:
		v := new(Hexist)
		m, wrap = v, &CommandRequest_Hexist{Hexist: v}
	case 9:
		v := new(Hmexist)
		m, wrap = v, &CommandRequest_Hmexist{Hmexist: v}
	case 10:
		v := new(Subscribe)
		m, wrap = v, &CommandRequest_Subscribe{Subscribe: v}
	case 11:
		v := new(Unsubscribe)
		m, wrap = v, &CommandRequest_Unsubscribe{Unsubscribe: v}
	case 12:
		v := new(Publish)
		m, wrap = v, &CommandRequest_Publish{Publish: v}
	}
	if err := m.unmarshal(raw); err != nil {
		return err
	}
	r.RequestData = wrap
	return nil
}

func (r *CommandResponse) appendMarshal(b []byte) ([]byte, error) {
	if r.Status != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Status))
	}
	b = appendStringField(b, 2, r.Message)
	var err error
	for _, v := range r.Values {
		if b, err = appendSubmessage(b, 3, v); err != nil {
			return nil, err
		}
	}
	for _, p := range r.Pairs {
		if b, err = appendSubmessage(b, 4, p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (r *CommandResponse) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]
		switch num {
		case 1:
			u, n, err := consumeVarintField(data, typ)
			if err != nil {
				return err
			}
			r.Status = uint32(u)
			data = data[n:]
		case 2:
			s, n, err := consumeStringField(data, typ)
			if err != nil {
				return err
			}
			r.Message = s
			data = data[n:]
		case 3:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			v := new(Value)
			if err := v.unmarshal(raw); err != nil {
				return err
			}
			r.Values = append(r.Values, v)
			data = data[n:]
		case 4:
			raw, n, err := consumeBytesField(data, typ)
			if err != nil {
				return err
			}
			p := new(Kvpair)
			if err := p.unmarshal(raw); err != nil {
				return err
			}
			r.Pairs = append(r.Pairs, p)
			data = data[n:]
		default:
			n, err := skipField(data, num, typ)
			if err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}
