package pb

// Constructors for every request variant, mirroring the command surface
// a client speaks.

func NewHget(table, key string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hget{Hget: &Hget{Table: table, Key: key}}}
}

func NewHgetall(table string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hgetall{Hgetall: &Hgetall{Table: table}}}
}

func NewHmget(table string, keys []string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hmget{Hmget: &Hmget{Table: table, Keys: keys}}}
}

func NewHset(table, key string, value *Value) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hset{Hset: &Hset{
		Table: table,
		Pair:  &Kvpair{Key: key, Value: value},
	}}}
}

func NewHmset(table string, pairs []*Kvpair) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hmset{Hmset: &Hmset{Table: table, Pairs: pairs}}}
}

func NewHdel(table, key string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hdel{Hdel: &Hdel{Table: table, Key: key}}}
}

func NewHmdel(table string, keys []string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hmdel{Hmdel: &Hmdel{Table: table, Keys: keys}}}
}

func NewHexist(table, key string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hexist{Hexist: &Hexist{Table: table, Key: key}}}
}

func NewHmexist(table string, keys []string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Hmexist{Hmexist: &Hmexist{Table: table, Keys: keys}}}
}

func NewSubscribe(topic string) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Subscribe{Subscribe: &Subscribe{Topic: topic}}}
}

func NewUnsubscribe(topic string, id uint32) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Unsubscribe{Unsubscribe: &Unsubscribe{Topic: topic, ID: id}}}
}

func NewPublish(topic string, data []*Value) *CommandRequest {
	return &CommandRequest{RequestData: &CommandRequest_Publish{Publish: &Publish{Topic: topic, Data: data}}}
}
