package common

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// JSONCodecName is the content-subtype of collaborator calls. The gateway
// services exchange small JSON messages instead of protobuf so that a hosted
// collaborator can be written in any language without a codegen step.
const JSONCodecName = "json"

var grpcJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return grpcJSON.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return grpcJSON.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return JSONCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// InvokeJSON performs a unary call on conn with the JSON codec.
func InvokeJSON(ctx context.Context, conn *grpc.ClientConn, method string, req, resp interface{}) error {
	return conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(JSONCodecName))
}
