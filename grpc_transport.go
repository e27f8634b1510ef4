// grpc_transport.go: the native boundary carried over gRPC
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// NativeBridgeServiceName is the gRPC service carrying Native calls.
const NativeBridgeServiceName = "gobridge.v1.NativeBridge"

// DefaultRemoteCallTimeout bounds every remote native call.
const DefaultRemoteCallTimeout = 5 * time.Second

const (
	methodRegisterSingleton = "/" + NativeBridgeServiceName + "/RegisterSingleton"
	methodRegisterOperation = "/" + NativeBridgeServiceName + "/RegisterOperation"
	methodRegisterSignal    = "/" + NativeBridgeServiceName + "/RegisterSignal"
	methodEmitSignal        = "/" + NativeBridgeServiceName + "/EmitSignal"
	methodNotify            = "/" + NativeBridgeServiceName + "/Notify"
)

// NativeBridgeServer is the server side of the service. Requests are
// google.protobuf.Struct messages, replies google.protobuf.Empty.
//
// Equivalent protobuf service:
//
//	service NativeBridge {
//	  rpc RegisterSingleton(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc RegisterOperation(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc RegisterSignal(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc EmitSignal(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc Notify(google.protobuf.Struct) returns (google.protobuf.Empty);
//	}
type NativeBridgeServer interface {
	RegisterSingleton(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	RegisterOperation(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	RegisterSignal(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	EmitSignal(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	Notify(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
}

type bridgeCall func(srv NativeBridgeServer, ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)

func unaryHandler(fullMethod string, call bridgeCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NativeBridgeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NativeBridgeServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var nativeBridgeServiceDesc = grpc.ServiceDesc{
	ServiceName: NativeBridgeServiceName,
	HandlerType: (*NativeBridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterSingleton",
			Handler: unaryHandler(methodRegisterSingleton, func(s NativeBridgeServer, ctx context.Context, r *structpb.Struct) (*emptypb.Empty, error) {
				return s.RegisterSingleton(ctx, r)
			}),
		},
		{
			MethodName: "RegisterOperation",
			Handler: unaryHandler(methodRegisterOperation, func(s NativeBridgeServer, ctx context.Context, r *structpb.Struct) (*emptypb.Empty, error) {
				return s.RegisterOperation(ctx, r)
			}),
		},
		{
			MethodName: "RegisterSignal",
			Handler: unaryHandler(methodRegisterSignal, func(s NativeBridgeServer, ctx context.Context, r *structpb.Struct) (*emptypb.Empty, error) {
				return s.RegisterSignal(ctx, r)
			}),
		},
		{
			MethodName: "EmitSignal",
			Handler: unaryHandler(methodEmitSignal, func(s NativeBridgeServer, ctx context.Context, r *structpb.Struct) (*emptypb.Empty, error) {
				return s.EmitSignal(ctx, r)
			}),
		},
		{
			MethodName: "Notify",
			Handler: unaryHandler(methodNotify, func(s NativeBridgeServer, ctx context.Context, r *structpb.Struct) (*emptypb.Empty, error) {
				return s.Notify(ctx, r)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gobridge/v1/native_bridge.proto",
}

// APIKeyInterceptor rejects calls whose x-api-key metadata does not match key.
func APIKeyInterceptor(key string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("x-api-key")
		if len(values) == 0 || subtle.ConstantTimeCompare([]byte(values[0]), []byte(key)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}
		return handler(ctx, req)
	}
}

// RegisterNativeBridgeServer registers srv on a gRPC server.
func RegisterNativeBridgeServer(s grpc.ServiceRegistrar, srv NativeBridgeServer) {
	s.RegisterService(&nativeBridgeServiceDesc, srv)
}

// NativeServer serves any Native over gRPC. Singletons arrive without a
// handle: operations of remote plugins cannot be called from this side.
type NativeServer struct {
	native Native
	logger Logger
}

// NewNativeServer wraps native.
func NewNativeServer(native Native, logger any) *NativeServer {
	return &NativeServer{native: native, logger: NewLogger(logger)}
}

// scope returns ctx carrying the server logger tagged with the call.
func (s *NativeServer) scope(ctx context.Context, method string, req *structpb.Struct) context.Context {
	fields := []any{"method", method}
	if plugin := stringField(req, "plugin"); plugin != "" {
		fields = append(fields, "plugin", plugin)
	}
	return ContextWithLogger(ctx, s.logger.With(fields...))
}

func (s *NativeServer) RegisterSingleton(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	ctx = s.scope(ctx, "RegisterSingleton", req)
	plugin := stringField(req, "plugin")
	return s.reply(ctx, s.native.RegisterSingleton(plugin, nil))
}

func (s *NativeServer) RegisterOperation(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	ctx = s.scope(ctx, "RegisterOperation", req)
	err := s.native.RegisterOperation(
		stringField(req, "plugin"),
		stringField(req, "operation"),
		stringField(req, "signature"))
	return s.reply(ctx, err)
}

func (s *NativeServer) RegisterSignal(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	ctx = s.scope(ctx, "RegisterSignal", req)
	var sigs []string
	if list := req.GetFields()["param_signatures"].GetListValue(); list != nil {
		for _, v := range list.GetValues() {
			sigs = append(sigs, v.GetStringValue())
		}
	}
	err := s.native.RegisterSignal(stringField(req, "plugin"), stringField(req, "signal"), sigs)
	return s.reply(ctx, err)
}

func (s *NativeServer) EmitSignal(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	ctx = s.scope(ctx, "EmitSignal", req)
	var args []Value
	if list := req.GetFields()["args"].GetListValue(); list != nil {
		args = make([]Value, 0, len(list.GetValues()))
		for i, v := range list.GetValues() {
			decoded, err := decodeValue(v)
			if err != nil {
				LoggerFromContext(ctx).Warn("Native call rejected", "argument", i, "error", err)
				return nil, status.Errorf(codes.InvalidArgument, "argument %d: %v", i, err)
			}
			args = append(args, decoded)
		}
	}
	err := s.native.EmitSignal(stringField(req, "plugin"), stringField(req, "signal"), args)
	return s.reply(ctx, err)
}

func (s *NativeServer) Notify(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	ctx = s.scope(ctx, "Notify", req)
	var err error
	switch event := NativeEvent(stringField(req, "event")); event {
	case EventDestroy:
		err = s.native.NotifyDestroy()
	case EventFocusIn:
		err = s.native.NotifyFocusIn()
	case EventFocusOut:
		err = s.native.NotifyFocusOut()
	case EventBackPressed:
		err = s.native.NotifyBackPressed()
	case EventPermissionResult:
		err = s.native.NotifyPermissionResult(stringField(req, "permission"),
			req.GetFields()["granted"].GetBoolValue())
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown event %q", event)
	}
	return s.reply(ctx, err)
}

func (s *NativeServer) reply(ctx context.Context, err error) (*emptypb.Empty, error) {
	if err == nil {
		return &emptypb.Empty{}, nil
	}
	LoggerFromContext(ctx).Warn("Native call rejected", "error", err)
	return nil, toStatus(err)
}

// toStatus maps bridge error codes onto gRPC codes. The bridge code leads
// the status message.
func toStatus(err error) error {
	code := ErrorCodeOf(err)
	var c codes.Code
	switch code {
	case ErrCodeSingletonNotRegistered:
		c = codes.FailedPrecondition
	case ErrCodeUnregisteredSignal, ErrCodeOperationNotFound:
		c = codes.NotFound
	case ErrCodeArityMismatch, ErrCodeTypeMismatch, ErrCodeInvalidArgument, ErrCodeInvalidSignature:
		c = codes.InvalidArgument
	case ErrCodeSignalQueueFull:
		c = codes.ResourceExhausted
	case ErrCodeNativeClosed:
		c = codes.Aborted
	case ErrCodeNativeSymbolMissing:
		c = codes.Unimplemented
	default:
		c = codes.Internal
	}
	if code == "" {
		return status.Error(c, err.Error())
	}
	return status.Error(c, "["+code+"] "+err.Error())
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// RemoteNative implements Native by calling a NativeBridge service.
type RemoteNative struct {
	conn    grpc.ClientConnInterface
	closer  interface{ Close() error }
	timeout time.Duration
	apiKey  string
	logger  Logger
}

// RemoteOption configures a RemoteNative.
type RemoteOption func(*RemoteNative)

// WithCallTimeout bounds each call.
func WithCallTimeout(d time.Duration) RemoteOption {
	return func(r *RemoteNative) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithAPIKey sends key as x-api-key metadata on every call.
func WithAPIKey(key string) RemoteOption {
	return func(r *RemoteNative) { r.apiKey = key }
}

// WithRemoteLogger sets the client logger.
func WithRemoteLogger(logger any) RemoteOption {
	return func(r *RemoteNative) { r.logger = NewLogger(logger) }
}

// NewRemoteNative uses an existing connection. The caller owns conn.
func NewRemoteNative(conn grpc.ClientConnInterface, opts ...RemoteOption) *RemoteNative {
	r := &RemoteNative{
		conn:    conn,
		timeout: DefaultRemoteCallTimeout,
		logger:  DefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRemoteNative connects to cfg.Endpoint, over TLS when the config names
// certificates. Close releases the connection.
func DialRemoteNative(cfg RemoteConfig, opts ...RemoteOption) (*RemoteNative, error) {
	if cfg.Endpoint == "" {
		return nil, NewConfigValidationError("remote.endpoint cannot be empty", nil)
	}
	creds := insecure.NewCredentials()
	if cfg.CAFile != "" || cfg.CertFile != "" {
		tlsCreds, err := buildTLSCredentials(cfg)
		if err != nil {
			return nil, NewConfigValidationError("invalid remote TLS settings", err)
		}
		creds = tlsCreds
	}
	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(4*1024*1024),
			grpc.MaxCallSendMsgSize(4*1024*1024),
		))
	if err != nil {
		return nil, NewNativeSymbolMissingError("dial "+cfg.Endpoint, err)
	}
	base := []RemoteOption{WithCallTimeout(cfg.CallTimeout)}
	if cfg.APIKey != "" {
		base = append(base, WithAPIKey(cfg.APIKey))
	}
	r := NewRemoteNative(conn, append(base, opts...)...)
	r.closer = conn
	return r, nil
}

func buildTLSCredentials(cfg RemoteConfig) (credentials.TransportCredentials, error) {
	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(filepath.Clean(cfg.CAFile)) // #nosec G304 - CA path comes from bridge configuration
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = pool
	}

	return credentials.NewTLS(config), nil
}

// Close releases a connection opened by DialRemoteNative.
func (r *RemoteNative) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *RemoteNative) invoke(method string, fields map[string]any) error {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return NewInvalidArgumentError(err.Error())
	}
	return r.invokeStruct(method, req)
}

func (r *RemoteNative) invokeStruct(method string, req *structpb.Struct) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	ctx = r.outgoingMetadata(ctx)

	if err := r.conn.Invoke(ctx, method, req, &emptypb.Empty{}); err != nil {
		r.logger.Debug("Remote native call failed", "method", method, "error", err)
		return fromStatus(method, err)
	}
	return nil
}

func (r *RemoteNative) outgoingMetadata(ctx context.Context) context.Context {
	md := metadata.New(map[string]string{"x-request-id": uuid.NewString()})
	if r.apiKey != "" {
		md.Set("x-api-key", r.apiKey)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if ok {
		switch st.Code() {
		case codes.Unavailable, codes.Unimplemented:
			return NewNativeSymbolMissingError(method, err)
		}
	}
	return NewRemoteTransportError(method, err)
}

// RegisterSingleton implements Native. Only the name crosses the wire.
func (r *RemoteNative) RegisterSingleton(plugin string, _ *PluginHandle) error {
	return r.invoke(methodRegisterSingleton, map[string]any{"plugin": plugin})
}

func (r *RemoteNative) RegisterOperation(plugin, operation, signature string) error {
	return r.invoke(methodRegisterOperation, map[string]any{
		"plugin":    plugin,
		"operation": operation,
		"signature": signature,
	})
}

func (r *RemoteNative) RegisterSignal(plugin, signal string, paramSignatures []string) error {
	sigs := make([]any, len(paramSignatures))
	for i, s := range paramSignatures {
		sigs[i] = s
	}
	return r.invoke(methodRegisterSignal, map[string]any{
		"plugin":           plugin,
		"signal":           signal,
		"param_signatures": sigs,
	})
}

func (r *RemoteNative) EmitSignal(plugin, signal string, args []Value) error {
	encoded := make([]*structpb.Value, len(args))
	for i, a := range args {
		encoded[i] = encodeValue(a)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"plugin": structpb.NewStringValue(plugin),
		"signal": structpb.NewStringValue(signal),
		"args":   structpb.NewListValue(&structpb.ListValue{Values: encoded}),
	}}
	return r.invokeStruct(methodEmitSignal, req)
}

func (r *RemoteNative) notify(event NativeEvent, extra map[string]any) error {
	fields := map[string]any{"event": string(event)}
	for k, v := range extra {
		fields[k] = v
	}
	return r.invoke(methodNotify, fields)
}

func (r *RemoteNative) NotifyDestroy() error     { return r.notify(EventDestroy, nil) }
func (r *RemoteNative) NotifyFocusIn() error     { return r.notify(EventFocusIn, nil) }
func (r *RemoteNative) NotifyFocusOut() error    { return r.notify(EventFocusOut, nil) }
func (r *RemoteNative) NotifyBackPressed() error { return r.notify(EventBackPressed, nil) }

func (r *RemoteNative) NotifyPermissionResult(permission string, granted bool) error {
	return r.notify(EventPermissionResult, map[string]any{
		"permission": permission,
		"granted":    granted,
	})
}

// Wire form of a Value: {"t": kind, "v": payload}. Integers travel as
// decimal strings and bytes as base64 so no precision is lost.

func encodeValue(v Value) *structpb.Value {
	var payload *structpb.Value
	switch v.kind {
	case ValueBool:
		payload = structpb.NewBoolValue(v.b)
	case ValueInt:
		payload = structpb.NewStringValue(strconv.FormatInt(v.i, 10))
	case ValueFloat:
		payload = structpb.NewNumberValue(v.f)
	case ValueString:
		payload = structpb.NewStringValue(v.s)
	case ValueBytes:
		payload = structpb.NewStringValue(base64.StdEncoding.EncodeToString(v.raw))
	case ValueArray:
		items := make([]*structpb.Value, len(v.arr))
		for i, e := range v.arr {
			items[i] = encodeValue(e)
		}
		payload = structpb.NewListValue(&structpb.ListValue{Values: items})
	case ValueMap:
		fields := make(map[string]*structpb.Value, len(v.m))
		for k, e := range v.m {
			fields[k] = encodeValue(e)
		}
		payload = structpb.NewStructValue(&structpb.Struct{Fields: fields})
	default:
		payload = structpb.NewNullValue()
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"t": structpb.NewStringValue(v.kind.String()),
		"v": payload,
	}})
}

func decodeValue(wire *structpb.Value) (Value, error) {
	obj := wire.GetStructValue()
	if obj == nil {
		return Void(), fmt.Errorf("value is not an object")
	}
	payload := obj.GetFields()["v"]
	switch kind := obj.GetFields()["t"].GetStringValue(); kind {
	case "void":
		return Void(), nil
	case "bool":
		return BoolValue(payload.GetBoolValue()), nil
	case "int":
		n, err := strconv.ParseInt(payload.GetStringValue(), 10, 64)
		if err != nil {
			return Void(), err
		}
		return IntValue(n), nil
	case "float":
		return FloatValue(payload.GetNumberValue()), nil
	case "string":
		return StringValue(payload.GetStringValue()), nil
	case "bytes":
		raw, err := base64.StdEncoding.DecodeString(payload.GetStringValue())
		if err != nil {
			return Void(), err
		}
		return BytesValue(raw), nil
	case "array":
		items := payload.GetListValue().GetValues()
		out := make([]Value, len(items))
		for i, item := range items {
			decoded, err := decodeValue(item)
			if err != nil {
				return Void(), err
			}
			out[i] = decoded
		}
		return ArrayValue(out...), nil
	case "map":
		fields := payload.GetStructValue().GetFields()
		out := make(map[string]Value, len(fields))
		for k, item := range fields {
			decoded, err := decodeValue(item)
			if err != nil {
				return Void(), err
			}
			out[k] = decoded
		}
		return MapValue(out), nil
	default:
		return Void(), fmt.Errorf("unknown value kind %q", kind)
	}
}
