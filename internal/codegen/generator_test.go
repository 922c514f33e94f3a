// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package codegen

import (
	"strings"
	"testing"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"
)

// helloDescriptor builds the descriptor for a minimal proto file declaring
// the given service methods.
func helloDescriptor(methods ...*descriptorpb.MethodDescriptorProto) *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("hello/hello.proto"),
		Package: proto.String("hello"),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("example.com/gen/hello;hellopb"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String("GetGreetingRequest")},
			{Name: proto.String("GetGreetingResponse")},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name:   proto.String("HelloWorldService"),
				Method: methods,
			},
		},
	}
}

func unaryMethod(name string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(".hello.GetGreetingRequest"),
		OutputType: proto.String(".hello.GetGreetingResponse"),
	}
}

// newPlugin wraps the descriptor in a code generator request and resolves it
// the way protoc would.
func newPlugin(t *testing.T, fd *descriptorpb.FileDescriptorProto) (*protogen.Plugin, *protogen.File) {
	t.Helper()
	gen, err := protogen.Options{}.New(&pluginpb.CodeGeneratorRequest{
		FileToGenerate: []string{fd.GetName()},
		ProtoFile:      []*descriptorpb.FileDescriptorProto{fd},
	})
	if err != nil {
		t.Fatalf("protogen.New() error: %v", err)
	}
	for _, file := range gen.Files {
		if file.Generate {
			return gen, file
		}
	}
	t.Fatalf("no file marked for generation")
	return nil, nil
}

// TestGenerateFile exercises the full emission path for a unary service and
// checks the generated surface: the id constant, the generic server
// interface, the registration helper, and both client constructors.
func TestGenerateFile(t *testing.T) {
	t.Parallel()

	gen, file := newPlugin(t, helloDescriptor(unaryMethod("GetGreeting")))
	g, err := GenerateFile(gen, file)
	if err != nil {
		t.Fatalf("GenerateFile() error: %v", err)
	}
	if g == nil {
		t.Fatalf("GenerateFile() produced no file")
	}

	// Content() gofmt-parses the output, so this also asserts the emitted
	// code is syntactically valid.
	raw, err := g.Content()
	if err != nil {
		t.Fatalf("generated file does not parse: %v", err)
	}
	content := string(raw)

	for _, want := range []string{
		"// Code generated by protoc-gen-grpcfx. DO NOT EDIT.",
		"package hellopb",
		`const HelloWorldServiceID = "hello.HelloWorldService"`,
		"type HelloWorldService[C any] interface {",
		"GetGreeting(ctx context.Context, c C, req *GetGreetingRequest) (*GetGreetingResponse, error)",
		"func NewHelloWorldService[C any](impl HelloWorldService[C]) server.Service[C] {",
		"HelloWorldServiceID,",
		"HandlerType: (*HelloWorldService[C])(nil),",
		`MethodName: "GetGreeting",`,
		"server.Unary(ctx, ex, ",
		"type HelloWorldServiceClient interface {",
		"func NewHelloWorldServiceClient(conn grpc.ClientConnInterface, cfg client.Config) HelloWorldServiceClient {",
		"func NewHelloWorldServiceClientWithMetadata(conn grpc.ClientConnInterface, cfg client.Config, mdFn client.MetadataFunc) HelloWorldServiceClient {",
		"type helloWorldServiceClient struct {",
		"client.Invoke(ctx, c.conn, c.cfg, ",
		`"/GetGreeting"`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("generated file missing %q", want)
		}
	}

	resp := gen.Response()
	if len(resp.File) != 1 {
		t.Fatalf("response has %d files, want 1", len(resp.File))
	}
	if got := resp.File[0].GetName(); got != "hello/hello_grpcfx.pb.go" {
		t.Errorf("generated filename = %q, want %q", got, "hello/hello_grpcfx.pb.go")
	}
}

// TestGenerateFileSkipsServiceless verifies a file without services
// produces no output at all.
func TestGenerateFileSkipsServiceless(t *testing.T) {
	t.Parallel()

	fd := helloDescriptor()
	fd.Service = nil
	gen, file := newPlugin(t, fd)

	g, err := GenerateFile(gen, file)
	if err != nil {
		t.Fatalf("GenerateFile() error: %v", err)
	}
	if g != nil {
		t.Fatalf("GenerateFile() emitted a file for a serviceless proto")
	}
}

// TestGenerateFileRejectsStreaming verifies streaming methods fail
// generation instead of being silently dropped.
func TestGenerateFileRejectsStreaming(t *testing.T) {
	t.Parallel()

	streaming := unaryMethod("WatchGreetings")
	streaming.ServerStreaming = proto.Bool(true)
	gen, file := newPlugin(t, helloDescriptor(unaryMethod("GetGreeting"), streaming))

	_, err := GenerateFile(gen, file)
	if err == nil {
		t.Fatalf("GenerateFile() accepted a streaming method")
	}
	for _, want := range []string{"hello.HelloWorldService", "WatchGreetings", "only unary methods"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
