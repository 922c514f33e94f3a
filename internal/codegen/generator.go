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

// Package codegen emits the per-service grpcfx glue from proto service
// descriptors: a proto-id constant, a server interface generic over the
// derived context type, a registration helper producing a server.Service,
// and a typed client with its two construction shapes (with and without a
// metadata-transformation function).
package codegen

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/compiler/protogen"
)

const (
	contextPackage = protogen.GoImportPath("context")
	grpcPackage    = protogen.GoImportPath("google.golang.org/grpc")
	serverPackage  = protogen.GoImportPath("github.com/pjscruggs/grpcfx/server")
	clientPackage  = protogen.GoImportPath("github.com/pjscruggs/grpcfx/client")
)

// GeneratedFileSuffix is appended to the proto filename prefix of every
// generated file.
const GeneratedFileSuffix = "_grpcfx.pb.go"

// GenerateFile emits the grpcfx glue for file. It returns nil without
// generating anything when the file declares no services, and an error when
// any service declares a non-unary method: silently omitting streaming
// methods would hide missing functionality from callers, so generation
// fails instead.
func GenerateFile(gen *protogen.Plugin, file *protogen.File) (*protogen.GeneratedFile, error) {
	if len(file.Services) == 0 {
		return nil, nil
	}
	for _, service := range file.Services {
		for _, method := range service.Methods {
			if method.Desc.IsStreamingClient() || method.Desc.IsStreamingServer() {
				return nil, fmt.Errorf(
					"grpcfx: service %s declares non-unary method %s; only unary methods are supported",
					service.Desc.FullName(), method.Desc.Name(),
				)
			}
		}
	}

	g := gen.NewGeneratedFile(file.GeneratedFilenamePrefix+GeneratedFileSuffix, file.GoImportPath)
	g.P("// Code generated by protoc-gen-grpcfx. DO NOT EDIT.")
	g.P("//")
	g.P("// Source: ", file.Desc.Path())
	g.P()
	g.P("package ", file.GoPackageName)
	g.P()
	for _, service := range file.Services {
		generateService(g, service)
	}
	return g, nil
}

// generateService emits the server and client glue for one service.
func generateService(g *protogen.GeneratedFile, service *protogen.Service) {
	ifaceName := ServiceIdent(service.GoName)
	idConst := ifaceName + "ID"

	ctxCtx := g.QualifiedGoIdent(contextPackage.Ident("Context"))

	g.P("// ", idConst, " is the fully-qualified name of the ", service.Desc.Name(), " service.")
	g.P("const ", idConst, " = ", strconv.Quote(string(service.Desc.FullName())))
	g.P()

	// Server interface, generic over the derived context type.
	g.P("// ", ifaceName, " is the server interface for the ", service.Desc.Name(), " service.")
	g.P("// C is the context type derived by the builder's transform chain.")
	g.P("type ", ifaceName, "[C any] interface {")
	for _, method := range service.Methods {
		g.P(method.Comments.Leading,
			method.GoName, "(ctx ", ctxCtx, ", c C, req *", method.Input.GoIdent,
			") (*", method.Output.GoIdent, ", error)")
	}
	g.P("}")
	g.P()

	generateRegistration(g, service, ifaceName, idConst)
	generateClient(g, service, idConst)
}

// generateRegistration emits the New<Service> helper wiring an
// implementation into a server.Service.
func generateRegistration(g *protogen.GeneratedFile, service *protogen.Service, ifaceName, idConst string) {
	ctxCtx := g.QualifiedGoIdent(contextPackage.Ident("Context"))
	serverService := g.QualifiedGoIdent(serverPackage.Ident("Service"))
	serverExecutor := g.QualifiedGoIdent(serverPackage.Ident("Executor"))
	serverUnary := g.QualifiedGoIdent(serverPackage.Ident("Unary"))
	serviceDesc := g.QualifiedGoIdent(grpcPackage.Ident("ServiceDesc"))
	methodDesc := g.QualifiedGoIdent(grpcPackage.Ident("MethodDesc"))
	interceptor := g.QualifiedGoIdent(grpcPackage.Ident("UnaryServerInterceptor"))

	g.P("// New", ifaceName, " packages impl for registration on a server builder.")
	g.P("func New", ifaceName, "[C any](impl ", ifaceName, "[C]) ", serverService, "[C] {")
	g.P("return ", serverService, "[C]{")
	g.P("Tag: ", idConst, ",")
	g.P("Bind: func(ex *", serverExecutor, "[C]) (*", serviceDesc, ", any) {")
	g.P("desc := &", serviceDesc, "{")
	g.P("ServiceName: ", idConst, ",")
	g.P("HandlerType: (*", ifaceName, "[C])(nil),")
	g.P("Methods: []", methodDesc, "{")
	for _, method := range service.Methods {
		g.P("{")
		g.P("MethodName: ", strconv.Quote(string(method.Desc.Name())), ",")
		g.P("Handler: func(srv any, ctx ", ctxCtx, ", dec func(any) error, _ ", interceptor, ") (any, error) {")
		g.P("req := new(", method.Input.GoIdent, ")")
		g.P("if err := dec(req); err != nil {")
		g.P("return nil, err")
		g.P("}")
		g.P("return ", serverUnary, "(ctx, ex, ", idConst, `+"/`, method.Desc.Name(), `", req, srv.(`, ifaceName, "[C]).", method.GoName, ")")
		g.P("},")
		g.P("},")
	}
	g.P("},")
	g.P("}")
	g.P("return desc, impl")
	g.P("},")
	g.P("}")
	g.P("}")
	g.P()
}

// generateClient emits the client interface, its two constructors, and the
// per-method invokers.
func generateClient(g *protogen.GeneratedFile, service *protogen.Service, idConst string) {
	clientName := ClientIdent(service.GoName)
	implName := unexport(clientName)

	ctxCtx := g.QualifiedGoIdent(contextPackage.Ident("Context"))
	callOption := g.QualifiedGoIdent(grpcPackage.Ident("CallOption"))
	connIface := g.QualifiedGoIdent(grpcPackage.Ident("ClientConnInterface"))
	clientConfig := g.QualifiedGoIdent(clientPackage.Ident("Config"))
	clientInvoke := g.QualifiedGoIdent(clientPackage.Ident("Invoke"))
	metadataFunc := g.QualifiedGoIdent(clientPackage.Ident("MetadataFunc"))

	g.P("// ", clientName, " is the client interface for the ", service.Desc.Name(), " service.")
	g.P("type ", clientName, " interface {")
	for _, method := range service.Methods {
		g.P(method.GoName, "(ctx ", ctxCtx, ", req *", method.Input.GoIdent,
			", opts ...", callOption, ") (*", method.Output.GoIdent, ", error)")
	}
	g.P("}")
	g.P()

	g.P("// New", clientName, " binds a client to conn using cfg.")
	g.P("func New", clientName, "(conn ", connIface, ", cfg ", clientConfig, ") ", clientName, " {")
	g.P("return &", implName, "{conn: conn, cfg: cfg}")
	g.P("}")
	g.P()

	g.P("// New", clientName, "WithMetadata additionally applies mdFn to the outgoing")
	g.P("// metadata of every request before trace headers are injected.")
	g.P("func New", clientName, "WithMetadata(conn ", connIface, ", cfg ", clientConfig, ", mdFn ", metadataFunc, ") ", clientName, " {")
	g.P("return &", implName, "{conn: conn, cfg: cfg, mdFn: mdFn}")
	g.P("}")
	g.P()

	g.P("type ", implName, " struct {")
	g.P("conn ", connIface)
	g.P("cfg ", clientConfig)
	g.P("mdFn ", metadataFunc)
	g.P("}")
	g.P()

	for _, method := range service.Methods {
		g.P("func (c *", implName, ") ", method.GoName, "(ctx ", ctxCtx, ", req *", method.Input.GoIdent,
			", opts ...", callOption, ") (*", method.Output.GoIdent, ", error) {")
		g.P("reply := new(", method.Output.GoIdent, ")")
		g.P("if err := ", clientInvoke, "(ctx, c.conn, c.cfg, ", idConst, `+"/`, method.Desc.Name(), `", req, reply, c.mdFn, opts...); err != nil {`)
		g.P("return nil, err")
		g.P("}")
		g.P("return reply, nil")
		g.P("}")
		g.P()
	}
}
