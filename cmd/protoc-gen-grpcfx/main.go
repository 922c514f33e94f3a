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

// protoc-gen-grpcfx is a protoc plugin that generates grpcfx service glue.
// Build it, place it on your PATH, and invoke it alongside protoc-gen-go:
//
//	protoc --go_out=gen --grpcfx_out=gen path/to/file.proto
//
// For a proto file defining services it writes a sibling
// path/to/file_grpcfx.pb.go with, per service, the proto-id constant, the
// generic server interface and registration helper, and the typed client
// with its constructors. Files without services produce no output.
// Services with streaming methods are rejected with an error.
package main

import (
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/pjscruggs/grpcfx/internal/codegen"
)

func main() {
	protogen.Options{}.Run(func(gen *protogen.Plugin) error {
		gen.SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)
		for _, file := range gen.Files {
			if !file.Generate {
				continue
			}
			if _, err := codegen.GenerateFile(gen, file); err != nil {
				return err
			}
		}
		return nil
	})
}
