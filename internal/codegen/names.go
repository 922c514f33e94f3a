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

import "strings"

// ServiceIdent derives the exported server-interface identifier for a proto
// service. The "Service" suffix is stripped before being reapplied, so a
// proto service already named with the suffix does not have it doubled:
// "HelloWorldService" stays "HelloWorldService" while "NamingTest" becomes
// "NamingTestService".
func ServiceIdent(goName string) string {
	return dedupedSuffix(goName, "Service")
}

// ClientIdent derives the exported client-interface identifier for a proto
// service, applying the same strip-then-reapply rule to the "Client"
// suffix.
func ClientIdent(goName string) string {
	return dedupedSuffix(goName, "Client")
}

// dedupedSuffix appends suffix to name unless name already ends with it.
func dedupedSuffix(name, suffix string) string {
	return strings.TrimSuffix(name, suffix) + suffix
}

// unexport lowercases the first rune of an exported identifier.
func unexport(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
