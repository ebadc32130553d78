// Package builtin provides the in-process handlers shipped with the gateway.
//
// Register adds these factories to a registry.Catalog:
//
//	base-multiplier   base       result = firstNumber * 5, serves the base form
//	override-hundred  override   result = firstNumber * 100
//	after-doubler     after      result = result * 2
//	before-defaults   before     fills missing payload fields
//	schema-extension  none       adds a comment field
//	script-extension  none       adds a UI group and the client event script
//
// The multiplying handlers share the Arithmetic type and differ only in
// configuration, so a handler entry may override input, output and factor:
//
//	{"name": "triple", "factory": "after-doubler", "config": {"factor": 3}}
//
// Static documents are embedded from the assets directory.
package builtin
