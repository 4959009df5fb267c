// Package harness runs factory scenarios written in YAML.
//
// A scenario drives a real host with a factory over the registrant child
// program, step by step, and checks each step's outcome. After the last
// step, assertions run against the invocation log and the registry.
//
//	name: create_and_list
//	factory:
//	  require_auth: true
//	steps:
//	  - create: { sender: "@alice", extra: { text: "first" } }
//	    as: first
//	    expect:
//	      attributes: { instance_address: "@first" }
//	  - create: { sender: "@bob" }
//	    expect: { error: UNAUTHORIZED }
//	  - query:
//	      msg: { list_instances: { pagination: { start: 0, limit: 5 } } }
//	    expect:
//	      result: { total: 1 }
//	assertions:
//	  - type: instance_count
//	    count: 1
//
// # Aliases
//
// A string "@name" anywhere in a step stands for an address. "@factory" is
// the factory contract, a name given with "as" is the instance created by
// that step, and any other name is an account derived from the name. The
// trace uses the same aliases, and the registrant's code hash appears as
// "@code:registrant", so golden traces contain no hashes. Instances created
// without "as" are named instance1, instance2 and so on; a child whose
// instantiation was rolled back shows up as @spawn1, @spawn2.
//
// # Determinism
//
// Every run uses a fresh in-memory store, a deterministic block clock and
// sequential transaction tokens, so the same scenario always produces the
// same trace.
package harness
