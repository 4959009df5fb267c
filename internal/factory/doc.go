// Package factory implements a generic spawn factory program.
//
// A factory holds one template (the stored program it instantiates),
// spawns children of that template on request, and keeps an insert-only
// registry of every child that was created successfully.
//
// # Creation protocol
//
// CreateInstance does not create anything itself. It emits a single
// instantiate submessage tagged with ReplyID and returns. The host runs the
// spawn and delivers the outcome to Reply within the same transaction:
//
//	execute(create_instance) -> SubMsg{ID: ReplyID, ReplyOn: always}
//	host spawns child        -> child sets data {"address", "extra"}
//	reply(ReplyID, ok)       -> registry insert, attribute instance_address
//	reply(ReplyID, err)      -> nothing registered, attribute instance_creation_failed
//
// A failed spawn is swallowed: the creation request still succeeds, the
// child's writes are rolled back by the host, and the registry is unchanged.
//
// # Type parameters
//
// Factory[M, E] is parameterized by the child's instantiate message M and
// the extra data E each child reports back. ir.Empty is the conventional E
// for children with nothing to report; json.RawMessage accepts anything.
package factory
