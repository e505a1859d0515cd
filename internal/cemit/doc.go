// Package cemit renders lowered module IR as MicroPython C source.
//
// Emission is split across a small emitter hierarchy: baseEmitter holds
// the statement and expression logic shared by every body kind, and
// FunctionEmitter, MethodEmitter and GeneratorEmitter specialize the
// entry signature, the return protocol and (for generators) the
// resumable state machine. The specializations work through open
// recursion: baseEmitter dispatches every nested statement through its
// self field, so an override in a derived emitter applies to statements
// at any depth.
//
// All decisions about representation kinds, dispatch strategy and
// side-effect ordering were made by irbuild; cemit only spells them as
// C. The one piece of judgment left here is value conversion at
// boundaries (boxing, unboxing, native casts), driven by the kinds the
// IR carries.
package cemit
