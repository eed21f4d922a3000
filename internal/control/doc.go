// Package control holds the externally mutable inputs of the lift station.
//
// [Store] is the only path between the control-ingestion flow and the
// real-time loop. Writers replace one field at a time with [Store.Set];
// the loop reads a [Snapshot] once per segment:
//
//	store := control.NewStore(physics.DefaultConstants(), physics.DefaultControls())
//	_ = store.Set(control.PumpOn, "0")
//	snap := store.Snapshot() // immutable, never torn
//
// [Ingestor] is the inbound message handler a transport invokes. It routes
// topics to fields and touches nothing but the store.
package control
