// Package tether keeps simulated cables in step with the guides they follow.
//
// A Cable owns the authoritative model. Editing its guide invalidates the
// segments whose spans changed, and only the series containing those
// segments are rebuilt and resimulated, either inline or on a background
// worker that simulates a private copy. The owner drains the worker with
// Poll or Wait, which merges the simulated segments back and starts another
// run if further edits arrived in the meantime.
//
// A Scene shares one physics world between cables and orders them so each
// cable settles on top of the ones simulated before it.
package tether
