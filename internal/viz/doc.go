// Package viz is a terminal viewer for cable scenes.
//
// The viewer runs every cable in realtime mode on the Bubble Tea tick and
// draws the particle chains on a Braille [Canvas] through an orthographic
// [Camera]. Guide edits made from the keyboard go through the same
// invalidation path as any other edit, so only the touched spans restart.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	Tab     - Select next cable
//	← →     - Select guide point
//	h j k l - Move the selected point
//	+ -     - Add or remove slack
//	F       - Toggle fixed anchor
//	R       - Restart every cable
//	T       - Cycle color themes
//	?       - Show help overlay
package viz
