// Package duel hosts the two-participant turn relay: a FIFO lobby that pairs
// joiners into games, the per-game turn handoff, and the websocket transport
// that carries moves between the paired participants. Move legality and game
// outcomes come from a pluggable rule engine.
package duel
