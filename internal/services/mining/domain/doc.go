// Package domain holds the pure mining-session model: session lifecycle
// states, reward calculation, and streak day math. Nothing in this package
// performs I/O; storage and orchestration live in sibling packages.
package domain
