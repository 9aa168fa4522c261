// Package mapgrid implements the immutable tile grid and the pure movement
// function shared by client prediction and server authority.
//
// Model is loaded once per world (LoadYAML) and never mutated afterward;
// Evaluate takes a Model, a starting position, and a Direction, and returns
// the resulting position with no side effects, so the same function can
// run on a client to predict a move and on the server to authorize it.
package mapgrid
