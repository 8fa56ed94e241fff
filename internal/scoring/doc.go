// Package scoring turns a completed World3 run into a single quality-of-life score.
//
// Five statistics of the run are each mapped through a logistic desirability
// curve into [0, 1] and combined with a geometric mean, so one collapsing factor
// drags the whole score toward zero.
package scoring
