// Package graph expands retrieval context by searching chains of relation
// triples that connect through shared entities.
//
// BeamSearch implements the diverse triple beam search of GEAR: chains grow
// one neighboring triple at a time, are scored by the running average of
// their triples' query similarity, and the extensions are ranked with an
// exponential diversity penalty before the best beams are kept.
package graph
