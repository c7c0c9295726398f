// Package dataset models a driving-scene dataset as four flat record
// tables (scenes, frames, agents and the optional traffic_light_faces)
// linked by half-open index intervals.
//
// Tables are read-only once opened. Resolve turns an interval stored in one
// table into the matching run of records of another, which is how every
// scene→frame, frame→agent and frame→traffic-light lookup is expressed.
package dataset
