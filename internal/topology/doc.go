// Package topology loads the static facility description (devices, floors,
// rooms, nodes) from a YAML file.
//
// The topology is read once at startup and treated as immutable afterwards.
// The device registry derived from it is the only lookup the telemetry path
// performs.
package topology
