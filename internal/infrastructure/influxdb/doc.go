// Package influxdb records bridge telemetry: volume and power transitions,
// processor connectivity, and command throughput.
//
// Points are batched and written asynchronously through the official
// influxdb-client-go v2 write API, so telemetry being down never blocks the
// bridge. Measurement helpers live in write.go; each keeps tag cardinality
// low (zone, state, entity) so a home instance stays well within the
// server's series budget.
package influxdb
