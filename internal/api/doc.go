// Package api implements the servo-switch HTTP API.
//
// Endpoints:
//
//	GET  /api/health          component health, no auth
//	GET  /api/switch          current power state (0-3)
//	POST /api/switch          set power state, body {"value": 0-3}
//	GET  /api/env             temperature and humidity
//	GET  /api/switch/history  paginated switch events
//
// Every endpoint except /api/health requires the shared secret, either as
// a token query parameter or an "Authorization: Bearer" header. Failures
// on the switch and env endpoints answer with the body {"success":false}
// and a status of 400, 401 or 500.
//
// After a successful change the server fans the new state out to MQTT,
// InfluxDB and the SQLite history. All three are optional and none of
// them can fail the request.
package api
