// Package api implements the node's local control API: a small REST
// surface and a WebSocket push channel for clients on the same LAN.
//
// Routes:
//
//	GET  /api/v1/health
//	GET  /api/v1/metrics
//	GET  /api/v1/node
//	GET  /api/v1/devices/{device}
//	PUT  /api/v1/devices/{device}/params
//	GET  /api/v1/devices/{device}/params/{param}/history
//	GET  /ws
//
// Writes go through the same dispatcher as cloud writes, tagged with the
// local source (or schedule/scene via the X-Write-Source header).
// Clients on /ws send {"type":"subscribe","payload":{"channels":[...]}}
// for "param.reported" and "event.<category>" and then receive "push"
// frames carrying the channel name and payload.
//
// Starting and stopping the server raises agent/local_ctrl_started and
// agent/local_ctrl_stopped.
package api
