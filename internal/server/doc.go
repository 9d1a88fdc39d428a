// Package server exposes the mods under the configured mods directory over
// HTTP.
//
// Routes:
//
//	GET    /config
//	GET    /mods
//	GET    /mods/{mod}/document
//	PUT    /mods/{mod}/document
//	POST   /mods/{mod}/blocks/{id}/rename
//	GET    /mods/{mod}/settings
//	PATCH  /mods/{mod}/settings
//	POST   /mods/{mod}/settings/reset
//	GET    /mods/{mod}/presets
//	POST   /mods/{mod}/presets
//	DELETE /mods/{mod}/presets/{name}
//	POST   /mods/{mod}/presets/{name}/load
//	POST   /mods/{mod}/apply[?dryRun=true]
//	GET    /mods/{mod}/check[/missing|/extra|/nonexistent]
//	GET    /event[?mod=name]
//
// Every mutation runs while holding the mod's lock, the same lock an apply
// pass holds, so a settings change and an apply never interleave. Errors are
// written as {"error": {"code", "message", "details"}}.
//
// /event is a Server-Sent Events stream of the event bus. Each message is
// {"type": "...", "properties": {...}} and a heartbeat comment is sent every
// SSEHeartbeatInterval.
package server
