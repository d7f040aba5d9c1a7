// Package statepub mirrors fleet state onto MQTT and accepts intents from it.
//
// After every registry refresh each network and camera is published as a
// retained JSON document under {prefix}/state/... so late subscribers see
// current values. Finished intents are published to {prefix}/event/intent.
//
// Intents arrive on {prefix}/command/network/{id} and
// {prefix}/command/camera/{id}:
//
//	network: {"armed": true} | {"cancel": true} | {"refresh": true}
//	camera:  {"motion_enabled": false} | {"privacy": true}
//	         {"refresh_thumbnail": true} | {"refresh_clip": true}
//
// Each intent runs on its own goroutine and is acknowledged on
// {prefix}/event/ack with its outcome.
package statepub
