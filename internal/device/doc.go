// Package device is the in-memory domain model: networks and cameras with
// derived, time-sensitive state.
//
// Entities live in a Registry arena indexed by cloud identifier. A refresh
// merges new snapshot data into the existing entities in place, so a
// *Network or *Camera obtained once stays valid and keeps its local context
// (armedAt, privacy mode, cached thumbnail bytes) across refreshes.
//
// Camera capabilities are split in two:
//   - CameraState: pure getters computed from data already loaded.
//   - CameraProbe: methods that may call the cloud (motion lookup, thumbnail
//     download) and therefore take a context.
//
// A camera never stores its own armed state; it is read from the parent
// network through the registry.
package device
