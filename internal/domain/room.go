package domain

// RoomID is the key connections are grouped under on the realtime side.
// Rooms are backed by stored groups, but the registry treats the key as
// opaque and materializes a room on first join.
type RoomID string
