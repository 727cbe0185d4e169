// Command mnemod runs the memory daemon and its operator surface: a worker
// that drains the durable event queue into the vector index and profile
// store, plus subcommands for enqueueing events, searching stored memories,
// inspecting and repairing the queue, and managing configuration.
package main
